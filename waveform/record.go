package waveform

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Validation errors. The device silently misinterprets out-of-range data,
// so these checks gate every upload path.
var (
	ErrOutOfRange     = errors.New("sample out of range")
	ErrMarkerValue    = errors.New("invalid marker value")
	ErrLengthMismatch = errors.New("marker/sample length mismatch")
)

// Record is one channel's analog samples plus its two marker tracks.
// Immutable once built; New is the only constructor.
type Record struct {
	samples []float64
	marker1 []uint8
	marker2 []uint8
}

// New validates and builds a Record. Samples must lie in [-1, 1] and
// markers must be 0 or 1, all three slices the same length. The inputs
// are copied so later caller mutation can't bypass validation.
func New(samples []float64, marker1, marker2 []uint8) (*Record, error) {
	if len(marker1) != len(samples) || len(marker2) != len(samples) {
		return nil, fmt.Errorf("%w: samples=%d marker1=%d marker2=%d",
			ErrLengthMismatch, len(samples), len(marker1), len(marker2))
	}
	for i, s := range samples {
		if s < -1.0 || s > 1.0 {
			return nil, fmt.Errorf("%w: sample %d is %g", ErrOutOfRange, i, s)
		}
	}
	for i := range marker1 {
		if marker1[i] > 1 {
			return nil, fmt.Errorf("%w: marker1[%d] = %d", ErrMarkerValue, i, marker1[i])
		}
		if marker2[i] > 1 {
			return nil, fmt.Errorf("%w: marker2[%d] = %d", ErrMarkerValue, i, marker2[i])
		}
	}

	r := &Record{
		samples: make([]float64, len(samples)),
		marker1: make([]uint8, len(marker1)),
		marker2: make([]uint8, len(marker2)),
	}
	copy(r.samples, samples)
	copy(r.marker1, marker1)
	copy(r.marker2, marker2)
	return r, nil
}

// Len returns the sample count.
func (r *Record) Len() int {
	return len(r.samples)
}

// Samples returns a copy of the analog samples.
func (r *Record) Samples() []float64 {
	out := make([]float64, len(r.samples))
	copy(out, r.samples)
	return out
}

// Marker1 returns a copy of the first marker track.
func (r *Record) Marker1() []uint8 {
	out := make([]uint8, len(r.marker1))
	copy(out, r.marker1)
	return out
}

// Marker2 returns a copy of the second marker track.
func (r *Record) Marker2() []uint8 {
	out := make([]uint8, len(r.marker2))
	copy(out, r.marker2)
	return out
}

// Name returns the content-addressed waveform name. The device stores
// waveforms by name, so identical content always resolves to the same
// stored record.
func (r *Record) Name() string {
	h := sha256.New()
	var buf [8]byte
	for i := range r.samples {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r.samples[i]))
		h.Write(buf[:8])
		h.Write([]byte{r.marker1[i], r.marker2[i]})
	}
	return fmt.Sprintf("wfm_%x", h.Sum(nil)[:5])
}

// Equal reports whether two records carry identical content.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := range r.samples {
		if r.samples[i] != o.samples[i] ||
			r.marker1[i] != o.marker1[i] ||
			r.marker2[i] != o.marker2[i] {
			return false
		}
	}
	return true
}
