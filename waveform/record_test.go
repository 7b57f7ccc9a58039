package waveform

import (
	"errors"
	"math"
	"testing"
)

func flat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func zeros(n int) []uint8 { return make([]uint8, n) }

func TestNewValid(t *testing.T) {
	r, err := New([]float64{-1, -0.5, 0, 0.5, 1}, []uint8{0, 1, 0, 1, 0}, []uint8{1, 1, 0, 0, 1})
	if err != nil || r.Len() != 5 {
		t.Fatalf("New failed: %v", err)
	}
}

func TestNewRejects(t *testing.T) {
	cases := []struct {
		name    string
		samples []float64
		m1, m2  []uint8
		want    error
	}{
		{"sample above range", []float64{0, 1.5, 0}, zeros(3), zeros(3), ErrOutOfRange},
		{"sample below range", []float64{-1.0001, 0, 0}, zeros(3), zeros(3), ErrOutOfRange},
		{"marker1 not binary", flat(0, 3), []uint8{0, 2, 0}, zeros(3), ErrMarkerValue},
		{"marker2 not binary", flat(0, 3), zeros(3), []uint8{0, 0, 255}, ErrMarkerValue},
		{"marker1 short", flat(0, 3), zeros(2), zeros(3), ErrLengthMismatch},
		{"marker2 long", flat(0, 3), zeros(3), zeros(4), ErrLengthMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.samples, tc.m1, tc.m2); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRecordCopiesInputs(t *testing.T) {
	samples := []float64{0, 0.5}
	m1 := []uint8{1, 0}
	r, err := New(samples, m1, zeros(2))
	if err != nil {
		t.Fatal(err)
	}
	samples[0] = 99 // would be out of range if shared
	m1[0] = 7
	if got := r.Samples(); got[0] != 0 {
		t.Fatalf("record aliases caller samples: %v", got)
	}
	if got := r.Marker1(); got[0] != 1 {
		t.Fatalf("record aliases caller markers: %v", got)
	}
}

func TestNameContentAddressed(t *testing.T) {
	a, _ := New([]float64{0.25, -0.25}, []uint8{1, 0}, []uint8{0, 1})
	b, _ := New([]float64{0.25, -0.25}, []uint8{1, 0}, []uint8{0, 1})
	c, _ := New([]float64{0.25, -0.25}, []uint8{1, 1}, []uint8{0, 1})
	if a.Name() != b.Name() {
		t.Fatalf("identical content, different names: %s vs %s", a.Name(), b.Name())
	}
	if a.Name() == c.Name() {
		t.Fatalf("different content, same name: %s", a.Name())
	}
	if !a.Equal(b) || a.Equal(c) {
		t.Fatalf("Equal disagrees with content")
	}
}

func TestDeviceWords(t *testing.T) {
	r, err := New([]float64{-1, 0, 1}, []uint8{1, 0, 0}, []uint8{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	words := r.DeviceWords()

	// -1 -> 0, 0 -> midpoint, +1 -> 16383; markers land in bits 14/15
	if words[0]&analogMax != 0 {
		t.Fatalf("-1 packed to %d, want 0", words[0]&analogMax)
	}
	if words[2]&analogMax != analogMax {
		t.Fatalf("+1 packed to %d, want %d", words[2]&analogMax, analogMax)
	}
	if words[0]&marker1Bit == 0 || words[0]&marker2Bit != 0 {
		t.Fatalf("marker bits wrong in %04x", words[0])
	}
	if words[2]&marker2Bit == 0 {
		t.Fatalf("marker2 bit missing in %04x", words[2])
	}

	samples, m1, m2 := FromDeviceWords(words)
	if samples[0] != -1 || samples[2] != 1 {
		t.Fatalf("unpack endpoints: %v", samples)
	}
	if math.Abs(samples[1]) > 1.0/analogMax {
		t.Fatalf("unpack midpoint off the 14-bit grid: %g", samples[1])
	}
	if m1[0] != 1 || m2[2] != 1 || m1[1] != 0 {
		t.Fatalf("unpack markers: %v %v", m1, m2)
	}
}

func TestDeviceWordsQuantize(t *testing.T) {
	// Arbitrary floats land on the nearest 14-bit level, within half a step
	r, _ := New([]float64{0.1234, -0.9876}, zeros(2), zeros(2))
	samples, _, _ := FromDeviceWords(r.DeviceWords())
	step := 2.0 / analogMax
	for i, orig := range []float64{0.1234, -0.9876} {
		if math.Abs(samples[i]-orig) > step/2+1e-12 {
			t.Fatalf("sample %d: %g quantized to %g", i, orig, samples[i])
		}
	}
}
