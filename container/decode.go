package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"awgctl/sequence"
	"awgctl/waveform"
)

// Decode parses a container byte stream back into the exact records,
// table, and settings that produced it. Structural damage returns
// ErrMalformed, a bad trailer ErrChecksum, and a sequence entry
// pointing outside the waveform block ErrUnknownReference. A failed
// decode returns nothing usable.
func Decode(data []byte) (*Container, error) {
	if len(data) < len(magic)+2+2+4+4+4 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformed, len(data))
	}

	// Verify the trailer before trusting any field.
	body := data[:len(data)-4]
	want := binary.LittleEndian.Uint32(data[len(data)-4:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, fmt.Errorf("%w: have %08x, trailer says %08x", ErrChecksum, got, want)
	}

	r := &reader{data: body}
	if tag := r.bytes(4); string(tag) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, tag)
	}
	if v := r.u16(); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}

	channelCount := int(r.u16())
	elementCount := int(r.u32())
	sampleLen := int(r.u32())
	// The counts must at least fit in the body, or a damaged header
	// would drive huge allocations below.
	if elementCount > len(body) || sampleLen > len(body) {
		return nil, fmt.Errorf("%w: header claims %d elements of %d samples in %d bytes",
			ErrMalformed, elementCount, sampleLen, len(body))
	}
	channels := make([]int, channelCount)
	for i := range channels {
		channels[i] = int(r.u16())
	}

	if tag := r.bytes(4); string(tag) != tagWaveforms {
		return nil, fmt.Errorf("%w: expected waveform block, found %q", ErrMalformed, tag)
	}
	recordCount := int(r.u32())
	if recordCount > len(body) {
		return nil, fmt.Errorf("%w: waveform block claims %d records", ErrMalformed, recordCount)
	}
	names := make([]string, recordCount)
	records := make(map[string]*waveform.Record, recordCount)
	for i := 0; i < recordCount; i++ {
		name := string(r.bytes(int(r.u16())))
		samples := make([]float64, sampleLen)
		for j := range samples {
			samples[j] = math.Float64frombits(r.u64())
		}
		markers := r.bytes(sampleLen)
		if r.failed {
			return nil, fmt.Errorf("%w: truncated waveform block", ErrMalformed)
		}
		m1 := make([]uint8, sampleLen)
		m2 := make([]uint8, sampleLen)
		for j, m := range markers {
			m1[j] = m & 1
			m2[j] = m >> 1 & 1
		}
		rec, err := waveform.New(samples, m1, m2)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrMalformed, name, err)
		}
		names[i] = name
		records[name] = rec
	}

	if tag := r.bytes(4); string(tag) != tagSequence {
		return nil, fmt.Errorf("%w: expected sequence block, found %q", ErrMalformed, tag)
	}
	elements := make([]sequence.Element, elementCount)
	for i := range elements {
		elements[i] = sequence.Element{
			Waveforms: make(map[int]string, channelCount),
			Repeat:    int(r.u32()),
		}
		flags := r.u8()
		elements[i].TriggerWait = flags&flagTriggerWait != 0
		elements[i].Goto = int(r.u16())
		elements[i].EventJump = int(r.u16())
		for _, ch := range channels {
			ref := int(r.u16())
			if r.failed {
				return nil, fmt.Errorf("%w: truncated sequence block", ErrMalformed)
			}
			if ref < 1 || ref > recordCount {
				return nil, fmt.Errorf("%w: element %d channel %d points at record %d of %d",
					ErrUnknownReference, i+1, ch, ref, recordCount)
			}
			elements[i].Waveforms[ch] = names[ref-1]
		}
	}

	if tag := r.bytes(4); string(tag) != tagSettings {
		return nil, fmt.Errorf("%w: expected settings block, found %q", ErrMalformed, tag)
	}
	settings := Settings{}
	settingCount := int(r.u32())
	for i := 0; i < settingCount; i++ {
		key := string(r.bytes(int(r.u16())))
		kind := ValueKind(r.u8())
		var v Value
		switch kind {
		case KindString:
			v = String(string(r.bytes(int(r.u16()))))
		case KindInt:
			v = Int(int64(r.u64()))
		case KindFloat:
			v = Float(math.Float64frombits(r.u64()))
		case KindBool:
			v = Bool(r.u8() == 1)
		default:
			return nil, fmt.Errorf("%w: settings key %q has unknown kind %d", ErrMalformed, key, kind)
		}
		if r.failed {
			return nil, fmt.Errorf("%w: truncated settings block", ErrMalformed)
		}
		settings[key] = v
	}

	if r.failed {
		return nil, fmt.Errorf("%w: truncated container", ErrMalformed)
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.data)-r.pos)
	}

	table, err := sequence.Build(elements)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &Container{
		Channels:  channels,
		SampleLen: sampleLen,
		Records:   records,
		Table:     table,
		Settings:  settings,
	}, nil
}

// reader walks the body with bounds checking. Once a read runs past the
// end it returns zero values and latches failed; callers check at block
// boundaries so one truncated field can't cascade into a panic.
type reader struct {
	data   []byte
	pos    int
	failed bool
}

func (r *reader) bytes(n int) []byte {
	if r.failed || n < 0 || r.pos+n > len(r.data) {
		r.failed = true
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
