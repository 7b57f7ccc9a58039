package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"sort"
)

// Container byte layout, all fields little-endian:
//
//	"AWGC"  magic
//	uint16  format version
//	uint16  channel count C
//	uint32  element count N
//	uint32  sample length L
//	C x uint16 channel numbers
//	"WFM "  record block tag
//	uint32  record count R
//	R x { uint16 name length, name, L x float64 samples,
//	      L x uint8 markers (marker1 bit 0, marker2 bit 1) }
//	"SEQ "  sequence block tag
//	N x { uint32 repeat, uint8 flags (trigger-wait bit 0),
//	      uint16 goto, uint16 event jump,
//	      C x uint16 1-based record index, channel-list order }
//	"SET "  settings block tag
//	uint32  entry count, entries sorted by key
//	{ uint16 key length, key, uint8 kind, value }
//	uint32  CRC-32 (IEEE) of every preceding byte
//
// Samples are stored as raw float64 bits, so decode reproduces encode
// input exactly. Goto/jump use 0 as the none sentinel on the wire, same
// as in memory.

const (
	magic         = "AWGC"
	formatVersion = 1

	tagWaveforms = "WFM "
	tagSequence  = "SEQ "
	tagSettings  = "SET "

	flagTriggerWait = 1 << 0
)

// Encode serializes the container. Output is deterministic: records in
// sorted name order, settings in sorted key order.
func (c *Container) Encode() ([]byte, error) {
	// Every field must fit its wire width; a value that would truncate
	// is an error, never a silent clamp.
	if len(c.Channels) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d channels", ErrShapeMismatch, len(c.Channels))
	}
	for _, ch := range c.Channels {
		if ch < 0 || ch > math.MaxUint16 {
			return nil, fmt.Errorf("%w: channel number %d does not fit the wire format",
				ErrShapeMismatch, ch)
		}
	}
	if uint64(c.Table.Len()) > math.MaxUint32 || uint64(c.SampleLen) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d elements of %d samples",
			ErrShapeMismatch, c.Table.Len(), c.SampleLen)
	}
	if len(c.Records) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d waveform records", ErrShapeMismatch, len(c.Records))
	}

	var buf bytes.Buffer

	buf.WriteString(magic)
	writeU16(&buf, formatVersion)
	writeU16(&buf, uint16(len(c.Channels)))
	writeU32(&buf, uint32(c.Table.Len()))
	writeU32(&buf, uint32(c.SampleLen))
	for _, ch := range c.Channels {
		writeU16(&buf, uint16(ch))
	}

	// Waveform block, with a name -> 1-based index map for the
	// sequence block to reference.
	names := c.recordNames()
	index := make(map[string]uint16, len(names))
	buf.WriteString(tagWaveforms)
	writeU32(&buf, uint32(len(names)))
	for i, name := range names {
		index[name] = uint16(i + 1)
		rec := c.Records[name]
		if rec.Len() != c.SampleLen {
			return nil, fmt.Errorf("%w: record %s has %d samples, container wants %d",
				ErrShapeMismatch, name, rec.Len(), c.SampleLen)
		}
		if len(name) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: record name %d bytes long", ErrShapeMismatch, len(name))
		}
		writeU16(&buf, uint16(len(name)))
		buf.WriteString(name)
		for _, s := range rec.Samples() {
			writeU64(&buf, math.Float64bits(s))
		}
		m1, m2 := rec.Marker1(), rec.Marker2()
		for j := range m1 {
			buf.WriteByte(m1[j] | m2[j]<<1)
		}
	}

	buf.WriteString(tagSequence)
	for pos := 1; pos <= c.Table.Len(); pos++ {
		el, err := c.Table.Element(pos)
		if err != nil {
			return nil, err
		}
		if uint64(el.Repeat) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: element %d repeat %d", ErrShapeMismatch, pos, el.Repeat)
		}
		if el.Goto > math.MaxUint16 || el.EventJump > math.MaxUint16 {
			return nil, fmt.Errorf("%w: element %d targets %d/%d",
				ErrShapeMismatch, pos, el.Goto, el.EventJump)
		}
		writeU32(&buf, uint32(el.Repeat))
		var flags uint8
		if el.TriggerWait {
			flags |= flagTriggerWait
		}
		buf.WriteByte(flags)
		writeU16(&buf, uint16(el.Goto))
		writeU16(&buf, uint16(el.EventJump))
		for _, ch := range c.Channels {
			name, ok := el.Waveforms[ch]
			if !ok {
				return nil, fmt.Errorf("%w: no waveform on channel %d at element %d",
					ErrUnknownReference, ch, pos)
			}
			ref, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownReference, name)
			}
			writeU16(&buf, ref)
		}
	}

	buf.WriteString(tagSettings)
	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeU32(&buf, uint32(len(keys)))
	for _, k := range keys {
		v := c.Settings[k]
		writeU16(&buf, uint16(len(k)))
		buf.WriteString(k)
		buf.WriteByte(byte(v.Kind))
		switch v.Kind {
		case KindString:
			writeU16(&buf, uint16(len(v.Str)))
			buf.WriteString(v.Str)
		case KindInt:
			writeU64(&buf, uint64(v.Int))
		case KindFloat:
			writeU64(&buf, math.Float64bits(v.Float))
		case KindBool:
			if v.Bool {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		default:
			return nil, fmt.Errorf("settings key %q: unknown value kind %d", k, v.Kind)
		}
	}

	writeU32(&buf, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
