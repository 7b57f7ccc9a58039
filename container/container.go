package container

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"awgctl/sequence"
	"awgctl/waveform"
)

var (
	ErrShapeMismatch    = errors.New("input arrays disagree in shape")
	ErrMalformed        = errors.New("malformed container")
	ErrChecksum         = errors.New("container checksum mismatch")
	ErrUnknownReference = errors.New("sequence references unknown waveform")
)

// Container bundles everything the device needs for one sequence run:
// the channel set, the deduplicated waveform records, the sequence
// table, and the opaque instrument settings. It owns its records and
// table exclusively; decode never aliases caller data.
type Container struct {
	Channels  []int
	SampleLen int
	Records   map[string]*waveform.Record
	Table     *sequence.Table
	Settings  Settings
}

// BuildInput is the raw construction shape: outer index channel, inner
// index sequence position, plus four parallel per-position arrays.
type BuildInput struct {
	Channels     []int         // channel numbers, parallel to Samples
	Samples      [][][]float64 // [channel][element][sample]
	Marker1      [][][]uint8   // same shape as Samples
	Marker2      [][][]uint8   // same shape as Samples
	Repeats      []int         // per element, 0 = infinite
	TriggerWaits []bool        // per element
	Gotos        []int         // per element, 0 = natural next
	EventJumps   []int         // per element, 0 = unwired
	Settings     Settings
}

// Build validates the input shape, validates every waveform, and
// assembles a container. Identical waveform content collapses to a
// single stored record; elements reference records by name. No partial
// container is ever produced: the first validation failure aborts.
func Build(in BuildInput) (*Container, error) {
	if len(in.Samples) != len(in.Channels) ||
		len(in.Marker1) != len(in.Channels) ||
		len(in.Marker2) != len(in.Channels) {
		return nil, fmt.Errorf("%w: %d channels but %d/%d/%d waveform lists",
			ErrShapeMismatch, len(in.Channels), len(in.Samples), len(in.Marker1), len(in.Marker2))
	}
	if len(in.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrShapeMismatch)
	}
	for _, ch := range in.Channels {
		if ch < 0 || ch > math.MaxUint16 {
			return nil, fmt.Errorf("%w: channel number %d does not fit the wire format",
				ErrShapeMismatch, ch)
		}
	}

	n := len(in.Repeats)
	if len(in.TriggerWaits) != n || len(in.Gotos) != n || len(in.EventJumps) != n {
		return nil, fmt.Errorf("%w: sequencing arrays %d/%d/%d/%d",
			ErrShapeMismatch, n, len(in.TriggerWaits), len(in.Gotos), len(in.EventJumps))
	}
	for ci := range in.Channels {
		if len(in.Samples[ci]) != n || len(in.Marker1[ci]) != n || len(in.Marker2[ci]) != n {
			return nil, fmt.Errorf("%w: channel %d has %d waveforms for %d elements",
				ErrShapeMismatch, in.Channels[ci], len(in.Samples[ci]), n)
		}
	}

	// Validate and deduplicate records, establishing L from the first.
	records := make(map[string]*waveform.Record)
	sampleLen := -1
	elements := make([]sequence.Element, n)
	for ei := 0; ei < n; ei++ {
		elements[ei] = sequence.Element{
			Waveforms:   make(map[int]string, len(in.Channels)),
			Repeat:      in.Repeats[ei],
			TriggerWait: in.TriggerWaits[ei],
			Goto:        in.Gotos[ei],
			EventJump:   in.EventJumps[ei],
		}
		for ci, ch := range in.Channels {
			rec, err := waveform.New(in.Samples[ci][ei], in.Marker1[ci][ei], in.Marker2[ci][ei])
			if err != nil {
				return nil, fmt.Errorf("channel %d element %d: %w", ch, ei+1, err)
			}
			if sampleLen == -1 {
				sampleLen = rec.Len()
			} else if rec.Len() != sampleLen {
				return nil, fmt.Errorf("%w: channel %d element %d has %d samples, want %d",
					ErrShapeMismatch, ch, ei+1, rec.Len(), sampleLen)
			}
			name := rec.Name()
			if _, ok := records[name]; !ok {
				records[name] = rec
			}
			elements[ei].Waveforms[ch] = name
		}
	}

	table, err := sequence.Build(elements)
	if err != nil {
		return nil, err
	}

	settings := in.Settings
	if settings == nil {
		settings = Settings{}
	}

	c := &Container{
		Channels:  append([]int(nil), in.Channels...),
		SampleLen: sampleLen,
		Records:   records,
		Table:     table,
		Settings:  settings.clone(),
	}
	return c, nil
}

// ElementRecord resolves the waveform assigned to a channel at a
// 1-based sequence position.
func (c *Container) ElementRecord(channel, element int) (*waveform.Record, error) {
	el, err := c.Table.Element(element)
	if err != nil {
		return nil, err
	}
	name, ok := el.Waveforms[channel]
	if !ok {
		return nil, fmt.Errorf("%w: no waveform on channel %d at element %d",
			ErrUnknownReference, channel, element)
	}
	rec, ok := c.Records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, name)
	}
	return rec, nil
}

// recordNames returns the stored record names in stable (sorted) order.
// Encode and the device upload path both rely on this order.
func (c *Container) recordNames() []string {
	names := make([]string, 0, len(c.Records))
	for name := range c.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
