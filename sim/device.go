package sim

import (
	"errors"
	"fmt"
	"sync"

	"awgctl/container"
	"awgctl/debug"
	"awgctl/sequence"
	"awgctl/waveform"
)

var (
	ErrNoSequence  = errors.New("no sequence loaded")
	ErrNoContainer = errors.New("no such container on device")
)

// Device is an in-memory instrument implementing sequencer.Session.
// It stores uploaded waveforms by name, decodes uploaded containers,
// and advances playback with the table transition function, so the TUI
// and tests run the full workflow without hardware. A mutex guards the
// state because the TUI ticker and key handlers call in from different
// goroutines.
type Device struct {
	mu sync.Mutex

	waveforms  map[string]*waveform.Record
	containers map[string][]byte

	elements []sequence.Element
	running  bool
	position int

	// Latched external signals, consumed by the next Step.
	trigger bool
	event   bool
}

// NewDevice creates an empty simulated instrument.
func NewDevice() *Device {
	return &Device{
		waveforms:  make(map[string]*waveform.Record),
		containers: make(map[string][]byte),
		position:   1,
	}
}

// sequencer.Session implementation

// SendContainer stores the container bytes under the given name,
// unparsed, as the real device's file transfer would.
func (d *Device) SendContainer(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.containers[name] = append([]byte(nil), data...)
	debug.Log("sim", "received container %s (%d bytes)", name, len(data))
	return nil
}

// LoadContainer decodes a previously sent container and makes its
// sequence current. Playback stops and the position resets.
func (d *Device) LoadContainer(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, ok := d.containers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoContainer, name)
	}
	c, err := container.Decode(data)
	if err != nil {
		return err
	}
	for wname, rec := range c.Records {
		d.waveforms[wname] = rec
	}
	d.elements = c.Table.Elements()
	d.running = false
	d.position = 1
	debug.Log("sim", "loaded container %s: %d elements", name, len(d.elements))
	return nil
}

// SendWaveform validates and stores one named waveform.
func (d *Device) SendWaveform(name string, samples []float64, marker1, marker2 []uint8) error {
	rec, err := waveform.New(samples, marker1, marker2)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waveforms[name] = rec
	return nil
}

// SetSequenceLength resizes the sequence to n default elements.
func (d *Device) SetSequenceLength(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: length %d", sequence.ErrEmptyTable, n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = make([]sequence.Element, n)
	for i := range d.elements {
		d.elements[i].Repeat = 1
	}
	d.position = 1
	return nil
}

// SetElement programs one sequence position.
func (d *Device) SetElement(index int, el sequence.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 1 || index > len(d.elements) {
		return fmt.Errorf("%w: %d (sequence length %d)", sequence.ErrInvalidPosition, index, len(d.elements))
	}
	for _, name := range el.Waveforms {
		if _, ok := d.waveforms[name]; !ok {
			return fmt.Errorf("%w: %s", container.ErrUnknownReference, name)
		}
	}
	d.elements[index-1] = el
	return nil
}

// Run starts playback.
func (d *Device) Run() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.elements) == 0 {
		return ErrNoSequence
	}
	d.running = true
	return nil
}

// Stop halts playback.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

// Position returns the current element.
func (d *Device) Position() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.elements) == 0 {
		return 0, ErrNoSequence
	}
	return d.position, nil
}

// SetPosition forces the sequencer to element index.
func (d *Device) SetPosition(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 1 || index > len(d.elements) {
		return fmt.Errorf("%w: %d (sequence length %d)", sequence.ErrInvalidPosition, index, len(d.elements))
	}
	d.position = index
	return nil
}

// Simulation controls (not part of the session interface)

// Trigger latches an external trigger for the next Step.
func (d *Device) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trigger = true
}

// Event latches an external event signal for the next Step.
func (d *Device) Event() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event = true
}

// Running reports playback state.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Step advances playback by one element transition, consuming any
// latched trigger/event. Stopped devices don't move.
func (d *Device) Step() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return d.position, nil
	}
	table, err := sequence.Build(d.elements)
	if err != nil {
		return 0, err
	}
	next, err := table.NextPosition(d.position, d.trigger, d.event)
	if err != nil {
		return 0, err
	}
	d.trigger = false
	d.event = false
	d.position = next
	return next, nil
}

// Waveform looks up a stored waveform by name.
func (d *Device) Waveform(name string) (*waveform.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.waveforms[name]
	return rec, ok
}

// SequenceLength returns the programmed element count.
func (d *Device) SequenceLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.elements)
}
