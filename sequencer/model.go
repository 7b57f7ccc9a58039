package sequencer

import (
	"fmt"
	"sort"

	"awgctl/container"
	"awgctl/debug"
	"awgctl/sequence"
	"awgctl/waveform"
)

// RunState is the device's logical playback state.
type RunState int

const (
	Stopped RunState = iota
	Running
)

func (s RunState) String() string {
	if s == Running {
		return "Running"
	}
	return "Stopped"
}

// Model mirrors the device's sequencer: the table, the run state, and
// the last commanded position, with operations that map one-to-one onto
// session commands. The physical link has no concurrent-command
// semantics, so callers apply operations one at a time, as with the
// session itself.
type Model struct {
	session Session
	table   *sequence.Table
	records map[string]*waveform.Record

	state    RunState
	position int

	// Repeat counts as they were before EnterLazyMode, nil otherwise.
	savedRepeats []int
}

// New builds a model over a validated table and the records its
// elements reference.
func New(session Session, table *sequence.Table, records map[string]*waveform.Record) *Model {
	recs := make(map[string]*waveform.Record, len(records))
	for name, rec := range records {
		recs[name] = rec
	}
	return &Model{
		session:  session,
		table:    table,
		records:  recs,
		position: 1,
	}
}

// FromContainer builds a model from a decoded (or freshly built)
// container.
func FromContainer(session Session, c *container.Container) *Model {
	return New(session, c.Table, c.Records)
}

// Table exposes the element metadata for inspection.
func (m *Model) Table() *sequence.Table {
	return m.table
}

// State returns the logical run state.
func (m *Model) State() RunState {
	return m.state
}

// Position returns the last commanded element position.
func (m *Model) Position() int {
	return m.position
}

// InLazyMode reports whether EnterLazyMode is in effect.
func (m *Model) InLazyMode() bool {
	return m.savedRepeats != nil
}

// Run starts playback. No-op when already running. The commanded
// position is pushed first so a position set while stopped takes
// effect at start.
func (m *Model) Run() error {
	if m.state == Running {
		return nil
	}
	if err := m.session.SetPosition(m.position); err != nil {
		return err
	}
	if err := m.session.Run(); err != nil {
		return err
	}
	m.state = Running
	debug.Log("sequencer", "run from element %d", m.position)
	return nil
}

// Stop halts playback. No-op when already stopped.
func (m *Model) Stop() error {
	if m.state == Stopped {
		return nil
	}
	if err := m.session.Stop(); err != nil {
		return err
	}
	m.state = Stopped
	debug.Log("sequencer", "stop")
	return nil
}

// SetPosition forces the sequencer to element i, overriding any
// goto/event wiring. While running the device jumps immediately; while
// stopped the position is remembered and applied on Run. An index
// outside [1, N] fails before any command reaches the session.
func (m *Model) SetPosition(i int) error {
	if i < 1 || i > m.table.Len() {
		return fmt.Errorf("%w: %d (table length %d)", sequence.ErrInvalidPosition, i, m.table.Len())
	}
	if m.state == Running {
		if err := m.session.SetPosition(i); err != nil {
			return err
		}
	}
	m.position = i
	return nil
}

// DevicePosition queries the device for its current element.
func (m *Model) DevicePosition() (int, error) {
	return m.session.Position()
}

// SetFinite sets one element's repeat count and pushes the updated
// element to the device.
func (m *Model) SetFinite(i, count int) error {
	if err := m.table.SetFinite(i, count); err != nil {
		return err
	}
	return m.pushElement(i)
}

// SetInfinite makes one element loop until redirected and pushes the
// updated element to the device.
func (m *Model) SetInfinite(i int) error {
	if err := m.table.SetInfinite(i); err != nil {
		return err
	}
	return m.pushElement(i)
}

// SetElement replaces one element's metadata wholesale and pushes it.
func (m *Model) SetElement(i int, el sequence.Element) error {
	if err := m.table.SetElement(i, el); err != nil {
		return err
	}
	return m.pushElement(i)
}

// EnterLazyMode forces every element to infinite repeat, so the device
// idles on whatever element it is at and moves only on SetPosition.
// The run state does not change. Prior repeat counts are snapshotted
// for ExitLazyMode.
func (m *Model) EnterLazyMode() error {
	if m.savedRepeats != nil {
		return nil
	}
	saved := make([]int, m.table.Len())
	for i := 1; i <= m.table.Len(); i++ {
		el, err := m.table.Element(i)
		if err != nil {
			return err
		}
		saved[i-1] = el.Repeat
	}
	// The snapshot must be in place before any element is mutated; a
	// push that fails mid-loop is then recoverable through ExitLazyMode.
	m.savedRepeats = saved
	for i := 1; i <= m.table.Len(); i++ {
		if err := m.table.SetInfinite(i); err != nil {
			return err
		}
		if err := m.pushElement(i); err != nil {
			return err
		}
	}
	debug.Log("sequencer", "lazy mode on (%d elements)", m.table.Len())
	return nil
}

// ExitLazyMode restores the repeat counts snapshotted by EnterLazyMode
// and pushes them to the device. No-op without a prior enter.
func (m *Model) ExitLazyMode() error {
	if m.savedRepeats == nil {
		return nil
	}
	for i := 1; i <= m.table.Len(); i++ {
		count := m.savedRepeats[i-1]
		var err error
		if count == sequence.RepeatInfinite {
			err = m.table.SetInfinite(i)
		} else {
			err = m.table.SetFinite(i, count)
		}
		if err != nil {
			return err
		}
		if err := m.pushElement(i); err != nil {
			return err
		}
	}
	m.savedRepeats = nil
	debug.Log("sequencer", "lazy mode off")
	return nil
}

// UploadContainer encodes the container, sends it to the device under
// the given name, and loads it.
func (m *Model) UploadContainer(c *container.Container, name string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := m.session.SendContainer(name, data); err != nil {
		return err
	}
	if err := m.session.LoadContainer(name); err != nil {
		return err
	}
	debug.Log("sequencer", "uploaded container %s (%d bytes)", name, len(data))
	return nil
}

// UploadElements is the per-waveform path: each distinct record goes up
// individually, then the sequence is programmed element by element.
func (m *Model) UploadElements() error {
	names := make([]string, 0, len(m.records))
	for name := range m.records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec := m.records[name]
		err := m.session.SendWaveform(name, rec.Samples(), rec.Marker1(), rec.Marker2())
		if err != nil {
			return err
		}
	}

	if err := m.session.SetSequenceLength(m.table.Len()); err != nil {
		return err
	}
	for i := 1; i <= m.table.Len(); i++ {
		if err := m.pushElement(i); err != nil {
			return err
		}
	}
	debug.Log("sequencer", "uploaded %d waveforms, %d elements", len(names), m.table.Len())
	return nil
}

// AddWaveform registers a record for the per-waveform upload path and
// returns its device name.
func (m *Model) AddWaveform(rec *waveform.Record) string {
	name := rec.Name()
	m.records[name] = rec
	return name
}

// Record looks up a registered record by name.
func (m *Model) Record(name string) (*waveform.Record, bool) {
	rec, ok := m.records[name]
	return rec, ok
}

func (m *Model) pushElement(i int) error {
	el, err := m.table.Element(i)
	if err != nil {
		return err
	}
	return m.session.SetElement(i, el)
}
