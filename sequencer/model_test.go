package sequencer

import (
	"errors"
	"fmt"
	"testing"

	"awgctl/container"
	"awgctl/sequence"
	"awgctl/waveform"
)

var errTransport = errors.New("transport failure")

// fakeSession records every command in order and can fail on demand.
type fakeSession struct {
	calls  []string
	failOn string
}

func (f *fakeSession) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && len(call) >= len(f.failOn) && call[:len(f.failOn)] == f.failOn {
		return errTransport
	}
	return nil
}

func (f *fakeSession) SendContainer(name string, data []byte) error {
	return f.record(fmt.Sprintf("send-container %s %d", name, len(data)))
}
func (f *fakeSession) LoadContainer(name string) error {
	return f.record("load-container " + name)
}
func (f *fakeSession) SendWaveform(name string, samples []float64, m1, m2 []uint8) error {
	return f.record(fmt.Sprintf("send-waveform %s %d", name, len(samples)))
}
func (f *fakeSession) SetSequenceLength(n int) error {
	return f.record(fmt.Sprintf("set-length %d", n))
}
func (f *fakeSession) SetElement(index int, el sequence.Element) error {
	return f.record(fmt.Sprintf("set-element %d repeat=%d", index, el.Repeat))
}
func (f *fakeSession) Run() error  { return f.record("run") }
func (f *fakeSession) Stop() error { return f.record("stop") }
func (f *fakeSession) Position() (int, error) {
	f.record("position")
	return 1, nil
}
func (f *fakeSession) SetPosition(index int) error {
	return f.record(fmt.Sprintf("set-position %d", index))
}

func testModel(t *testing.T, repeats []int) (*Model, *fakeSession) {
	t.Helper()
	rec, err := waveform.New([]float64{0, 0.5, -0.5}, []uint8{1, 0, 0}, []uint8{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	name := rec.Name()
	els := make([]sequence.Element, len(repeats))
	for i := range els {
		els[i] = sequence.Element{
			Waveforms: map[int]string{1: name},
			Repeat:    repeats[i],
		}
	}
	tbl, err := sequence.Build(els)
	if err != nil {
		t.Fatal(err)
	}
	session := &fakeSession{}
	return New(session, tbl, map[string]*waveform.Record{name: rec}), session
}

func TestRunStopIdempotent(t *testing.T) {
	m, s := testModel(t, []int{1, 1})

	if m.State() != Stopped {
		t.Fatalf("initial state %v", m.State())
	}
	if err := m.Run(); err != nil || m.State() != Running {
		t.Fatalf("Run: %v %v", err, m.State())
	}
	if err := m.Run(); err != nil {
		t.Fatalf("repeat Run: %v", err)
	}
	if err := m.Stop(); err != nil || m.State() != Stopped {
		t.Fatalf("Stop: %v %v", err, m.State())
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("repeat Stop: %v", err)
	}

	want := []string{"set-position 1", "run", "stop"}
	if len(s.calls) != len(want) {
		t.Fatalf("calls: %v", s.calls)
	}
	for i, w := range want {
		if s.calls[i] != w {
			t.Fatalf("call %d: %q, want %q", i, s.calls[i], w)
		}
	}
}

func TestSetPositionWhileStopped(t *testing.T) {
	m, s := testModel(t, []int{1, 1, 1, 1})

	// Stopped: remembered but not sent until Run
	if err := m.SetPosition(3); err != nil {
		t.Fatal(err)
	}
	if len(s.calls) != 0 {
		t.Fatalf("stopped SetPosition sent commands: %v", s.calls)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if s.calls[0] != "set-position 3" {
		t.Fatalf("Run did not apply pending position: %v", s.calls)
	}

	// Running: sent immediately, independent of goto wiring
	if err := m.SetPosition(2); err != nil {
		t.Fatal(err)
	}
	if s.calls[len(s.calls)-1] != "set-position 2" {
		t.Fatalf("running SetPosition: %v", s.calls)
	}
	if m.Position() != 2 {
		t.Fatalf("position: %d", m.Position())
	}
}

func TestSetPositionOutOfRange(t *testing.T) {
	m, s := testModel(t, []int{1, 1, 1, 1})

	err := m.SetPosition(5)
	if !errors.Is(err, sequence.ErrInvalidPosition) {
		t.Fatalf("got %v", err)
	}
	if len(s.calls) != 0 {
		t.Fatalf("invalid position reached the session: %v", s.calls)
	}
	if err := m.SetPosition(0); !errors.Is(err, sequence.ErrInvalidPosition) {
		t.Fatalf("got %v", err)
	}
}

func TestLazyMode(t *testing.T) {
	m, s := testModel(t, []int{2, 0, 5})

	if err := m.EnterLazyMode(); err != nil {
		t.Fatal(err)
	}
	if !m.InLazyMode() {
		t.Fatal("not in lazy mode")
	}
	for i := 1; i <= 3; i++ {
		el, _ := m.Table().Element(i)
		if el.Repeat != sequence.RepeatInfinite {
			t.Fatalf("element %d repeat %d after enter", i, el.Repeat)
		}
	}
	pushed := len(s.calls)
	if pushed != 3 {
		t.Fatalf("expected 3 element pushes, got %v", s.calls)
	}

	// Re-entering is a no-op
	if err := m.EnterLazyMode(); err != nil || len(s.calls) != pushed {
		t.Fatalf("re-enter pushed again: %v", s.calls)
	}

	if err := m.ExitLazyMode(); err != nil {
		t.Fatal(err)
	}
	if m.InLazyMode() {
		t.Fatal("still lazy after exit")
	}
	for i, want := range []int{2, 0, 5} {
		el, _ := m.Table().Element(i + 1)
		if el.Repeat != want {
			t.Fatalf("element %d repeat %d after exit, want %d", i+1, el.Repeat, want)
		}
	}
}

func TestLazyModeEnterFailure(t *testing.T) {
	m, s := testModel(t, []int{5, 3, 1})
	s.failOn = "set-element 2"

	if err := m.EnterLazyMode(); !errors.Is(err, errTransport) {
		t.Fatalf("got %v", err)
	}
	// The failed enter must stay recoverable: the snapshot is kept even
	// though only some elements were forced to infinite.
	if !m.InLazyMode() {
		t.Fatal("failed enter dropped the snapshot")
	}

	s.failOn = ""
	if err := m.ExitLazyMode(); err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{5, 3, 1} {
		el, _ := m.Table().Element(i + 1)
		if el.Repeat != want {
			t.Fatalf("element %d repeat %d after recovery, want %d", i+1, el.Repeat, want)
		}
	}
}

func TestRepeatMutatorsPush(t *testing.T) {
	m, s := testModel(t, []int{1, 1})

	if err := m.SetFinite(2, 7); err != nil {
		t.Fatal(err)
	}
	if s.calls[len(s.calls)-1] != "set-element 2 repeat=7" {
		t.Fatalf("SetFinite push: %v", s.calls)
	}
	if err := m.SetInfinite(1); err != nil {
		t.Fatal(err)
	}
	if s.calls[len(s.calls)-1] != "set-element 1 repeat=0" {
		t.Fatalf("SetInfinite push: %v", s.calls)
	}
	if err := m.SetFinite(9, 1); !errors.Is(err, sequence.ErrInvalidPosition) {
		t.Fatalf("got %v", err)
	}
}

func TestUploadElements(t *testing.T) {
	m, s := testModel(t, []int{1, 1, 1})

	if err := m.UploadElements(); err != nil {
		t.Fatal(err)
	}
	// One deduplicated waveform, then length, then three elements
	if len(s.calls) != 5 {
		t.Fatalf("calls: %v", s.calls)
	}
	if s.calls[0][:13] != "send-waveform" || s.calls[1] != "set-length 3" {
		t.Fatalf("order: %v", s.calls)
	}
	for i := 0; i < 3; i++ {
		want := fmt.Sprintf("set-element %d repeat=1", i+1)
		if s.calls[2+i] != want {
			t.Fatalf("call %d: %q, want %q", 2+i, s.calls[2+i], want)
		}
	}
}

func TestUploadContainer(t *testing.T) {
	in := container.BuildInput{
		Channels:     []int{1},
		Samples:      [][][]float64{{{0, 0.5}, {0.5, 0}}},
		Marker1:      [][][]uint8{{{0, 0}, {1, 0}}},
		Marker2:      [][][]uint8{{{0, 1}, {0, 0}}},
		Repeats:      []int{1, 0},
		TriggerWaits: []bool{false, true},
		Gotos:        []int{0, 1},
		EventJumps:   []int{0, 0},
	}
	c, err := container.Build(in)
	if err != nil {
		t.Fatal(err)
	}

	s := &fakeSession{}
	m := FromContainer(s, c)
	if err := m.UploadContainer(c, "test.awgc"); err != nil {
		t.Fatal(err)
	}
	if len(s.calls) != 2 || s.calls[1] != "load-container test.awgc" {
		t.Fatalf("calls: %v", s.calls)
	}

	// Transport failure propagates and stops the workflow
	s2 := &fakeSession{failOn: "send-container"}
	m2 := FromContainer(s2, c)
	if err := m2.UploadContainer(c, "x"); !errors.Is(err, errTransport) {
		t.Fatalf("got %v", err)
	}
	if len(s2.calls) != 1 {
		t.Fatalf("load attempted after failed send: %v", s2.calls)
	}
}
