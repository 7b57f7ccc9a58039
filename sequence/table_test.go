package sequence

import (
	"errors"
	"testing"
)

func plain(n int) []Element {
	els := make([]Element, n)
	for i := range els {
		els[i].Repeat = 1
	}
	return els
}

func TestBuildValidatesTargets(t *testing.T) {
	cases := []struct {
		name string
		edit func([]Element)
		want error
	}{
		{"goto past end", func(e []Element) { e[1].Goto = 7 }, ErrInvalidTarget},
		{"goto negative", func(e []Element) { e[0].Goto = -1 }, ErrInvalidTarget},
		{"jump past end", func(e []Element) { e[3].EventJump = 5 }, ErrInvalidTarget},
		{"negative repeat", func(e []Element) { e[2].Repeat = -2 }, ErrInvalidRepeat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			els := plain(4)
			tc.edit(els)
			if _, err := Build(els); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBuildAccepts(t *testing.T) {
	els := plain(4)
	els[0].Repeat = 0 // infinite, not an error
	els[1].Goto = 4
	els[2].EventJump = 1
	els[3].Goto = NoTarget
	tbl, err := Build(els)
	if err != nil || tbl.Len() != 4 {
		t.Fatalf("Build failed: %v", err)
	}
	el, _ := tbl.Element(1)
	if el.Repeat != RepeatInfinite {
		t.Fatalf("infinite repeat not preserved: %d", el.Repeat)
	}
	if _, err := Build(nil); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("empty table accepted")
	}
}

func TestTableCopiesElements(t *testing.T) {
	els := plain(2)
	els[0].Waveforms = map[int]string{1: "a"}
	tbl, err := Build(els)
	if err != nil {
		t.Fatal(err)
	}
	els[0].Waveforms[1] = "mutated"
	els[0].Repeat = 99
	el, _ := tbl.Element(1)
	if el.Waveforms[1] != "a" || el.Repeat != 1 {
		t.Fatalf("table aliases caller elements: %+v", el)
	}
	el.Waveforms[1] = "mutated again"
	el2, _ := tbl.Element(1)
	if el2.Waveforms[1] != "a" {
		t.Fatalf("Element returns shared map")
	}
}

func TestRepeatMutators(t *testing.T) {
	tbl, _ := Build(plain(3))
	if err := tbl.SetInfinite(2); err != nil {
		t.Fatal(err)
	}
	if err := tbl.SetFinite(3, 5); err != nil {
		t.Fatal(err)
	}
	el2, _ := tbl.Element(2)
	el3, _ := tbl.Element(3)
	if el2.Repeat != RepeatInfinite || el3.Repeat != 5 {
		t.Fatalf("mutators: %d %d", el2.Repeat, el3.Repeat)
	}
	if err := tbl.SetInfinite(4); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("SetInfinite out of range: %v", err)
	}
	if err := tbl.SetFinite(1, 0); !errors.Is(err, ErrInvalidRepeat) {
		t.Fatalf("SetFinite(0) should be rejected, infinite is SetInfinite: %v", err)
	}
}

func TestSetElement(t *testing.T) {
	tbl, _ := Build(plain(3))
	el := Element{Repeat: 2, Goto: 1, EventJump: 3, Waveforms: map[int]string{1: "w"}}
	if err := tbl.SetElement(2, el); err != nil {
		t.Fatal(err)
	}
	got, _ := tbl.Element(2)
	if got.Goto != 1 || got.Waveforms[1] != "w" {
		t.Fatalf("SetElement lost data: %+v", got)
	}
	if err := tbl.SetElement(2, Element{Goto: 9}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("bad goto accepted: %v", err)
	}
	if err := tbl.SetElement(0, Element{}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("position 0 accepted: %v", err)
	}
}

func TestNextPosition(t *testing.T) {
	// 1: finite, natural next
	// 2: goto 4
	// 3: infinite
	// 4: event jump to 1, natural next wraps to 1
	els := plain(4)
	els[1].Goto = 4
	els[2].Repeat = 0
	els[3].EventJump = 1
	tbl, err := Build(els)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		pos              int
		triggered, event bool
		want             int
	}{
		{1, false, false, 2}, // natural next
		{2, false, false, 4}, // goto
		{3, false, false, 3}, // infinite holds
		{4, false, false, 1}, // wrap
		{4, false, true, 1},  // event jump
		{3, false, true, 3},  // event with no wiring: still holds
	}
	for _, tc := range cases {
		got, err := tbl.NextPosition(tc.pos, tc.triggered, tc.event)
		if err != nil || got != tc.want {
			t.Fatalf("NextPosition(%d,%t,%t) = %d, %v; want %d",
				tc.pos, tc.triggered, tc.event, got, err, tc.want)
		}
	}

	if _, err := tbl.NextPosition(5, false, false); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("position past end accepted: %v", err)
	}
}

func TestNextPositionTriggerGate(t *testing.T) {
	els := plain(3)
	els[1].TriggerWait = true
	tbl, _ := Build(els)

	// Moving 1 -> 2 requires a trigger; without one playback holds at 1
	if got, _ := tbl.NextPosition(1, false, false); got != 1 {
		t.Fatalf("advanced into trigger-wait element without trigger: %d", got)
	}
	if got, _ := tbl.NextPosition(1, true, false); got != 2 {
		t.Fatalf("trigger did not release the gate: %d", got)
	}
}
