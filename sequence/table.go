package sequence

import (
	"errors"
	"fmt"
)

// NoTarget is the "none" sentinel for goto and event-jump targets:
// goto 0 falls through to the natural next element, event-jump 0 means
// no event wiring.
const NoTarget = 0

// Repeat count 0 means the element loops until redirected externally.
const RepeatInfinite = 0

var (
	ErrInvalidTarget   = errors.New("sequence target out of range")
	ErrInvalidRepeat   = errors.New("invalid repeat count")
	ErrInvalidPosition = errors.New("position out of range")
	ErrEmptyTable      = errors.New("sequence table needs at least one element")
)

// Element is one sequencer position: which waveform plays on each
// channel, how often it repeats, and where playback goes next.
type Element struct {
	Waveforms   map[int]string // channel number -> waveform name
	Repeat      int            // 0 = infinite
	TriggerWait bool           // hold here until an external trigger
	Goto        int            // element after repeats complete, 0 = next
	EventJump   int            // element on external event, 0 = unwired
}

// Table is an ordered sequence of elements, positions 1..N. Index order
// is playback-position order; goto/jump wiring can reorder execution.
type Table struct {
	elements []Element
}

// Build validates the elements and returns a table. Targets must be
// NoTarget or within [1, N]; repeat counts must be non-negative
// (0 is the infinite-repeat marker, not an error).
func Build(elements []Element) (*Table, error) {
	n := len(elements)
	if n == 0 {
		return nil, ErrEmptyTable
	}
	for i, el := range elements {
		if el.Repeat < 0 {
			return nil, fmt.Errorf("%w: element %d repeat %d", ErrInvalidRepeat, i+1, el.Repeat)
		}
		if el.Goto != NoTarget && (el.Goto < 1 || el.Goto > n) {
			return nil, fmt.Errorf("%w: element %d goto %d (table length %d)",
				ErrInvalidTarget, i+1, el.Goto, n)
		}
		if el.EventJump != NoTarget && (el.EventJump < 1 || el.EventJump > n) {
			return nil, fmt.Errorf("%w: element %d event jump %d (table length %d)",
				ErrInvalidTarget, i+1, el.EventJump, n)
		}
	}

	t := &Table{elements: make([]Element, n)}
	copy(t.elements, elements)
	for i := range t.elements {
		if elements[i].Waveforms != nil {
			t.elements[i].Waveforms = make(map[int]string, len(elements[i].Waveforms))
			for ch, name := range elements[i].Waveforms {
				t.elements[i].Waveforms[ch] = name
			}
		}
	}
	return t, nil
}

// Len returns the element count N.
func (t *Table) Len() int {
	return len(t.elements)
}

// Element returns a copy of the element at 1-based position i.
func (t *Table) Element(i int) (Element, error) {
	if i < 1 || i > len(t.elements) {
		return Element{}, fmt.Errorf("%w: %d (table length %d)", ErrInvalidPosition, i, len(t.elements))
	}
	el := t.elements[i-1]
	if el.Waveforms != nil {
		m := make(map[int]string, len(el.Waveforms))
		for ch, name := range el.Waveforms {
			m[ch] = name
		}
		el.Waveforms = m
	}
	return el, nil
}

// Elements returns a copy of all elements in position order.
func (t *Table) Elements() []Element {
	out := make([]Element, len(t.elements))
	for i := range t.elements {
		el, _ := t.Element(i + 1)
		out[i] = el
	}
	return out
}

// SetInfinite forces element i to loop until redirected.
func (t *Table) SetInfinite(i int) error {
	if i < 1 || i > len(t.elements) {
		return fmt.Errorf("%w: %d (table length %d)", ErrInvalidPosition, i, len(t.elements))
	}
	t.elements[i-1].Repeat = RepeatInfinite
	return nil
}

// SetElement replaces the element at 1-based position i, applying the
// same target validation as Build. Used by the incremental,
// element-by-element construction path.
func (t *Table) SetElement(i int, el Element) error {
	n := len(t.elements)
	if i < 1 || i > n {
		return fmt.Errorf("%w: %d (table length %d)", ErrInvalidPosition, i, n)
	}
	if el.Repeat < 0 {
		return fmt.Errorf("%w: element %d repeat %d", ErrInvalidRepeat, i, el.Repeat)
	}
	if el.Goto != NoTarget && (el.Goto < 1 || el.Goto > n) {
		return fmt.Errorf("%w: element %d goto %d (table length %d)", ErrInvalidTarget, i, el.Goto, n)
	}
	if el.EventJump != NoTarget && (el.EventJump < 1 || el.EventJump > n) {
		return fmt.Errorf("%w: element %d event jump %d (table length %d)", ErrInvalidTarget, i, el.EventJump, n)
	}
	if el.Waveforms != nil {
		m := make(map[int]string, len(el.Waveforms))
		for ch, name := range el.Waveforms {
			m[ch] = name
		}
		el.Waveforms = m
	}
	t.elements[i-1] = el
	return nil
}

// SetFinite sets element i to repeat count times.
func (t *Table) SetFinite(i, count int) error {
	if i < 1 || i > len(t.elements) {
		return fmt.Errorf("%w: %d (table length %d)", ErrInvalidPosition, i, len(t.elements))
	}
	if count < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, count)
	}
	t.elements[i-1].Repeat = count
	return nil
}

// NextPosition is the playback transition function: where the sequencer
// goes from pos once the element's repeats complete. An event takes the
// event-jump target when wired. Otherwise an infinite element never
// advances on its own. Otherwise the goto target applies when set, else
// the natural next position (wrapping N back to 1). A destination that
// waits on a trigger holds the current position until triggered is true.
func (t *Table) NextPosition(pos int, triggered, event bool) (int, error) {
	n := len(t.elements)
	if pos < 1 || pos > n {
		return 0, fmt.Errorf("%w: %d (table length %d)", ErrInvalidPosition, pos, n)
	}
	el := t.elements[pos-1]

	if event && el.EventJump != NoTarget {
		return t.gate(pos, el.EventJump, triggered), nil
	}
	if el.Repeat == RepeatInfinite {
		return pos, nil
	}
	next := el.Goto
	if next == NoTarget {
		next = pos + 1
		if next > n {
			next = 1
		}
	}
	return t.gate(pos, next, triggered), nil
}

// gate holds at pos when the destination waits on a missing trigger.
func (t *Table) gate(pos, dest int, triggered bool) int {
	if t.elements[dest-1].TriggerWait && !triggered {
		return pos
	}
	return dest
}
