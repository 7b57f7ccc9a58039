package container

import "fmt"

// ValueKind tags the scalar type of a settings value.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a tagged scalar. Settings are opaque to the codec: unknown
// keys survive a decode-reencode cycle untouched.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }

// Display renders the value for UI and CLI listings.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	}
	return "?"
}

// Settings is the auxiliary instrument configuration carried alongside
// the sequence. String key to scalar value, no schema.
type Settings map[string]Value

func (s Settings) clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether two settings maps carry identical entries.
func (s Settings) Equal(o Settings) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		if o[k] != v {
			return false
		}
	}
	return true
}
