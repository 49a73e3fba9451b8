// Package roscodec generates, from a resolved rosmsg schema, a reader, a
// writer, and a size calculator that walk the ROS binary wire format
// (spec.md §4.7). Rather than emitting Go source at runtime, Compile builds a
// tree of compiled field descriptors once per schema; Read/Write/Size then
// walk that tree per message, avoiding re-parsing the schema text on every
// call (spec.md §9, "a bytecode walker... built during schema analysis").
//
// Freezing a decoded Message covers the whole value graph of nested
// *Message values, including those inside []interface{} arrays, but not the
// backing array of a []byte/[]int8 zero-copy view: those stay ordinary
// mutable slices aliasing the decode buffer.
package roscodec

import (
	"errors"
)

// ErrFrozen is returned by Message.Set when the message was decoded with
// ReadOptions.Freeze (spec.md §4.7 "Freeze option").
var ErrFrozen = errors.New("roscodec: message is frozen")

// Time is the wire-equivalent of ROS's builtin time message-field primitive:
// two u32 fields (spec.md §3). It is a distinct type from the rosbag
// package's record-header Time so that this package has no dependency on
// the façade package (record headers and message-body fields both use the
// same 8-byte wire shape, but are otherwise unrelated).
type Time struct {
	Sec  uint32
	Nsec uint32
}

// Duration is the wire-equivalent of ROS's duration primitive: two u32
// fields, identical in shape to Time but kept as a distinct Go type so a
// decoded value's dynamic type tells a caller which field flavor it read
// (spec.md §3, "time/duration are wire-equivalent to two u32").
type Duration struct {
	Sec  uint32
	Nsec uint32
}

// Message is a decoded (or to-be-encoded) value shaped per a schema's root
// or a nested complex definition. Field values are plain Go values:
// primitives in their natural Go type, Time/Duration for the corresponding
// ROS primitives, []byte/[]int8 for byte arrays via the zero-copy fast path,
// []interface{} for every other array (holding *Message elements for complex
// arrays), and *Message for nested complex fields. Constants never appear as keys
// (spec.md §4.7).
type Message struct {
	fields map[string]interface{}
	order  []string
	frozen bool
}

// NewMessage returns an empty, mutable Message.
func NewMessage() *Message {
	return &Message{fields: make(map[string]interface{})}
}

// Get returns the value stored under name, and whether it was present.
func (m *Message) Get(name string) (interface{}, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// MustGet is Get, panicking if name is absent; convenient for tests and
// callers that already validated the shape against a schema.
func (m *Message) MustGet(name string) interface{} {
	v, ok := m.fields[name]
	if !ok {
		panic("roscodec: field not present: " + name)
	}
	return v
}

// Set assigns value under name. It fails with ErrFrozen if the message was
// decoded with Freeze (spec.md §4.7): "post-read mutation fails".
func (m *Message) Set(name string, value interface{}) error {
	if m.frozen {
		return ErrFrozen
	}
	if m.fields == nil {
		m.fields = make(map[string]interface{})
	}
	if _, exists := m.fields[name]; !exists {
		m.order = append(m.order, name)
	}
	m.fields[name] = value
	return nil
}

// Keys returns field names in assignment order (decode order for a value
// produced by Read).
func (m *Message) Keys() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of fields currently set.
func (m *Message) Len() int { return len(m.fields) }

// Frozen reports whether m rejects further Set calls.
func (m *Message) Frozen() bool { return m.frozen }

func (m *Message) freeze() {
	m.frozen = true
	for _, v := range m.fields {
		if nested, ok := v.(*Message); ok {
			nested.freeze()
		}
		if arr, ok := v.([]interface{}); ok {
			for _, elem := range arr {
				if nested, ok := elem.(*Message); ok {
					nested.freeze()
				}
			}
		}
	}
}

// Equal deep-compares two messages field by field; used so
// github.com/google/go-cmp treats Message as a leaf via its Equal method
// rather than trying (and failing) to reach its unexported fields.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.fields) != len(other.fields) {
		return false
	}
	for k, v := range m.fields {
		ov, ok := other.fields[k]
		if !ok {
			return false
		}
		if !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case *Message:
		bv, ok := b.(*Message)
		return ok && av.Equal(bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []int8:
		bv, ok := b.([]int8)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
