package roscodec

import (
	"encoding/json"
	"fmt"
	"math"
	"unsafe"
)

// jsonDecodeErrorPrefix marks a json field's value as the raw string that
// failed to decode, distinguishing it from a successfully parsed value
// (spec.md §4.5: "implementation-defined, but distinguishable from a
// successful parse").
const jsonDecodeErrorPrefix = "!json-decode-error!:"

// CodecMismatchError is returned when a message body's length or structure
// does not match the compiled schema during decode (spec.md §7).
type CodecMismatchError struct {
	Reason string
}

func (e *CodecMismatchError) Error() string {
	return "roscodec: codec mismatch: " + e.Reason
}

func errShort(field string, need, have int) error {
	return &CodecMismatchError{Reason: fmt.Sprintf("field %q needs %d bytes, %d remain", field, need, have)}
}

// Read decodes data against the schema's root definition. If freeze is true,
// the returned Message (and every nested Message it contains) rejects
// further Set calls (spec.md §4.7 "Freeze option").
func (s *Schema) Read(data []byte, freeze bool) (*Message, error) {
	msg, n, err := s.readDef(0, data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &CodecMismatchError{Reason: fmt.Sprintf("%d trailing bytes after decoding root", len(data)-n)}
	}
	if freeze {
		msg.freeze()
	}
	return msg, nil
}

func (s *Schema) readDef(defIndex int, data []byte) (*Message, int, error) {
	d := s.defs[defIndex]
	msg := NewMessage()
	off := 0
	for _, f := range d.fields {
		v, n, err := s.readField(&f, data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		if err := msg.Set(f.name, v); err != nil {
			return nil, 0, err
		}
	}
	return msg, off, nil
}

func (s *Schema) readField(f *field, data []byte) (interface{}, int, error) {
	if f.isArray {
		return s.readArray(f, data)
	}
	return s.readScalar(f.kind, f.complexDef, f.name, data)
}

func (s *Schema) readArrayLength(f *field, data []byte) (length, off int, err error) {
	if f.arrayLength != nil {
		return int(*f.arrayLength), 0, nil
	}
	if len(data) < 4 {
		return 0, 0, errShort(f.name, 4, len(data))
	}
	n, off := getUint32(data, 0)
	return int(n), off, nil
}

func (s *Schema) readArray(f *field, data []byte) (interface{}, int, error) {
	length, off, err := s.readArrayLength(f, data)
	if err != nil {
		return nil, 0, err
	}

	switch f.kind {
	case KindUint8:
		if len(data) < off+length {
			return nil, 0, errShort(f.name, off+length, len(data))
		}
		// Zero-copy fast path: the returned slice aliases the decode
		// buffer directly (spec.md §4.7).
		return data[off : off+length : off+length], off + length, nil
	case KindInt8:
		if len(data) < off+length {
			return nil, 0, errShort(f.name, off+length, len(data))
		}
		view := data[off : off+length : off+length]
		var out []int8
		if length > 0 {
			out = unsafe.Slice((*int8)(unsafe.Pointer(&view[0])), length)
		}
		return out, off + length, nil
	}

	total := off
	values := make([]interface{}, length)
	for i := 0; i < length; i++ {
		v, n, err := s.readScalar(f.kind, f.complexDef, f.name, data[total:])
		if err != nil {
			return nil, 0, err
		}
		values[i] = v
		total += n
	}
	return values, total, nil
}

func (s *Schema) readScalar(kind Kind, complexDef int, name string, data []byte) (interface{}, int, error) {
	if kind == KindComplex {
		msg, n, err := s.readDef(complexDef, data)
		return msg, n, err
	}

	if kind == KindString || kind == KindJSON {
		return s.readStringLike(kind, name, data)
	}

	size := primitiveSize(kind)
	if len(data) < size {
		return nil, 0, errShort(name, size, len(data))
	}

	switch kind {
	case KindBool:
		return data[0] != 0, 1, nil
	case KindInt8:
		return int8(data[0]), 1, nil
	case KindUint8:
		return data[0], 1, nil
	case KindInt16:
		return int16(uint16(data[0]) | uint16(data[1])<<8), 2, nil
	case KindUint16:
		return uint16(data[0]) | uint16(data[1])<<8, 2, nil
	case KindInt32:
		v, _ := getUint32(data, 0)
		return int32(v), 4, nil
	case KindUint32:
		v, _ := getUint32(data, 0)
		return v, 4, nil
	case KindInt64:
		return int64(getUint64(data)), 8, nil
	case KindUint64:
		return getUint64(data), 8, nil
	case KindFloat32:
		v, _ := getUint32(data, 0)
		return math.Float32frombits(v), 4, nil
	case KindFloat64:
		return math.Float64frombits(getUint64(data)), 8, nil
	case KindTime:
		sec, off := getUint32(data, 0)
		nsec, _ := getUint32(data, off)
		return Time{Sec: sec, Nsec: nsec}, 8, nil
	case KindDuration:
		sec, off := getUint32(data, 0)
		nsec, _ := getUint32(data, off)
		return Duration{Sec: sec, Nsec: nsec}, 8, nil
	default:
		return nil, 0, &CodecMismatchError{Reason: fmt.Sprintf("unhandled kind %d", kind)}
	}
}

func getUint64(data []byte) uint64 {
	lo, off := getUint32(data, 0)
	hi, _ := getUint32(data, off)
	return uint64(lo) | uint64(hi)<<32
}

func (s *Schema) readStringLike(kind Kind, name string, data []byte) (interface{}, int, error) {
	if len(data) < 4 {
		return nil, 0, errShort(name, 4, len(data))
	}
	length, off := getUint32(data, 0)
	end := off + int(length)
	if len(data) < end {
		return nil, 0, errShort(name, end, len(data))
	}
	raw := string(data[off:end])

	if kind == KindString {
		return raw, end, nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return jsonDecodeErrorPrefix + raw, end, nil
	}
	return parsed, end, nil
}
