package roscodec

import (
	"encoding/json"
	"fmt"
	"math"
)

// FieldTypeError is returned by Write/Size when a Message value's dynamic
// type does not match what the schema expects for that field.
type FieldTypeError struct {
	Field string
	Want  string
	Got   interface{}
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("roscodec: field %q: expected %s, got %T", e.Field, e.Want, e.Got)
}

// Write serializes msg against the schema's root definition, appending onto
// buf and returning the extended slice (spec.md §4.7 "Write").
func (s *Schema) Write(buf []byte, msg *Message) ([]byte, error) {
	return s.writeDef(buf, 0, msg)
}

// Size returns the exact wire length Write(nil, msg) would produce, without
// allocating the encoded bytes (spec.md §4.7 "Size calculator": "the size law
// `len(Write(m)) == Size(m)` must hold for every value `m` the codec can
// decode").
func (s *Schema) Size(msg *Message) (int, error) {
	return s.sizeDef(0, msg)
}

func (s *Schema) writeDef(buf []byte, defIndex int, msg *Message) ([]byte, error) {
	d := s.defs[defIndex]
	for _, f := range d.fields {
		v, ok := msg.Get(f.name)
		if !ok {
			return nil, &FieldTypeError{Field: f.name, Want: "present", Got: nil}
		}
		var err error
		buf, err = s.writeField(buf, &f, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (s *Schema) sizeDef(defIndex int, msg *Message) (int, error) {
	d := s.defs[defIndex]
	total := 0
	for _, f := range d.fields {
		v, ok := msg.Get(f.name)
		if !ok {
			return 0, &FieldTypeError{Field: f.name, Want: "present", Got: nil}
		}
		n, err := s.sizeField(&f, v)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (s *Schema) writeField(buf []byte, f *field, v interface{}) ([]byte, error) {
	if f.isArray {
		return s.writeArray(buf, f, v)
	}
	return s.writeScalar(buf, f.kind, f.complexDef, f.name, v)
}

func (s *Schema) sizeField(f *field, v interface{}) (int, error) {
	if f.isArray {
		return s.sizeArray(f, v)
	}
	return s.sizeScalar(f.kind, f.complexDef, f.name, v)
}

func (s *Schema) writeArray(buf []byte, f *field, v interface{}) ([]byte, error) {
	switch f.kind {
	case KindUint8:
		bytes, ok := v.([]byte)
		if !ok {
			return nil, &FieldTypeError{Field: f.name, Want: "[]byte", Got: v}
		}
		buf = s.writeArrayLength(buf, f, len(bytes))
		return append(buf, bytes...), nil
	case KindInt8:
		ints, ok := v.([]int8)
		if !ok {
			return nil, &FieldTypeError{Field: f.name, Want: "[]int8", Got: v}
		}
		buf = s.writeArrayLength(buf, f, len(ints))
		for _, b := range ints {
			buf = append(buf, byte(b))
		}
		return buf, nil
	}

	elems, ok := v.([]interface{})
	if !ok {
		return nil, &FieldTypeError{Field: f.name, Want: "[]interface{}", Got: v}
	}
	if f.arrayLength != nil && int(*f.arrayLength) != len(elems) {
		return nil, &FieldTypeError{Field: f.name, Want: fmt.Sprintf("array of length %d", *f.arrayLength), Got: v}
	}
	buf = s.writeArrayLength(buf, f, len(elems))
	for _, elem := range elems {
		var err error
		buf, err = s.writeScalar(buf, f.kind, f.complexDef, f.name, elem)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (s *Schema) sizeArray(f *field, v interface{}) (int, error) {
	switch f.kind {
	case KindUint8:
		bytes, ok := v.([]byte)
		if !ok {
			return 0, &FieldTypeError{Field: f.name, Want: "[]byte", Got: v}
		}
		return s.arrayLengthSize(f) + len(bytes), nil
	case KindInt8:
		ints, ok := v.([]int8)
		if !ok {
			return 0, &FieldTypeError{Field: f.name, Want: "[]int8", Got: v}
		}
		return s.arrayLengthSize(f) + len(ints), nil
	}

	elems, ok := v.([]interface{})
	if !ok {
		return 0, &FieldTypeError{Field: f.name, Want: "[]interface{}", Got: v}
	}
	total := s.arrayLengthSize(f)
	for _, elem := range elems {
		n, err := s.sizeScalar(f.kind, f.complexDef, f.name, elem)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (s *Schema) arrayLengthSize(f *field) int {
	if f.arrayLength != nil {
		return 0
	}
	return 4
}

func (s *Schema) writeArrayLength(buf []byte, f *field, n int) []byte {
	if f.arrayLength != nil {
		return buf
	}
	var tmp [4]byte
	putUint32(tmp[:], 0, uint32(n))
	return append(buf, tmp[:]...)
}

func (s *Schema) writeScalar(buf []byte, kind Kind, complexDef int, name string, v interface{}) ([]byte, error) {
	if kind == KindComplex {
		nested, ok := v.(*Message)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "*Message", Got: v}
		}
		return s.writeDef(buf, complexDef, nested)
	}

	if kind == KindString {
		str, ok := v.(string)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "string", Got: v}
		}
		return appendLengthPrefixed(buf, []byte(str)), nil
	}

	if kind == KindJSON {
		return s.writeJSON(buf, name, v)
	}

	var tmp [8]byte
	switch kind {
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "bool", Got: v}
		}
		if b {
			tmp[0] = 1
		}
		return append(buf, tmp[0]), nil
	case KindInt8:
		n, ok := v.(int8)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "int8", Got: v}
		}
		return append(buf, byte(n)), nil
	case KindUint8:
		n, ok := v.(uint8)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "uint8", Got: v}
		}
		return append(buf, n), nil
	case KindInt16:
		n, ok := v.(int16)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "int16", Got: v}
		}
		return append(buf, byte(n), byte(n>>8)), nil
	case KindUint16:
		n, ok := v.(uint16)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "uint16", Got: v}
		}
		return append(buf, byte(n), byte(n>>8)), nil
	case KindInt32:
		n, ok := v.(int32)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "int32", Got: v}
		}
		putUint32(tmp[:], 0, uint32(n))
		return append(buf, tmp[:4]...), nil
	case KindUint32:
		n, ok := v.(uint32)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "uint32", Got: v}
		}
		putUint32(tmp[:], 0, n)
		return append(buf, tmp[:4]...), nil
	case KindInt64:
		n, ok := v.(int64)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "int64", Got: v}
		}
		putUint64(tmp[:], uint64(n))
		return append(buf, tmp[:8]...), nil
	case KindUint64:
		n, ok := v.(uint64)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "uint64", Got: v}
		}
		putUint64(tmp[:], n)
		return append(buf, tmp[:8]...), nil
	case KindFloat32:
		n, ok := v.(float32)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "float32", Got: v}
		}
		putUint32(tmp[:], 0, math.Float32bits(n))
		return append(buf, tmp[:4]...), nil
	case KindFloat64:
		n, ok := v.(float64)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "float64", Got: v}
		}
		putUint64(tmp[:], math.Float64bits(n))
		return append(buf, tmp[:8]...), nil
	case KindTime:
		t, ok := v.(Time)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "Time", Got: v}
		}
		off := putUint32(tmp[:], 0, t.Sec)
		putUint32(tmp[:], off, t.Nsec)
		return append(buf, tmp[:8]...), nil
	case KindDuration:
		d, ok := v.(Duration)
		if !ok {
			return nil, &FieldTypeError{Field: name, Want: "Duration", Got: v}
		}
		off := putUint32(tmp[:], 0, d.Sec)
		putUint32(tmp[:], off, d.Nsec)
		return append(buf, tmp[:8]...), nil
	default:
		return nil, fmt.Errorf("roscodec: unhandled kind %d for field %q", kind, name)
	}
}

func (s *Schema) sizeScalar(kind Kind, complexDef int, name string, v interface{}) (int, error) {
	if kind == KindComplex {
		nested, ok := v.(*Message)
		if !ok {
			return 0, &FieldTypeError{Field: name, Want: "*Message", Got: v}
		}
		return s.sizeDef(complexDef, nested)
	}
	if kind == KindString {
		str, ok := v.(string)
		if !ok {
			return 0, &FieldTypeError{Field: name, Want: "string", Got: v}
		}
		return 4 + len(str), nil
	}
	if kind == KindJSON {
		n, _, err := s.jsonEncodedBytes(name, v)
		if err != nil {
			return 0, err
		}
		return 4 + n, nil
	}
	size := primitiveSize(kind)
	if size < 0 {
		return 0, fmt.Errorf("roscodec: unhandled kind %d for field %q", kind, name)
	}
	return size, nil
}

func (s *Schema) writeJSON(buf []byte, name string, v interface{}) ([]byte, error) {
	_, encoded, err := s.jsonEncodedBytes(name, v)
	if err != nil {
		return nil, err
	}
	return appendLengthPrefixed(buf, encoded), nil
}

// jsonEncodedBytes marshals a json-kind field's Go value back to its wire
// bytes. A raw decode-failure passthrough (prefixed with jsonDecodeErrorPrefix
// by readStringLike) is re-encoded verbatim, not re-marshaled, so round-trip
// of an undecodable payload preserves the original bytes.
func (s *Schema) jsonEncodedBytes(name string, v interface{}) (int, []byte, error) {
	if str, ok := v.(string); ok && hasJSONDecodeErrorPrefix(str) {
		raw := []byte(str[len(jsonDecodeErrorPrefix):])
		return len(raw), raw, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return 0, nil, &FieldTypeError{Field: name, Want: "json-marshalable value", Got: v}
	}
	return len(encoded), encoded, nil
}

func hasJSONDecodeErrorPrefix(s string) bool {
	return len(s) >= len(jsonDecodeErrorPrefix) && s[:len(jsonDecodeErrorPrefix)] == jsonDecodeErrorPrefix
}

func appendLengthPrefixed(buf, data []byte) []byte {
	var tmp [4]byte
	putUint32(tmp[:], 0, uint32(len(data)))
	buf = append(buf, tmp[:]...)
	return append(buf, data...)
}

func putUint64(buf []byte, v uint64) {
	off := putUint32(buf, 0, uint32(v))
	putUint32(buf, off, uint32(v>>32))
}
