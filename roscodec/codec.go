package roscodec

import (
	"fmt"

	"github.com/foxglove-labs/go-rosbag/rosmsg"
)

// Kind enumerates the wire-level primitive kinds a compiled field can carry.
// It mirrors rosmsg.Primitives plus KindComplex for nested definitions.
type Kind int

const (
	KindBool Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindTime
	KindDuration
	KindJSON
	KindComplex
)

var primitiveKinds = map[string]Kind{
	"bool":     KindBool,
	"int8":     KindInt8,
	"uint8":    KindUint8,
	"int16":    KindInt16,
	"uint16":   KindUint16,
	"int32":    KindInt32,
	"uint32":   KindUint32,
	"int64":    KindInt64,
	"uint64":   KindUint64,
	"float32":  KindFloat32,
	"float64":  KindFloat64,
	"string":   KindString,
	"time":     KindTime,
	"duration": KindDuration,
	"json":     KindJSON,
}

// field is one compiled, serializable member of a definition. Constants are
// dropped during compilation: spec.md §4.7 "Constants: never appear on the
// wire".
type field struct {
	name        string
	kind        Kind
	isArray     bool
	arrayLength *uint32 // nil means length-prefixed
	complexDef  int     // valid when kind == KindComplex: index into Schema.defs
}

type def struct {
	name   string
	fields []field
}

// Schema is a compiled schema: defs[0] is always the root.
type Schema struct {
	defs []*def
}

// MalformedSchemaError is returned by Compile when the input does not carry
// exactly one root definition (spec.md §4.7 "Roots").
type MalformedSchemaError struct {
	Reason string
}

func (e *MalformedSchemaError) Error() string {
	return "roscodec: malformed schema: " + e.Reason
}

// Compile builds a Schema from a parsed, resolved rosmsg definition list
// (the output of rosmsg.Parse). Complex field references are expected to
// already be fully qualified (rosmsg.Parse resolves them); Compile looks
// each one up by name among the definitions it was given.
func Compile(definitions []*rosmsg.Definition) (*Schema, error) {
	if len(definitions) == 0 || !definitions[0].IsRoot() {
		return nil, &MalformedSchemaError{Reason: "no root definition"}
	}
	for _, d := range definitions[1:] {
		if d.IsRoot() {
			return nil, &MalformedSchemaError{Reason: "more than one root definition"}
		}
	}

	byName := make(map[string]int, len(definitions))
	for i, d := range definitions {
		if d.IsRoot() {
			continue
		}
		byName[d.Name] = i
	}

	schema := &Schema{defs: make([]*def, len(definitions))}
	for i, d := range definitions {
		compiled, err := compileDef(d, byName)
		if err != nil {
			return nil, err
		}
		schema.defs[i] = compiled
	}
	return schema, nil
}

func compileDef(d *rosmsg.Definition, byName map[string]int) (*def, error) {
	out := &def{name: d.Name}
	for _, f := range d.Fields {
		if f.IsConstant {
			continue
		}
		cf, err := compileField(f, byName)
		if err != nil {
			return nil, fmt.Errorf("roscodec: definition %q field %q: %w", d.Name, f.Name, err)
		}
		out.fields = append(out.fields, cf)
	}
	return out, nil
}

func compileField(f rosmsg.Field, byName map[string]int) (field, error) {
	cf := field{name: f.Name, isArray: f.IsArray, arrayLength: f.ArrayLength}

	if f.IsComplex {
		idx, ok := byName[f.Type]
		if !ok {
			return field{}, &MalformedSchemaError{Reason: "unresolved complex type " + f.Type}
		}
		cf.kind = KindComplex
		cf.complexDef = idx
		return cf, nil
	}

	kind, ok := primitiveKinds[f.Type]
	if !ok {
		return field{}, &MalformedSchemaError{Reason: "unknown primitive type " + f.Type}
	}
	cf.kind = kind
	return cf, nil
}
