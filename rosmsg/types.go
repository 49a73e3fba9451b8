// Package rosmsg parses the textual ROS message-definition grammar shipped
// in Connection records into a normalized schema tree (spec.md §4.6).
package rosmsg

import "fmt"

// Primitives is the set of scalar wire types a Field.Type may name once
// aliases are resolved (spec.md §3). "json" is an opt-in pseudo-primitive
// (spec.md §4.5), included here since the parser treats it identically to a
// real primitive once #pragma rosbag_parse_json has marked a field.
var Primitives = map[string]bool{
	"string": true, "bool": true,
	"int8": true, "uint8": true,
	"int16": true, "uint16": true,
	"int32": true, "uint32": true,
	"int64": true, "uint64": true,
	"float32": true, "float64": true,
	"time": true, "duration": true,
	"json": true,
}

// typeAliases maps ROS's legacy type spellings to their canonical primitive
// (spec.md §3).
var typeAliases = map[string]string{
	"char": "uint8",
	"byte": "int8",
}

func canonicalType(t string) string {
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// Field is one member of a Definition: a primitive, array, complex, or
// constant field (spec.md §3 "Schema model").
type Field struct {
	Name string
	Type string // canonicalized primitive name, or a fully qualified complex type name

	IsArray      bool
	ArrayLength  *uint32 // nil means length-prefixed; non-nil means fixed
	IsComplex    bool
	IsConstant   bool
	ConstantText string      // value text after '=' (trimmed; a trailing '#' comment is removed except for string constants), for diagnostics
	Value        interface{} // parsed constant value; nil for non-constants
}

// Definition is one named (or, for the root, unnamed) type in a parsed
// schema. A parse produces exactly one Definition with Name == "" (the
// root), at index 0, followed by zero or more named dependency definitions.
type Definition struct {
	Name   string
	Fields []Field
}

// IsRoot reports whether d is the schema's unnamed root definition.
func (d *Definition) IsRoot() bool { return d.Name == "" }

// ParseError wraps a message-definition grammar violation with the offending
// line for diagnostics (spec.md §7 SchemaParseError).
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rosmsg: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("rosmsg: %s", e.Msg)
}
