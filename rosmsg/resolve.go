package rosmsg

import "strings"

// AmbiguousTypeError and MissingTypeError are SchemaParseError variants
// (spec.md §7) raised during complex-type name resolution (spec.md §4.6).
type AmbiguousTypeError struct {
	Given   string
	Matches []string
}

func (e *AmbiguousTypeError) Error() string {
	return "rosmsg: ambiguous complex type " + e.Given + ": matches " + strings.Join(e.Matches, ", ")
}

type MissingTypeError struct {
	Given string
}

func (e *MissingTypeError) Error() string {
	return "rosmsg: unresolved complex type " + e.Given
}

// resolveComplexTypes rewrites every complex field's Type to the fully
// qualified name of the definition it refers to (spec.md §4.6 "Name
// resolution"). The wire format has no cycles (spec.md §9), and this pass
// does not detect them: a self-referential complex type resolves like any
// other complex field. roscodec.Compile accepts such a schema too, since it
// links definitions by index without recursing; the recursion only happens
// when a message of that schema is read, written or sized.
func resolveComplexTypes(definitions []*Definition) error {
	named := definitions
	if len(named) > 0 {
		named = named[1:] // skip the unnamed root as a resolution target
	}

	for _, def := range definitions {
		for i := range def.Fields {
			field := &def.Fields[i]
			if !field.IsComplex {
				continue
			}

			matches := matchingDefinitions(named, field.Type)
			switch len(matches) {
			case 0:
				return &MissingTypeError{Given: field.Type}
			case 1:
				field.Type = matches[0].Name
			default:
				names := make([]string, len(matches))
				for i, m := range matches {
					names[i] = m.Name
				}
				return &AmbiguousTypeError{Given: field.Type, Matches: names}
			}
		}
	}
	return nil
}

func matchingDefinitions(definitions []*Definition, given string) []*Definition {
	qualified := strings.Contains(given, "/")
	var matches []*Definition
	for _, def := range definitions {
		if qualified {
			if def.Name == given {
				matches = append(matches, def)
			}
			continue
		}
		if def.Name == given || strings.HasSuffix(def.Name, "/"+given) {
			matches = append(matches, def)
		}
	}
	return matches
}
