package rosmsg

import (
	"regexp"
	"strconv"
	"strings"
)

var separatorLine = regexp.MustCompile(`^={2,}$`)

const jsonPragma = "#pragma rosbag_parse_json"

// Result is the output of ParseVerbose: the normalized schema tree plus any
// non-fatal warnings (spec.md §4.6, "Warn (but do not fail)...").
type Result struct {
	Definitions []*Definition
	Warnings    []string
}

// Parse parses a ROS message-definition text (as carried by a Connection
// record's message_definition field) into a normalized list of type
// definitions: index 0 is always the unnamed root, spec.md §4.6.
func Parse(text string) ([]*Definition, error) {
	result, err := ParseVerbose(text)
	if err != nil {
		return nil, err
	}
	return result.Definitions, nil
}

// ParseVerbose is Parse plus non-fatal warnings (e.g. an integer constant
// outside the platform's safe-integer range).
func ParseVerbose(text string) (*Result, error) {
	blocks := splitDefinitionBlocks(text)

	definitions := make([]*Definition, 0, len(blocks))
	warnings := []string{}

	for i, block := range blocks {
		def, blockWarnings, err := parseBlock(i, block)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, def)
		warnings = append(warnings, blockWarnings...)
	}

	if len(definitions) == 0 || !definitions[0].IsRoot() {
		return nil, &ParseError{Msg: "no root definition found"}
	}

	if err := resolveComplexTypes(definitions); err != nil {
		return nil, err
	}

	return &Result{Definitions: definitions, Warnings: warnings}, nil
}

type rawBlock struct {
	name string // "" for the root block
	body string
}

// splitDefinitionBlocks splits text on separator lines (two or more '='
// characters; surrounding whitespace is ignored).
// The first block is always the root and carries no "MSG:" line; every block
// after the first must start with one.
func splitDefinitionBlocks(text string) []rawBlock {
	lines := strings.Split(text, "\n")
	var blocks []rawBlock
	var current []string

	flush := func() {
		body := strings.Join(current, "\n")
		current = nil
		if len(blocks) == 0 {
			blocks = append(blocks, rawBlock{name: "", body: body})
			return
		}
		name, rest := extractMsgName(body)
		blocks = append(blocks, rawBlock{name: name, body: rest})
	}

	for _, line := range lines {
		if separatorLine.MatchString(strings.TrimSpace(line)) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

func extractMsgName(body string) (name, rest string) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "MSG:") {
			name = strings.TrimSpace(strings.TrimPrefix(trimmed, "MSG:"))
			rest = strings.Join(lines[i+1:], "\n")
			return name, rest
		}
		// Non-MSG content before any MSG: line; treat the whole block as the
		// body of an unnamed dependency. Parse accepts it, but roscodec.Compile
		// rejects a schema with more than one unnamed definition.
		return "", body
	}
	return "", body
}

func parseBlock(index int, block rawBlock) (*Definition, []string, error) {
	def := &Definition{Name: block.name}
	var warnings []string

	pendingJSON := false
	lines := strings.Split(block.body, "\n")
	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if trimmed == jsonPragma {
			pendingJSON = true
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		field, warning, err := parseFieldOrConstant(trimmed)
		if err != nil {
			return nil, nil, &ParseError{Line: lineNo + 1, Msg: err.Error()}
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}

		if pendingJSON && !field.IsConstant {
			field.Type = "json"
			field.IsComplex = false
			pendingJSON = false
		}

		def.Fields = append(def.Fields, *field)
	}

	_ = index
	return def, warnings, nil
}

// parseFieldOrConstant parses one non-blank, non-comment, already-trimmed
// line of a message definition body (spec.md §4.6).
func parseFieldOrConstant(line string) (*Field, string, error) {
	typeTok, rest, ok := cutField(line)
	if !ok {
		return nil, "", &ParseError{Msg: "malformed field: " + line}
	}

	if eqIdx := strings.IndexByte(rest, '='); eqIdx >= 0 {
		return parseConstant(typeTok, rest, eqIdx)
	}

	return parseFieldDecl(typeTok, rest)
}

// cutField splits a line into its leading type token and the remainder.
func cutField(line string) (typeTok, rest string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", false
	}
	return line[:i], strings.TrimLeft(line[i:], " \t"), true
}

func parseFieldDecl(typeTok, rest string) (*Field, string, error) {
	if commentIdx := strings.IndexByte(rest, '#'); commentIdx >= 0 {
		rest = rest[:commentIdx]
	}
	rest = strings.TrimSpace(rest)
	nameParts := strings.Fields(rest)
	if len(nameParts) < 1 {
		return nil, "", &ParseError{Msg: "missing field name after type " + typeTok}
	}
	name := nameParts[0]

	baseType, isArray, arrayLen := parseArrayType(typeTok)
	canonical := canonicalType(baseType)

	field := &Field{
		Name:        name,
		Type:        canonical,
		IsArray:     isArray,
		ArrayLength: arrayLen,
		IsComplex:   !Primitives[canonical],
	}
	return field, "", nil
}

func parseConstant(typeTok, rest string, eqIdx int) (*Field, string, error) {
	name := strings.TrimSpace(rest[:eqIdx])
	valueText := rest[eqIdx+1:]

	canonical := canonicalType(typeTok)
	if canonical != "string" {
		if commentIdx := strings.IndexByte(valueText, '#'); commentIdx >= 0 {
			valueText = valueText[:commentIdx]
		}
	}
	valueText = strings.TrimSpace(valueText)
	if canonical == "string" {
		// Verbatim text after '='; only surrounding whitespace is trimmed,
		// and '#' has no comment meaning (spec.md §4.6).
	}

	field := &Field{
		Name:         name,
		Type:         canonical,
		IsConstant:   true,
		ConstantText: valueText,
	}

	value, warning, err := parseConstantValue(canonical, valueText)
	if err != nil {
		return nil, "", err
	}
	field.Value = value
	return field, warning, nil
}

func parseConstantValue(rosType, text string) (interface{}, string, error) {
	switch rosType {
	case "string":
		return text, "", nil
	case "bool":
		normalized := normalizeBoolLiteral(text)
		if b, err := strconv.ParseBool(normalized); err == nil {
			return b, "", nil
		}
		n, err := strconv.ParseInt(normalized, 10, 64)
		if err != nil {
			return nil, "", &ParseError{Msg: "invalid bool constant: " + text}
		}
		return n != 0, "", nil
	case "float32", "float64":
		f, err := strconv.ParseFloat(normalizeBoolLiteral(text), 64)
		if err != nil {
			return nil, "", &ParseError{Msg: "invalid float constant: " + text}
		}
		return f, "", nil
	default:
		// All remaining primitives that can carry constants are integer
		// types (int8..uint64, char/byte aliases already canonicalized).
		n, err := strconv.ParseInt(normalizeBoolLiteral(text), 10, 64)
		if err != nil {
			un, uerr := strconv.ParseUint(normalizeBoolLiteral(text), 10, 64)
			if uerr != nil {
				return nil, "", &ParseError{Msg: "invalid integer constant: " + text}
			}
			return un, safeIntegerWarning(rosType, text, un >= safeIntegerRange), nil
		}
		return n, safeIntegerWarning(rosType, text, n >= safeIntegerRange || n <= -safeIntegerRange), nil
	}
}

// safeIntegerRange bounds the integers a float64 holds without gaps: every
// integer of magnitude below 2^53 is exact. It is used only to emit the
// non-fatal warning spec.md §4.6 calls for; the comparison is done on the
// integer values themselves. Go's native int64/uint64 constant values are
// never lossy regardless.
const safeIntegerRange = 1 << 53

func safeIntegerWarning(rosType, text string, outOfRange bool) string {
	if outOfRange {
		return "constant " + rosType + " = " + text + " is outside the platform-safe integer range (2^53)"
	}
	return ""
}

func normalizeBoolLiteral(text string) string {
	text = strings.TrimSpace(text)
	switch text {
	case "True":
		return "true"
	case "False":
		return "false"
	default:
		return text
	}
}

func parseArrayType(tok string) (baseType string, isArray bool, length *uint32) {
	open := strings.IndexByte(tok, '[')
	closeIdx := strings.IndexByte(tok, ']')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return tok, false, nil
	}

	base := tok[:open]
	inner := tok[open+1 : closeIdx]
	if inner == "" {
		return base, true, nil
	}

	n, err := strconv.ParseUint(inner, 10, 32)
	if err != nil {
		return tok, false, nil
	}
	fixed := uint32(n)
	return base, true, &fixed
}
