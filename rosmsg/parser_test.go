package rosmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heredoc(s string) string {
	result := ""
	for i, line := range strings.Split(strings.TrimPrefix(s, "\n"), "\n") {
		if i > 0 {
			result += "\n"
		}
		result += strings.TrimSpace(line)
	}
	return result
}

func TestParseNestedDefinitions(t *testing.T) {
	input := heredoc(`
		Bar barfield
		================================================================================
		MSG: pkg/Foo
		int16 myint
		================================================================================
		MSG: pkg/Bar
		string mystring
		string[10] mystringarray
		Foo myfoo`)

	defs, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	root := defs[0]
	assert.True(t, root.IsRoot())
	require.Len(t, root.Fields, 1)
	assert.Equal(t, "barfield", root.Fields[0].Name)
	assert.Equal(t, "pkg/Bar", root.Fields[0].Type)
	assert.True(t, root.Fields[0].IsComplex)

	foo := defs[1]
	assert.Equal(t, "pkg/Foo", foo.Name)
	require.Len(t, foo.Fields, 1)
	assert.Equal(t, "myint", foo.Fields[0].Name)
	assert.Equal(t, "int16", foo.Fields[0].Type)

	bar := defs[2]
	assert.Equal(t, "pkg/Bar", bar.Name)
	require.Len(t, bar.Fields, 3)
	assert.Equal(t, "string", bar.Fields[0].Type)
	assert.True(t, bar.Fields[1].IsArray)
	assert.EqualValues(t, 10, *bar.Fields[1].ArrayLength)
	assert.Equal(t, "pkg/Foo", bar.Fields[2].Type)
	assert.True(t, bar.Fields[2].IsComplex)
}

func TestParseAliases(t *testing.T) {
	defs, err := Parse("char c\nbyte b\n")
	require.NoError(t, err)
	require.Len(t, defs[0].Fields, 2)
	assert.Equal(t, "uint8", defs[0].Fields[0].Type)
	assert.Equal(t, "int8", defs[0].Fields[1].Type)
}

func TestParseVariableAndFixedArrays(t *testing.T) {
	defs, err := Parse("uint8[] values\nuint8[4] fixed\n")
	require.NoError(t, err)
	fields := defs[0].Fields
	assert.True(t, fields[0].IsArray)
	assert.Nil(t, fields[0].ArrayLength)
	assert.True(t, fields[1].IsArray)
	assert.EqualValues(t, 4, *fields[1].ArrayLength)
}

func TestParseConstantsExcludedFromComplexResolutionButKept(t *testing.T) {
	defs, err := Parse("byte STALE=3\nbool level\n")
	require.NoError(t, err)
	fields := defs[0].Fields
	require.Len(t, fields, 2)
	assert.True(t, fields[0].IsConstant)
	assert.Equal(t, "STALE", fields[0].Name)
	assert.EqualValues(t, 3, fields[0].Value)
	assert.False(t, fields[1].IsConstant)
	assert.Equal(t, "level", fields[1].Name)
}

func TestParseStringConstantIgnoresHash(t *testing.T) {
	defs, err := Parse(`string GREETING=hello # not a comment`)
	require.NoError(t, err)
	assert.Equal(t, "hello # not a comment", defs[0].Fields[0].Value)
}

func TestParseBoolConstantTolerant(t *testing.T) {
	defs, err := Parse("bool FLAG=True\n")
	require.NoError(t, err)
	assert.Equal(t, true, defs[0].Fields[0].Value)
}

func TestParseCommentsAndBlankLinesIgnored(t *testing.T) {
	a, err := Parse("int32 x\n")
	require.NoError(t, err)
	b, err := Parse("\n# a comment\nint32 x\n\n# trailing\n")
	require.NoError(t, err)
	assert.Equal(t, a[0].Fields, b[0].Fields)
}

func TestParseJSONPragma(t *testing.T) {
	defs, err := Parse("#pragma rosbag_parse_json\nstring payload\nint32 after\n")
	require.NoError(t, err)
	fields := defs[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, "json", fields[0].Type)
	assert.Equal(t, "int32", fields[1].Type)
}

func TestParseAmbiguousType(t *testing.T) {
	input := heredoc(`
		Foo field
		================================================================================
		MSG: pkg_a/Foo
		int32 x
		================================================================================
		MSG: pkg_b/Foo
		int32 y`)
	_, err := Parse(input)
	require.Error(t, err)
	var ambiguous *AmbiguousTypeError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestParseMissingType(t *testing.T) {
	_, err := Parse("Foo field\n")
	require.Error(t, err)
	var missing *MissingTypeError
	assert.ErrorAs(t, err, &missing)
}

func TestParseVerboseWarnsOnUnsafeInteger(t *testing.T) {
	result, err := ParseVerbose("int64 BIG=9007199254740993\n")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}
