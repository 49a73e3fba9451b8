package roscodec

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/foxglove-labs/go-rosbag/rosmsg"
)

var endian = binary.LittleEndian

func compileText(t *testing.T, text string) *Schema {
	t.Helper()
	defs, err := rosmsg.Parse(text)
	require.NoError(t, err)
	schema, err := Compile(defs)
	require.NoError(t, err)
	return schema
}

func TestReadPrimitives(t *testing.T) {
	schema := compileText(t, "bool a\nint8 b\nuint8 c\nint16 d\nuint16 e\nint32 f\nuint32 g\nint64 h\nuint64 i\nfloat32 j\nfloat64 k\nstring l\ntime m\nduration n\n")

	var buf []byte
	buf = append(buf, 1)          // a = true
	buf = append(buf, 0xFE)       // b = -2
	buf = append(buf, 7)          // c = 7
	buf = appendU16(buf, 0xFFFE)  // d = -2
	buf = appendU16(buf, 0xBEEF)  // e
	buf = appendU32(buf, 0xFFFFFFFE) // f = -2
	buf = appendU32(buf, 0xCAFEBABE) // g
	buf = appendU64(buf, 0xFFFFFFFFFFFFFFFE) // h = -2
	buf = appendU64(buf, 0x0123456789ABCDEF) // i
	buf = appendU32(buf, 0x3F800000)         // j = 1.0f
	buf = appendU64(buf, 0x3FF0000000000000) // k = 1.0
	buf = appendString(buf, "hello")
	buf = appendU32(buf, 10) // m.sec
	buf = appendU32(buf, 20) // m.nsec
	buf = appendU32(buf, 30) // n.sec
	buf = appendU32(buf, 40) // n.nsec

	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	require.Equal(t, true, msg.MustGet("a"))
	require.Equal(t, int8(-2), msg.MustGet("b"))
	require.Equal(t, uint8(7), msg.MustGet("c"))
	require.Equal(t, int16(-2), msg.MustGet("d"))
	require.Equal(t, uint16(0xBEEF), msg.MustGet("e"))
	require.Equal(t, int32(-2), msg.MustGet("f"))
	require.Equal(t, uint32(0xCAFEBABE), msg.MustGet("g"))
	require.Equal(t, int64(-2), msg.MustGet("h"))
	require.Equal(t, uint64(0x0123456789ABCDEF), msg.MustGet("i"))
	require.Equal(t, float32(1.0), msg.MustGet("j"))
	require.Equal(t, float64(1.0), msg.MustGet("k"))
	require.Equal(t, "hello", msg.MustGet("l"))
	require.Equal(t, Time{Sec: 10, Nsec: 20}, msg.MustGet("m"))
	require.Equal(t, Duration{Sec: 30, Nsec: 40}, msg.MustGet("n"))
}

func TestConstantsExcludedFromWire(t *testing.T) {
	schema := compileText(t, "uint8 FOO=9\nint32 value\n")

	buf := appendU32(nil, 42)
	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	require.Equal(t, 1, msg.Len())
	_, ok := msg.Get("FOO")
	require.False(t, ok, "constants must not appear as decoded fields")
}

func TestByteArrayZeroCopy(t *testing.T) {
	schema := compileText(t, "uint8[] data\n")

	payload := []byte{1, 2, 3, 4, 5}
	buf := appendU32(nil, uint32(len(payload)))
	buf = append(buf, payload...)

	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	got := msg.MustGet("data").([]byte)
	require.Equal(t, payload, got)

	// Zero-copy: mutating the source buffer is observable through the
	// decoded view.
	buf[4] = 0xFF
	require.Equal(t, byte(0xFF), got[0])
}

func TestNestedVariableArray(t *testing.T) {
	schema := compileText(t, heredoc(`
		Point[] points
		================================================================================
		MSG: pkg/Point
		int32 x
		int32 y
	`))

	var buf []byte
	buf = appendU32(buf, 2) // array length
	buf = appendU32(buf, 1)
	buf = appendU32(buf, 2)
	buf = appendU32(buf, 3)
	buf = appendU32(buf, 4)

	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	points := msg.MustGet("points").([]interface{})
	require.Len(t, points, 2)
	require.Equal(t, int32(1), points[0].(*Message).MustGet("x"))
	require.Equal(t, int32(2), points[0].(*Message).MustGet("y"))
	require.Equal(t, int32(3), points[1].(*Message).MustGet("x"))
	require.Equal(t, int32(4), points[1].(*Message).MustGet("y"))
}

func TestJSONPseudoPrimitive(t *testing.T) {
	schema := compileText(t, heredoc(`
		#pragma rosbag_parse_json
		string payload
	`))

	jsonBytes := []byte(`{"a":1,"b":[true,false]}`)
	buf := appendString(nil, string(jsonBytes))

	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	decoded, ok := msg.MustGet("payload").(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), decoded["a"])
}

func TestJSONDecodeFailureMarker(t *testing.T) {
	schema := compileText(t, heredoc(`
		#pragma rosbag_parse_json
		string payload
	`))

	buf := appendString(nil, "not json")
	msg, err := schema.Read(buf, false)
	require.NoError(t, err)

	str, ok := msg.MustGet("payload").(string)
	require.True(t, ok)
	require.Contains(t, str, "not json")
	require.NotEqual(t, "not json", str, "decode-failure marker must be distinguishable from a successful parse")
}

func TestFreezeRejectsSet(t *testing.T) {
	schema := compileText(t, "int32 value\n")
	buf := appendU32(nil, 1)

	msg, err := schema.Read(buf, true)
	require.NoError(t, err)
	require.True(t, msg.Frozen())
	require.ErrorIs(t, msg.Set("value", int32(2)), ErrFrozen)
}

func TestFreezeNotSetAllowsSet(t *testing.T) {
	schema := compileText(t, "int32 value\n")
	buf := appendU32(nil, 1)

	msg, err := schema.Read(buf, false)
	require.NoError(t, err)
	require.False(t, msg.Frozen())
	require.NoError(t, msg.Set("value", int32(2)))
}

func TestSizeLawMatchesWriteLength(t *testing.T) {
	schema := compileText(t, heredoc(`
		Point[] points
		string name
		uint8[] blob
		================================================================================
		MSG: pkg/Point
		int32 x
		int32 y
	`))

	msg := NewMessage()
	require.NoError(t, msg.Set("name", "hi"))
	require.NoError(t, msg.Set("blob", []byte{1, 2, 3}))

	p1 := NewMessage()
	require.NoError(t, p1.Set("x", int32(1)))
	require.NoError(t, p1.Set("y", int32(2)))
	p2 := NewMessage()
	require.NoError(t, p2.Set("x", int32(3)))
	require.NoError(t, p2.Set("y", int32(4)))
	require.NoError(t, msg.Set("points", []interface{}{p1, p2}))

	size, err := schema.Size(msg)
	require.NoError(t, err)

	out, err := schema.Write(nil, msg)
	require.NoError(t, err)
	require.Len(t, out, size)
}

func TestRoundTripPrimitivesFuzz(t *testing.T) {
	schema := compileText(t, "int32 a\nuint64 b\nstring c\nfloat64 d\nbool e\n")
	fuzzer := fuzz.New()

	for i := 0; i < 200; i++ {
		msg := NewMessage()
		var a int32
		var b uint64
		var c string
		var d float64
		var e bool
		fuzzer.Fuzz(&a)
		fuzzer.Fuzz(&b)
		fuzzer.Fuzz(&c)
		fuzzer.Fuzz(&d)
		fuzzer.Fuzz(&e)

		require.NoError(t, msg.Set("a", a))
		require.NoError(t, msg.Set("b", b))
		require.NoError(t, msg.Set("c", c))
		require.NoError(t, msg.Set("d", d))
		require.NoError(t, msg.Set("e", e))

		encoded, err := schema.Write(nil, msg)
		require.NoError(t, err)

		decoded, err := schema.Read(encoded, false)
		require.NoError(t, err)

		if diff := cmp.Diff(msg, decoded); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	endian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	endian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	endian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, []byte(s)...)
}

// heredoc strips Go source indentation from an embedded message-definition
// fixture so it lines up at column 0 the way it would in a real connection
// header (mirrors rosmsg's own test helper).
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
