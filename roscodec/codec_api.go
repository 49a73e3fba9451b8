package roscodec

// Codec is the compiled, reusable read/write/size surface for one schema
// (spec.md §6, "Public write API": MessageWriter). A Codec is safe to reuse
// across many messages of the same connection; compiling it once is the
// point of the compile-once strategy described in the package doc comment.
type Codec struct {
	schema *Schema
}

// NewCodec wraps an already compiled schema (see Compile) in a reusable Codec.
func NewCodec(schema *Schema) *Codec {
	return &Codec{schema: schema}
}

// ReadMessage decodes data against the codec's schema. See Schema.Read.
func (c *Codec) ReadMessage(data []byte, freeze bool) (*Message, error) {
	return c.schema.Read(data, freeze)
}

// WriteMessage serializes value, appending onto out and returning the
// extended slice (spec.md §6, "writeMessage(value, out?) → bytes").
func (c *Codec) WriteMessage(value *Message, out []byte) ([]byte, error) {
	return c.schema.Write(out, value)
}

// CalculateByteSize returns the exact encoded length of value without
// allocating the encoded bytes (spec.md §6, "calculateByteSize(value) →
// u64"). The size law `len(WriteMessage(m, nil)) == CalculateByteSize(m)`
// holds for every value a codec produced by ReadMessage can carry.
func (c *Codec) CalculateByteSize(value *Message) (int, error) {
	return c.schema.Size(value)
}

// Schema returns the compiled schema backing this codec.
func (c *Codec) Schema() *Schema {
	return c.schema
}
