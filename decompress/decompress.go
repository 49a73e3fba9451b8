// Package decompress provides the decompressor registry the rosbag core
// consumes to inflate Chunk records (spec.md §4.1, §4.4). The registry is
// the external collaborator boundary: the core only ever looks an algorithm
// name up in a Registry and calls the returned function.
package decompress

import "fmt"

// Func decompresses compressed into exactly expectedSize bytes.
type Func func(compressed []byte, expectedSize uint32) ([]byte, error)

// Registry maps a Chunk record's "compression" field value to the function
// that inflates it. The zero value is an empty registry; use Default for the
// built-in lz4/bz2 codecs.
type Registry map[string]Func

// Default returns a Registry with the two built-in algorithms this module
// ships: lz4 (decompress/lz4.go) and bz2 (decompress/bzip2.go). "none" is not
// registered; callers never decompress an uncompressed chunk.
func Default() Registry {
	return Registry{
		"lz4": DecompressLZ4,
		"bz2": DecompressBZ2,
	}
}

// Clone returns a shallow copy of r, letting a caller layer overrides (via
// rosbag.ReadOptions.Decompress) onto the default registry without mutating
// it.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UnsupportedCompressionError is returned when a chunk names an algorithm
// absent from the registry (spec.md §7 UnsupportedCompression(name)).
type UnsupportedCompressionError struct {
	Name string
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("decompress: unsupported compression %q", e.Name)
}

// Lookup resolves name against the registry, returning
// *UnsupportedCompressionError if absent.
func (r Registry) Lookup(name string) (Func, error) {
	fn, ok := r[name]
	if !ok {
		return nil, &UnsupportedCompressionError{Name: name}
	}
	return fn, nil
}
