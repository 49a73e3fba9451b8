package rosbag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const lenInBytes = 4

const headerFieldDelimiter = '='

// Sentinel errors for the fields codec, spec.md §4.2/§7.
var (
	ErrTruncatedHeader = errors.New("rosbag: truncated header")
	ErrCorruptHeader   = errors.New("rosbag: corrupt header field length")
	ErrMissingEquals   = errors.New("rosbag: header field missing '=' delimiter")
)

// Fields is a header-field block: a mapping from ASCII key to raw value
// bytes. Keys are expected to be unique within a header; extractFields
// resolves duplicates by letting the last occurrence win (spec.md §9 Open
// Question (a)).
type Fields map[string][]byte

// extractFields decodes the repeated {u32 len, "key=value"} block used in
// every record header and in Connection data blobs.
func extractFields(buf []byte) (Fields, error) {
	if len(buf) < lenInBytes && len(buf) != 0 {
		return nil, ErrTruncatedHeader
	}

	fields := make(Fields)
	for len(buf) > 0 {
		if len(buf) < lenInBytes {
			return nil, ErrTruncatedHeader
		}
		fieldLen := binary.LittleEndian.Uint32(buf[:lenInBytes])
		buf = buf[lenInBytes:]
		if uint64(fieldLen) > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: field declares %d bytes, %d remain", ErrCorruptHeader, fieldLen, len(buf))
		}

		field := buf[:fieldLen]
		i := bytes.IndexByte(field, headerFieldDelimiter)
		if i == -1 {
			return nil, ErrMissingEquals
		}

		key := string(field[:i])
		value := field[i+1:]
		fields[key] = value

		buf = buf[fieldLen:]
	}

	return fields, nil
}

// encodeFields is the symmetric encoder used by tests to validate the
// extractFields round-trip property in spec.md §8 and to build record
// fixtures.
func encodeFields(fields Fields) []byte {
	var buf bytes.Buffer
	for key, value := range fields {
		field := make([]byte, 0, len(key)+1+len(value))
		field = append(field, key...)
		field = append(field, headerFieldDelimiter)
		field = append(field, value...)

		var lenBuf [lenInBytes]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(field)))
		buf.Write(lenBuf[:])
		buf.Write(field)
	}
	return buf.Bytes()
}

func (f Fields) byteVal(key string) ([]byte, error) {
	value, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingRequiredField, key)
	}
	return value, nil
}

func (f Fields) stringVal(key string) (string, error) {
	value, err := f.byteVal(key)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (f Fields) uint32Val(key string) (uint32, error) {
	value, err := f.byteVal(key)
	if err != nil {
		return 0, err
	}
	if len(value) < 4 {
		return 0, fmt.Errorf("%w: %q is %d bytes, want 4", ErrCorruptHeader, key, len(value))
	}
	return binary.LittleEndian.Uint32(value), nil
}

func (f Fields) uint64Val(key string) (uint64, error) {
	value, err := f.byteVal(key)
	if err != nil {
		return 0, err
	}
	if len(value) < 8 {
		return 0, fmt.Errorf("%w: %q is %d bytes, want 8", ErrCorruptHeader, key, len(value))
	}
	return binary.LittleEndian.Uint64(value), nil
}

func (f Fields) timeVal(key string) (Time, error) {
	value, err := f.byteVal(key)
	if err != nil {
		return Time{}, err
	}
	if len(value) < 8 {
		return Time{}, fmt.Errorf("%w: %q is %d bytes, want 8", ErrCorruptHeader, key, len(value))
	}
	return Time{
		Sec:  binary.LittleEndian.Uint32(value[0:4]),
		Nsec: binary.LittleEndian.Uint32(value[4:8]),
	}, nil
}
