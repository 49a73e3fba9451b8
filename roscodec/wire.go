package roscodec

import "encoding/binary"

func getUint32(buf []byte, offset int) (uint32, int) {
	return binary.LittleEndian.Uint32(buf[offset:]), offset + 4
}

func putUint32(buf []byte, offset int, v uint32) int {
	binary.LittleEndian.PutUint32(buf[offset:], v)
	return offset + 4
}

// primitiveSize returns the fixed wire size of a non-array, non-complex
// field kind.
func primitiveSize(kind Kind) int {
	switch kind {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	case KindTime, KindDuration:
		return 8
	default:
		return -1 // KindString/KindJSON/KindComplex: not fixed size
	}
}
