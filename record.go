package rosbag

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/foxglove-labs/go-rosbag/roscodec"
	"github.com/foxglove-labs/go-rosbag/rosmsg"
)

// Op identifies a record's kind, tagged by the header field "op" (spec.md §3).
type Op uint8

const (
	OpMessageData Op = 0x02
	OpBagHeader   Op = 0x03
	OpIndexData   Op = 0x04
	OpChunk       Op = 0x05
	OpChunkInfo   Op = 0x06
	OpConnection  Op = 0x07
)

func (op Op) String() string {
	switch op {
	case OpMessageData:
		return "MessageData"
	case OpBagHeader:
		return "BagHeader"
	case OpIndexData:
		return "IndexData"
	case OpChunk:
		return "Chunk"
	case OpChunkInfo:
		return "ChunkInfo"
	case OpConnection:
		return "Connection"
	default:
		return fmt.Sprintf("Op(0x%02x)", uint8(op))
	}
}

// Compression names the algorithm a Chunk record's data block is encoded
// with. The core never interprets these beyond the registry lookup in
// decompress.Registry (spec.md §4.1).
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionBZ2  Compression = "bz2"
	CompressionLZ4  Compression = "lz4"
)

// Framing-level errors, spec.md §7.
var (
	ErrTruncatedRecord      = errors.New("rosbag: truncated record")
	ErrMissingRequiredField = errors.New("rosbag: missing required header field")
)

// UnexpectedRecordKindError is returned when a record's op doesn't match the
// opcode the caller expected to frame.
type UnexpectedRecordKindError struct {
	Expected, Actual Op
}

func (e *UnexpectedRecordKindError) Error() string {
	return fmt.Sprintf("rosbag: expected record kind %s, got %s", e.Expected, e.Actual)
}

// Record is the shared shape every framed record carries: its header-field
// map, raw data block, and the byte offsets the framer computed for it
// (spec.md §3, "Each framed record carries computed offsets").
type Record struct {
	Op     Op
	Fields Fields
	Data   []byte

	Offset     int64 // start of the record within the file
	DataOffset int64 // start of the data block within the file
	End        int64 // one past the end of the data block
	Length     int64 // End - Offset
}

// frameRecord extracts one record from buf, which must begin at the record's
// header_len field. fileOffset is buf's position within the bag, used only to
// compute the record's Offset/DataOffset/End fields. If expectedOpcode is
// nonzero, frameRecord fails with *UnexpectedRecordKindError on a mismatch.
//
// frameRecord implements spec.md §4.3 steps 1-4; kind-specific decoding of
// typed header fields, and further decoding of structured data blocks
// (IndexData/ChunkInfo/Connection), happens in the parseXxx functions below.
func frameRecord(buf []byte, fileOffset int64, expectedOpcode Op) (*Record, error) {
	if len(buf) < lenInBytes {
		return nil, fmt.Errorf("%w: need %d bytes for header_len, have %d", ErrTruncatedRecord, lenInBytes, len(buf))
	}
	headerLen := binary.LittleEndian.Uint32(buf[:lenInBytes])

	headerStart := lenInBytes
	headerEnd := headerStart + int(headerLen)
	if len(buf) < headerEnd+lenInBytes {
		return nil, fmt.Errorf("%w: need %d bytes for header+data_len, have %d", ErrTruncatedRecord, headerEnd+lenInBytes, len(buf))
	}

	fields, err := extractFields(buf[headerStart:headerEnd])
	if err != nil {
		return nil, err
	}

	opValue, ok := fields["op"]
	if !ok || len(opValue) < 1 {
		return nil, fmt.Errorf("%w: %q", ErrMissingRequiredField, "op")
	}
	op := Op(opValue[0])
	if expectedOpcode != 0 && op != expectedOpcode {
		return nil, &UnexpectedRecordKindError{Expected: expectedOpcode, Actual: op}
	}

	dataLenStart := headerEnd
	dataLen := binary.LittleEndian.Uint32(buf[dataLenStart : dataLenStart+lenInBytes])
	dataStart := dataLenStart + lenInBytes
	dataEnd := dataStart + int(dataLen)
	if len(buf) < dataEnd {
		return nil, fmt.Errorf("%w: need %d bytes for data, have %d", ErrTruncatedRecord, dataEnd, len(buf))
	}

	return &Record{
		Op:         op,
		Fields:     fields,
		Data:       buf[dataStart:dataEnd],
		Offset:     fileOffset,
		DataOffset: fileOffset + int64(dataStart),
		End:        fileOffset + int64(dataEnd),
		Length:     int64(dataEnd),
	}, nil
}

// --- BagHeader (op 3) ---

// BagHeaderInfo holds the typed header fields of the single BagHeader record
// (spec.md §3).
type BagHeaderInfo struct {
	IndexPos   uint64
	ConnCount  uint32
	ChunkCount uint32
}

func parseBagHeader(r *Record) (*BagHeaderInfo, error) {
	indexPos, err := r.Fields.uint64Val("index_pos")
	if err != nil {
		return nil, err
	}
	connCount, err := r.Fields.uint32Val("conn_count")
	if err != nil {
		return nil, err
	}
	chunkCount, err := r.Fields.uint32Val("chunk_count")
	if err != nil {
		return nil, err
	}
	return &BagHeaderInfo{IndexPos: indexPos, ConnCount: connCount, ChunkCount: chunkCount}, nil
}

// --- Connection (op 7) ---

// ConnectionHeader is the nested header-field blob inside a Connection
// record's data block (spec.md §3 table, row 7).
type ConnectionHeader struct {
	Topic              string
	Type               string
	MD5Sum             string
	MessageDefinition  string
	CallerID           string
	Latching           bool
	latchingFieldFound bool
}

// ConnectionInfo is a fully decoded Connection record: the (conn, topic)
// binding from its header fields, plus the nested connection header decoded
// from its data block.
type ConnectionInfo struct {
	Conn   uint32
	Topic  string
	Header ConnectionHeader

	// codec is populated lazily on first message decode/encode against this
	// connection (spec.md §3 "Ownership/lifecycle", §5 "First read/write
	// against a connection materializes the codec").
	codec *roscodec.Codec
}

// Codec returns this connection's compiled message codec, compiling it from
// Header.MessageDefinition on first use and caching it thereafter.
func (c *ConnectionInfo) Codec() (*roscodec.Codec, error) {
	if c.codec != nil {
		return c.codec, nil
	}
	definitions, err := rosmsg.Parse(c.Header.MessageDefinition)
	if err != nil {
		return nil, fmt.Errorf("rosbag: parsing message definition for connection %d (%s): %w", c.Conn, c.Topic, err)
	}
	schema, err := roscodec.Compile(definitions)
	if err != nil {
		return nil, fmt.Errorf("rosbag: compiling schema for connection %d (%s): %w", c.Conn, c.Topic, err)
	}
	c.codec = roscodec.NewCodec(schema)
	return c.codec, nil
}

func parseConnection(r *Record) (*ConnectionInfo, error) {
	conn, err := r.Fields.uint32Val("conn")
	if err != nil {
		return nil, err
	}
	topic, err := r.Fields.stringVal("topic")
	if err != nil {
		return nil, err
	}

	nested, err := extractFields(r.Data)
	if err != nil {
		return nil, err
	}

	header, err := parseConnectionHeader(nested)
	if err != nil {
		return nil, err
	}

	return &ConnectionInfo{Conn: conn, Topic: topic, Header: *header}, nil
}

func parseConnectionHeader(fields Fields) (*ConnectionHeader, error) {
	header := &ConnectionHeader{}

	typeVal, err := fields.byteVal("type")
	if err != nil {
		return nil, err
	}
	header.Type = string(typeVal)

	md5, err := fields.byteVal("md5sum")
	if err != nil {
		return nil, err
	}
	header.MD5Sum = string(md5)

	def, err := fields.byteVal("message_definition")
	if err != nil {
		return nil, err
	}
	header.MessageDefinition = string(def)

	if topic, ok := fields["topic"]; ok {
		header.Topic = string(topic)
	}
	if callerID, ok := fields["callerid"]; ok {
		header.CallerID = string(callerID)
	}
	if latching, ok := fields["latching"]; ok {
		header.latchingFieldFound = true
		header.Latching = string(latching) == "1"
	}

	return header, nil
}

// --- MessageData (op 2) ---

func parseMessageDataHeader(r *Record) (conn uint32, t Time, err error) {
	conn, err = r.Fields.uint32Val("conn")
	if err != nil {
		return 0, Time{}, err
	}
	t, err = r.Fields.timeVal("time")
	if err != nil {
		return 0, Time{}, err
	}
	return conn, t, nil
}

// --- IndexData (op 4) ---

// IndexEntry is one (time, offset) tuple inside an IndexData record's data
// block; offset is relative to the enclosing chunk's data start (spec.md §3).
type IndexEntry struct {
	Time   Time
	Offset uint32
}

// IndexDataInfo is a fully decoded IndexData record.
type IndexDataInfo struct {
	Ver     uint32
	Conn    uint32
	Count   uint32
	Entries []IndexEntry
}

const indexEntrySize = 4 + 4 + 4 // sec, nsec, offset

func parseIndexData(r *Record) (*IndexDataInfo, error) {
	ver, err := r.Fields.uint32Val("ver")
	if err != nil {
		return nil, err
	}
	conn, err := r.Fields.uint32Val("conn")
	if err != nil {
		return nil, err
	}
	count, err := r.Fields.uint32Val("count")
	if err != nil {
		return nil, err
	}

	want := int(count) * indexEntrySize
	if len(r.Data) < want {
		return nil, fmt.Errorf("%w: IndexData count=%d needs %d bytes, have %d", ErrTruncatedRecord, count, want, len(r.Data))
	}

	entries := make([]IndexEntry, count)
	for i := range entries {
		base := i * indexEntrySize
		entries[i] = IndexEntry{
			Time: Time{
				Sec:  binary.LittleEndian.Uint32(r.Data[base : base+4]),
				Nsec: binary.LittleEndian.Uint32(r.Data[base+4 : base+8]),
			},
			Offset: binary.LittleEndian.Uint32(r.Data[base+8 : base+12]),
		}
	}

	return &IndexDataInfo{Ver: ver, Conn: conn, Count: count, Entries: entries}, nil
}

// --- Chunk (op 5) ---

// ChunkHeader is the typed header of a Chunk record; Data carries the
// (possibly compressed) payload, decompression is the caller's job via the
// decompress registry (spec.md §4.1, §4.4).
type ChunkHeader struct {
	Compression Compression
	Size        uint32 // uncompressed size
}

func parseChunkHeader(r *Record) (*ChunkHeader, error) {
	compression, err := r.Fields.stringVal("compression")
	if err != nil {
		return nil, err
	}
	size, err := r.Fields.uint32Val("size")
	if err != nil {
		return nil, err
	}
	return &ChunkHeader{Compression: Compression(compression), Size: size}, nil
}

// --- ChunkInfo (op 6) ---

// ChunkConnCount is one (conn, count) tuple inside a ChunkInfo record's data
// block (spec.md §3).
type ChunkConnCount struct {
	Conn  uint32
	Count uint32
}

// ChunkInfoRecord is a fully decoded ChunkInfo record, plus bag-reader-owned
// linkage to its successor (spec.md §3 "Ownership/lifecycle": "the bag reader
// may annotate each with a weak pointer to its successor").
type ChunkInfoRecord struct {
	Ver        uint32
	ChunkPos   uint64
	StartTime  Time
	EndTime    Time
	Count      uint32
	ConnCounts []ChunkConnCount

	// Offset of the ChunkInfo record itself, not the chunk it describes;
	// used only for diagnostics.
	Offset int64

	next *ChunkInfoRecord // successor in index order; nil for the last one
}

const chunkConnCountSize = 4 + 4

func parseChunkInfo(r *Record) (*ChunkInfoRecord, error) {
	ver, err := r.Fields.uint32Val("ver")
	if err != nil {
		return nil, err
	}
	chunkPos, err := r.Fields.uint64Val("chunk_pos")
	if err != nil {
		return nil, err
	}
	start, err := r.Fields.timeVal("start_time")
	if err != nil {
		return nil, err
	}
	end, err := r.Fields.timeVal("end_time")
	if err != nil {
		return nil, err
	}
	count, err := r.Fields.uint32Val("count")
	if err != nil {
		return nil, err
	}

	want := int(count) * chunkConnCountSize
	if len(r.Data) < want {
		return nil, fmt.Errorf("%w: ChunkInfo count=%d needs %d bytes, have %d", ErrTruncatedRecord, count, want, len(r.Data))
	}

	connCounts := make([]ChunkConnCount, count)
	for i := range connCounts {
		base := i * chunkConnCountSize
		connCounts[i] = ChunkConnCount{
			Conn:  binary.LittleEndian.Uint32(r.Data[base : base+4]),
			Count: binary.LittleEndian.Uint32(r.Data[base+4 : base+8]),
		}
	}

	return &ChunkInfoRecord{
		Ver:        ver,
		ChunkPos:   chunkPos,
		StartTime:  start,
		EndTime:    end,
		Count:      count,
		ConnCounts: connCounts,
		Offset:     r.Offset,
	}, nil
}

// ChunkByteSize returns the on-disk size of this chunk's Chunk record plus
// its trailing IndexData records, computed from the gap to the next
// ChunkInfo's chunk_pos (spec.md §4.4 step 4). It panics if called on the
// last ChunkInfo and no explicit end offset is supplied by the caller; use
// ChunkByteSizeTo for that case.
func (c *ChunkInfoRecord) ChunkByteSize() int64 {
	if c.next == nil {
		panic("rosbag: ChunkByteSize called on the last ChunkInfo; use ChunkByteSizeTo")
	}
	return int64(c.next.ChunkPos) - int64(c.ChunkPos)
}

// ChunkByteSizeTo returns the chunk's on-disk size given an explicit end
// offset (the bag's index_pos, for the last chunk).
func (c *ChunkInfoRecord) ChunkByteSizeTo(end int64) int64 {
	if c.next != nil {
		return c.ChunkByteSize()
	}
	return end - int64(c.ChunkPos)
}
