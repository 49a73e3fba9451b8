package rosbag

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxglove-labs/go-rosbag/decompress"
	"github.com/foxglove-labs/go-rosbag/source"
)

// Preamble is the 13-byte literal every ROS bag v2.0 file starts with
// (spec.md §6).
const Preamble = "#ROSBAG V2.0\n"

// headerReadAhead bounds the single I/O used to frame the BagHeader record
// (spec.md §4.4 step 2).
const headerReadAhead = 4096

// ErrNotABag is returned by Open when the source's first 13 bytes don't
// match Preamble (spec.md §4.4 step 1, §7 NotABag).
var ErrNotABag = errors.New("rosbag: not a ROS bag v2.0 file (bad preamble)")

// chunkCacheEntry is the BagReader's single-slot chunk cache (spec.md §4.4
// "Chunk read protocol", §5 "single-slot chunk cache").
type chunkCacheEntry struct {
	chunkInfo *ChunkInfoRecord
	data      []byte // decompressed chunk payload
	indices   map[uint32][]IndexEntry
}

// BagReader owns the open bag's metadata (connections, chunk index) and the
// single-slot chunk cache. It is not safe for concurrent use (spec.md §5).
type BagReader struct {
	src source.Source

	Header      BagHeaderInfo
	Connections map[uint32]*ConnectionInfo
	ChunkInfos  []*ChunkInfoRecord
	StartTime   Time
	EndTime     Time

	decompress decompress.Registry
	cache      *chunkCacheEntry
}

// OpenBagReader implements the open protocol of spec.md §4.4: it validates
// the preamble, frames the BagHeader record, then frames every Connection
// and ChunkInfo record from the tail and links the ChunkInfos into successor
// order.
func OpenBagReader(ctx context.Context, src source.Source) (*BagReader, error) {
	preamble, err := src.Read(ctx, 0, uint64(len(Preamble)))
	if err != nil {
		return nil, fmt.Errorf("rosbag: reading preamble: %w", err)
	}
	if string(preamble) != Preamble {
		return nil, ErrNotABag
	}

	size, err := src.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("rosbag: reading size: %w", err)
	}

	readAhead := uint64(headerReadAhead)
	if remaining := size - uint64(len(Preamble)); remaining < readAhead {
		readAhead = remaining
	}
	headBuf, err := src.Read(ctx, uint64(len(Preamble)), readAhead)
	if err != nil {
		return nil, fmt.Errorf("rosbag: reading bag header: %w", err)
	}

	headerOffset := int64(len(Preamble))
	headerRecord, err := frameRecord(headBuf, headerOffset, OpBagHeader)
	if err != nil {
		return nil, fmt.Errorf("rosbag: framing bag header: %w", err)
	}
	header, err := parseBagHeader(headerRecord)
	if err != nil {
		return nil, fmt.Errorf("rosbag: decoding bag header: %w", err)
	}

	r := &BagReader{
		src:         src,
		Header:      *header,
		Connections: make(map[uint32]*ConnectionInfo, header.ConnCount),
		decompress:  decompress.Default(),
	}

	if header.ConnCount == 0 {
		return r, nil
	}

	tail, err := src.Read(ctx, header.IndexPos, size-header.IndexPos)
	if err != nil {
		return nil, fmt.Errorf("rosbag: reading index section: %w", err)
	}

	offset := int64(header.IndexPos)
	var tailOffset int
	for i := uint32(0); i < header.ConnCount; i++ {
		rec, err := frameRecord(tail[tailOffset:], offset+int64(tailOffset), OpConnection)
		if err != nil {
			return nil, fmt.Errorf("rosbag: framing connection %d: %w", i, err)
		}
		conn, err := parseConnection(rec)
		if err != nil {
			return nil, fmt.Errorf("rosbag: decoding connection %d: %w", i, err)
		}
		r.Connections[conn.Conn] = conn
		tailOffset += int(rec.Length)
	}

	var prev *ChunkInfoRecord
	for i := uint32(0); i < header.ChunkCount; i++ {
		rec, err := frameRecord(tail[tailOffset:], offset+int64(tailOffset), OpChunkInfo)
		if err != nil {
			return nil, fmt.Errorf("rosbag: framing chunk info %d: %w", i, err)
		}
		info, err := parseChunkInfo(rec)
		if err != nil {
			return nil, fmt.Errorf("rosbag: decoding chunk info %d: %w", i, err)
		}
		if prev != nil {
			prev.next = info
		}
		prev = info
		r.ChunkInfos = append(r.ChunkInfos, info)
		tailOffset += int(rec.Length)
	}

	if len(r.ChunkInfos) > 0 {
		r.StartTime, r.EndTime = r.ChunkInfos[0].StartTime, r.ChunkInfos[0].EndTime
		for _, info := range r.ChunkInfos[1:] {
			if info.StartTime.Before(r.StartTime) {
				r.StartTime = info.StartTime
			}
			if info.EndTime.After(r.EndTime) {
				r.EndTime = info.EndTime
			}
		}
	}

	return r, nil
}

// WithDecompressRegistry overrides the registry used to inflate compressed
// chunks; by default OpenBagReader installs decompress.Default().
func (r *BagReader) WithDecompressRegistry(registry decompress.Registry) {
	r.decompress = registry
}

// readChunk implements the chunk read protocol of spec.md §4.4: single-slot
// cache, decompression via the registry, and IndexData framing.
func (r *BagReader) readChunk(ctx context.Context, info *ChunkInfoRecord) (*chunkCacheEntry, error) {
	if r.cache != nil && r.cache.chunkInfo == info {
		return r.cache, nil
	}

	byteSize := info.ChunkByteSizeTo(int64(r.Header.IndexPos))
	buf, err := r.src.Read(ctx, uint64(info.ChunkPos), uint64(byteSize))
	if err != nil {
		return nil, fmt.Errorf("rosbag: reading chunk at %d: %w", info.ChunkPos, err)
	}

	chunkRecord, err := frameRecord(buf, int64(info.ChunkPos), OpChunk)
	if err != nil {
		return nil, fmt.Errorf("rosbag: framing chunk at %d: %w", info.ChunkPos, err)
	}
	chunkHeader, err := parseChunkHeader(chunkRecord)
	if err != nil {
		return nil, fmt.Errorf("rosbag: decoding chunk header at %d: %w", info.ChunkPos, err)
	}

	data := chunkRecord.Data
	if chunkHeader.Compression != CompressionNone {
		decompressFn, err := r.decompress.Lookup(string(chunkHeader.Compression))
		if err != nil {
			return nil, err
		}
		data, err = decompressFn(data, chunkHeader.Size)
		if err != nil {
			return nil, fmt.Errorf("rosbag: decompressing chunk at %d: %w", info.ChunkPos, err)
		}
	}

	indices := make(map[uint32][]IndexEntry, len(info.ConnCounts))
	indexBuf := buf[chunkRecord.Length:]
	var indexOffset int
	for i := uint32(0); i < info.Count; i++ {
		rec, err := frameRecord(indexBuf[indexOffset:], int64(info.ChunkPos)+chunkRecord.Length+int64(indexOffset), OpIndexData)
		if err != nil {
			return nil, fmt.Errorf("rosbag: framing index data %d at chunk %d: %w", i, info.ChunkPos, err)
		}
		idx, err := parseIndexData(rec)
		if err != nil {
			return nil, fmt.Errorf("rosbag: decoding index data %d at chunk %d: %w", i, info.ChunkPos, err)
		}
		indices[idx.Conn] = append(indices[idx.Conn], idx.Entries...)
		indexOffset += int(rec.Length)
	}

	entry := &chunkCacheEntry{chunkInfo: info, data: data, indices: indices}
	r.cache = entry
	return entry, nil
}

// Close releases the underlying source.
func (r *BagReader) Close() error {
	return r.src.Close()
}
