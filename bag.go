package rosbag

import (
	"context"
	"fmt"

	"github.com/foxglove-labs/go-rosbag/decompress"
	"github.com/foxglove-labs/go-rosbag/roscodec"
	"github.com/foxglove-labs/go-rosbag/source"
)

// Bag is the public façade over a BagReader (spec.md §6 "Public read API").
// Open populates connection and chunk metadata eagerly; ReadMessages then
// streams decoded messages on demand.
type Bag struct {
	reader *BagReader
}

// Open opens src as a ROS bag v2.0 file, populating connection and chunk
// metadata (spec.md §6 "open(source) → Bag").
func Open(ctx context.Context, src source.Source) (*Bag, error) {
	reader, err := OpenBagReader(ctx, src)
	if err != nil {
		return nil, err
	}
	return &Bag{reader: reader}, nil
}

// Close releases the bag's underlying source.
func (b *Bag) Close() error { return b.reader.Close() }

// StartTime and EndTime bound the bag's message timestamps (spec.md §4.4
// step 5); both are the zero Time for an empty bag.
func (b *Bag) StartTime() Time { return b.reader.StartTime }
func (b *Bag) EndTime() Time   { return b.reader.EndTime }

// Connections returns the bag's connection metadata, keyed by connection id.
func (b *Bag) Connections() map[uint32]*ConnectionInfo { return b.reader.Connections }

// ChunkCount returns the number of chunks in the bag's index, without
// reading any chunk body.
func (b *Bag) ChunkCount() int { return len(b.reader.ChunkInfos) }

// MessageCounts aggregates each connection's message count across every
// ChunkInfo in the bag's index (spec.md §3 ChunkInfo.ConnCounts). This reads
// only tail-section metadata already parsed at Open; it never decompresses a
// chunk.
func (b *Bag) MessageCounts() map[uint32]uint64 {
	counts := make(map[uint32]uint64, len(b.reader.Connections))
	for _, info := range b.reader.ChunkInfos {
		for _, cc := range info.ConnCounts {
			counts[cc.Conn] += uint64(cc.Count)
		}
	}
	return counts
}

// ReadOptions configures ReadMessages (spec.md §6).
type ReadOptions struct {
	// Topics restricts delivery to these topics; nil/empty means all topics.
	Topics []string
	// StartTime bounds delivered message timestamps, inclusive; its zero
	// value defaults to MinTime, which is itself the zero Time, so there is
	// no unset/zero ambiguity on this end of the window.
	StartTime Time
	// EndTime bounds delivered message timestamps, inclusive; nil means
	// unbounded (defaults to MaxTime). EndTime is a pointer rather than a
	// bare Time so that an explicit Time{0, 0} upper bound — a degenerate
	// but legal window when StartTime is also zero — is distinguishable
	// from "caller didn't set an end time".
	EndTime *Time
	// Decompress overrides the registry used to inflate compressed chunks;
	// nil keeps the bag's current registry (decompress.Default() unless
	// BagReader.WithDecompressRegistry was called).
	Decompress decompress.Registry
	// NoParse skips message-body decoding; ReadResult.Message is nil and
	// only Data carries the raw bytes.
	NoParse bool
	// Freeze renders decoded values immutable (roscodec.ErrFrozen on Set).
	Freeze bool
}

// ReadResult is delivered once per message by ReadMessages (spec.md §6).
type ReadResult struct {
	Topic       string
	Message     *roscodec.Message // nil when ReadOptions.NoParse is set
	Timestamp   Time
	Data        []byte // raw MessageData body
	ChunkOffset int    // index of the producing chunk within the bag's chunk list
	TotalChunks int    // total chunks visited by this call
}

// Sink receives one ReadResult per message; returning an error aborts the
// read and is propagated to ReadMessages' caller.
type Sink func(ReadResult) error

// ReadMessages streams every message matching options to sink, visiting
// chunks in bag-stored order (spec.md §5 "Ordering guarantees"): within a
// chunk, delivery is in non-decreasing timestamp order; across chunks, the
// façade concatenates per-chunk outputs without a global re-sort.
func (b *Bag) ReadMessages(ctx context.Context, options ReadOptions, sink Sink) error {
	if options.Decompress != nil {
		b.reader.WithDecompressRegistry(options.Decompress)
	}

	start := options.StartTime
	end := MaxTime
	if options.EndTime != nil {
		end = *options.EndTime
	}

	var topicFilter map[string]bool
	if len(options.Topics) > 0 {
		topicFilter = make(map[string]bool, len(options.Topics))
		for _, t := range options.Topics {
			topicFilter[t] = true
		}
	}

	allowedConns := make(map[uint32]bool, len(b.reader.Connections))
	for id, conn := range b.reader.Connections {
		if topicFilter == nil || topicFilter[conn.Topic] {
			allowedConns[id] = true
		}
	}

	totalChunks := 0
	for _, chunkInfo := range b.reader.ChunkInfos {
		if !chunkInfo.EndTime.Before(start) && !chunkInfo.StartTime.After(end) {
			totalChunks++
		}
	}
	for chunkOffset, chunkInfo := range b.reader.ChunkInfos {
		if chunkInfo.EndTime.Before(start) || chunkInfo.StartTime.After(end) {
			continue
		}

		entry, err := b.reader.readChunk(ctx, chunkInfo)
		if err != nil {
			return fmt.Errorf("rosbag: reading chunk %d: %w", chunkOffset, err)
		}

		filtered := make(map[uint32][]IndexEntry, len(entry.indices))
		var order []uint32
		for _, cc := range chunkInfo.ConnCounts {
			if !allowedConns[cc.Conn] {
				continue
			}
			if entries, ok := entry.indices[cc.Conn]; ok {
				filtered[cc.Conn] = entries
				order = append(order, cc.Conn)
			}
		}

		iter := newChunkMessageIterator(filtered, order, start, end)
		for {
			msg, ok := iter.next()
			if !ok {
				break
			}

			rec, err := frameRecord(entry.data[msg.offset:], int64(chunkInfo.ChunkPos)+int64(msg.offset), OpMessageData)
			if err != nil {
				return fmt.Errorf("rosbag: framing message at chunk %d offset %d: %w", chunkOffset, msg.offset, err)
			}

			conn := b.reader.Connections[msg.conn]
			result := ReadResult{
				Topic:       conn.Topic,
				Timestamp:   msg.time,
				Data:        rec.Data,
				ChunkOffset: chunkOffset,
				TotalChunks: totalChunks,
			}

			if !options.NoParse {
				codec, err := conn.Codec()
				if err != nil {
					return err
				}
				decoded, err := codec.ReadMessage(rec.Data, options.Freeze)
				if err != nil {
					return fmt.Errorf("rosbag: decoding message on topic %q: %w", conn.Topic, err)
				}
				result.Message = decoded
			}

			if err := sink(result); err != nil {
				return err
			}
		}
	}

	return nil
}
