package rosbag

import "container/heap"

// chunkMessage is one entry produced by the chunk message iterator: a
// connection id, its message time, and the byte offset of its MessageData
// record within the chunk's (decompressed) data block.
type chunkMessage struct {
	conn   uint32
	time   Time
	offset uint32
}

// connCursor tracks one connection's position within its pre-sorted index
// list during the k-way merge (spec.md §4.5).
type connCursor struct {
	conn    uint32
	entries []IndexEntry
	pos     int // next unconsumed entry
	rank    int // position of this connection in the input iterable list
}

func (c *connCursor) exhausted() bool { return c.pos >= len(c.entries) }
func (c *connCursor) front() IndexEntry {
	return c.entries[c.pos]
}

// cursorHeap is a min-heap of connCursors ordered by their front entry's
// time, then by the connection's rank (spec.md §4.5 "ties broken by the
// connection's position in the input iterable list, then by entry order" —
// within one connection's own list, entries are already strictly ordered, so
// once rank disambiguates the connection, entry order follows automatically).
type cursorHeap []*connCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if c := a.front().Time.Compare(b.front().Time); c != 0 {
		return c < 0
	}
	return a.rank < b.rank
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x interface{}) {
	*h = append(*h, x.(*connCursor))
}
func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// chunkMessageIterator performs the k-way merge over a chunk's per-connection
// index lists described in spec.md §4.5. It is single-pass: each call to
// next() consumes the entries before start that it skips, plus the one it
// returns.
type chunkMessageIterator struct {
	heap  cursorHeap
	start Time
	end   Time
}

// newChunkMessageIterator builds the iterator from per-connection index
// lists, already filtered to the requested connection set. order gives each
// connection's rank in the caller's iterable order (spec.md tie-break rule);
// callers that don't care about a specific order may pass the map in any
// consistent iteration.
func newChunkMessageIterator(indices map[uint32][]IndexEntry, order []uint32, start, end Time) *chunkMessageIterator {
	it := &chunkMessageIterator{start: start, end: end}
	for rank, conn := range order {
		entries := indices[conn]
		if len(entries) == 0 {
			continue
		}
		it.heap = append(it.heap, &connCursor{conn: conn, entries: entries, rank: rank})
	}
	heap.Init(&it.heap)
	return it
}

// next returns the next message in non-decreasing time order, or ok=false
// once the window [start, end] is exhausted.
func (it *chunkMessageIterator) next() (msg chunkMessage, ok bool) {
	for {
		if it.heap.Len() == 0 {
			return chunkMessage{}, false
		}

		top := it.heap[0]
		entry := top.front()

		if entry.Time.After(it.end) {
			return chunkMessage{}, false
		}

		top.pos++
		if top.exhausted() {
			heap.Pop(&it.heap)
		} else {
			heap.Fix(&it.heap, 0)
		}

		if entry.Time.Before(it.start) {
			continue
		}

		return chunkMessage{conn: top.conn, time: entry.Time, offset: entry.Offset}, true
	}
}
