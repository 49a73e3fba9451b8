package rosbag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func entry(sec uint32, offset uint32) IndexEntry {
	return IndexEntry{Time: Time{Sec: sec}, Offset: offset}
}

func drain(it *chunkMessageIterator) []chunkMessage {
	var out []chunkMessage
	for {
		m, ok := it.next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func TestChunkMessageIteratorMergesByTime(t *testing.T) {
	indices := map[uint32][]IndexEntry{
		0: {entry(1, 0), entry(4, 10)},
		1: {entry(2, 20), entry(3, 30)},
	}
	it := newChunkMessageIterator(indices, []uint32{0, 1}, MinTime, MaxTime)
	got := drain(it)

	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].time.Before(got[i-1].time), "output must be non-decreasing by time")
	}
	require.Equal(t, []uint32{1, 2, 3, 4}, []uint32{got[0].time.Sec, got[1].time.Sec, got[2].time.Sec, got[3].time.Sec})
}

func TestChunkMessageIteratorTieBreaksByRank(t *testing.T) {
	indices := map[uint32][]IndexEntry{
		0: {entry(5, 0)},
		1: {entry(5, 10)},
	}
	it := newChunkMessageIterator(indices, []uint32{1, 0}, MinTime, MaxTime)
	got := drain(it)

	require.Len(t, got, 2)
	require.Equal(t, uint32(1), got[0].conn, "connection earlier in the iterable order wins a time tie")
	require.Equal(t, uint32(0), got[1].conn)
}

func TestChunkMessageIteratorTimeWindow(t *testing.T) {
	indices := map[uint32][]IndexEntry{
		0: {entry(1, 0), entry(2, 10), entry(3, 20), entry(4, 30)},
	}
	it := newChunkMessageIterator(indices, []uint32{0}, Time{Sec: 2}, Time{Sec: 3})
	got := drain(it)

	require.Len(t, got, 2)
	require.Equal(t, uint32(2), got[0].time.Sec)
	require.Equal(t, uint32(3), got[1].time.Sec)
}

func TestChunkMessageIteratorEmptyConnection(t *testing.T) {
	it := newChunkMessageIterator(map[uint32][]IndexEntry{}, nil, MinTime, MaxTime)
	got := drain(it)
	require.Empty(t, got)
}
