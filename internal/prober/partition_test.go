package prober

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		start     int64
		stop      int64
		workers   int
		perWorker int
		want      int
	}{
		{name: "bounded stop ignores per-worker", start: 1, stop: 1000, workers: 3, perWorker: 100, want: 333},
		{name: "unbounded uses per-worker", start: 1, stop: Unbounded, workers: 3, perWorker: 7, want: 7},
		{name: "bounded split rounds up", start: 1, stop: 11, workers: 3, want: 4},
		{name: "bounded span excludes start", start: 1, stop: 10, workers: 3, want: 3},
		{name: "bounded even split", start: 0, stop: 100, workers: 4, want: 25},
		{name: "unbounded default", start: 1, stop: Unbounded, workers: 3, want: DefaultChunkSize},
		{name: "empty range", start: 10, stop: 5, workers: 2, want: 0},
		{name: "single id range", start: 5, stop: 5, workers: 2, want: 0},
		{name: "zero workers treated as one", start: 1, stop: 10, workers: 0, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ChunkSize(tt.start, tt.stop, tt.workers, tt.perWorker))
		})
	}
}

func TestPartition_BoundedRange(t *testing.T) {
	t.Parallel()

	size := ChunkSize(1, 11, 3, 0)
	chunks := Partition(NewStream(1, 11, 6), 3, size)

	require.Equal(t, [][]int64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11},
	}, chunks)
}

func TestPartition_RangeDerivedSizeLeavesStopUnassigned(t *testing.T) {
	t.Parallel()

	chunks := Partition(NewStream(1, 10, 6), 3, ChunkSize(1, 10, 3, 0))
	require.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, chunks)
}

func TestPartition_DisjointAndOrdered(t *testing.T) {
	t.Parallel()

	chunks := Partition(NewStream(1, Unbounded, 6), 4, 25)
	require.Len(t, chunks, 4)

	seen := make(map[int64]struct{})
	var prev int64
	for _, chunk := range chunks {
		require.Len(t, chunk, 25)
		for _, id := range chunk {
			_, dup := seen[id]
			require.False(t, dup, "id %d assigned twice", id)
			seen[id] = struct{}{}
			require.Greater(t, id, prev)
			prev = id
		}
	}
}

func TestPartition_DropsShortTrailingChunk(t *testing.T) {
	t.Parallel()

	// 9 ids in chunks of 4 leaves a single id for the third worker.
	chunks := Partition(NewStream(1, 9, 6), 3, 4)
	require.Len(t, chunks, 2)
	require.Equal(t, []int64{5, 6, 7, 8}, chunks[1])
}

func TestPartition_SingleIDRangeStartsNoWorker(t *testing.T) {
	t.Parallel()

	chunks := Partition(NewStream(5, 5, 6), 2, ChunkSize(5, 5, 2, 0))
	require.Empty(t, chunks)
}

func TestPartition_UnboundedPerWorker(t *testing.T) {
	t.Parallel()

	chunks := Partition(NewStream(1, Unbounded, 6), 2, 5)
	require.Equal(t, [][]int64{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}}, chunks)
}
