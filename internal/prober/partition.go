package prober

const (
	// DefaultChunkSize applies when no per-worker count is given and the stream is unbounded.
	DefaultChunkSize = 100
	// MinChunkSize is the smallest chunk that gets a worker; shorter chunks are dropped.
	MinChunkSize = 2
)

// ChunkSize resolves how many ids each worker receives. A bounded stop
// splits the span stop-start across the workers, rounding up, and ignores
// perWorker; an unbounded stream uses perWorker, or DefaultChunkSize when it
// is zero.
func ChunkSize(start, stop int64, workers, perWorker int) int {
	if stop != Unbounded {
		if workers <= 0 {
			workers = 1
		}
		span := stop - start
		if span <= 0 {
			return 0
		}
		w := int64(workers)
		return int((span + w - 1) / w)
	}
	if perWorker > 0 {
		return perWorker
	}
	return DefaultChunkSize
}

// Partition pulls size ids from the stream for each of the requested workers
// and returns the resulting chunks. Chunks shorter than MinChunkSize are
// dropped, so fewer chunks than workers come back once the stream runs dry.
func Partition(s *Stream, workers, size int) [][]int64 {
	chunks := make([][]int64, 0, workers)
	for i := 0; i < workers; i++ {
		chunk := make([]int64, 0, size)
		for j := 0; j < size; j++ {
			id, ok := s.Next()
			if !ok {
				break
			}
			chunk = append(chunk, id)
		}
		if len(chunk) >= MinChunkSize {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
