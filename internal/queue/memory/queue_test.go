package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

func TestQueuePushDrain(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	require.Nil(t, q.Drain())

	q.Push(prober.DiscoveryEvent{ID: 1})
	q.Push(prober.DiscoveryEvent{ID: 2})
	require.Equal(t, 2, q.Len())

	got := q.Drain()
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, int64(2), got[1].ID)
	require.Zero(t, q.Len())
	require.Nil(t, q.Drain())
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Push(prober.DiscoveryEvent{ID: int64(w*1000 + i), Worker: w})
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[int64]struct{})
	for _, ev := range q.Drain() {
		seen[ev.ID] = struct{}{}
	}
	require.Len(t, seen, 400)
	require.Equal(t, 400, q.Pushed())
}
