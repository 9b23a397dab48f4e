package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-prober/internal/prober"
	"github.com/JakeFAU/catalog-prober/internal/storage"
	"github.com/JakeFAU/catalog-prober/internal/storage/memory"
)

func summary() prober.RunSummary {
	return prober.RunSummary{
		RunID:      "0190f1c2-run",
		Target:     "snipes",
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000060, 0).UTC(),
		Requested:  3,
		Workers:    3,
		ChunkSize:  4,
		Discovered: []int64{5},
		Unresolved: []int64{9},
		Stats:      prober.StatsSnapshot{Checked: 10, Found: 1},
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	w := New(blobs, "/runs/")

	uri, err := w.WriteReport(context.Background(), summary())
	require.NoError(t, err)
	require.Equal(t, "memory://runs/snipes/0190f1c2-run.json", uri)

	data, ok := blobs.Object("runs/snipes/0190f1c2-run.json")
	require.True(t, ok)
	var got prober.RunSummary
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, summary(), got)
}

func TestWriteReport_NoPrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "snipes/0190f1c2-run.json", New(memory.NewBlobStore(), "").Path(summary()))
}

func TestWriteReport_PropagatesStoreError(t *testing.T) {
	t.Parallel()

	blobs := &storage.MockBlobStore{}
	blobs.On("PutObject", mock.Anything, "reports/snipes/0190f1c2-run.json", "application/json", mock.Anything).
		Return("", errors.New("bucket gone"))

	_, err := New(blobs, "reports").WriteReport(context.Background(), summary())
	require.Error(t, err)
	require.Contains(t, err.Error(), "put run summary")
	blobs.AssertExpectations(t)
}

func TestWriteReport_RequiresRunID(t *testing.T) {
	t.Parallel()

	_, err := New(memory.NewBlobStore(), "").WriteReport(context.Background(), prober.RunSummary{Target: "size"})
	require.Error(t, err)
}
