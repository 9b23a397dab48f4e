// Package report persists a JSON summary of each scrape run to a blob store.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/catalog-prober/internal/prober"
	"github.com/JakeFAU/catalog-prober/internal/storage"
)

// Writer implements prober.ReportWriter.
type Writer struct {
	blobs  storage.BlobStore
	prefix string
}

// New returns a Writer storing reports under prefix.
func New(blobs storage.BlobStore, prefix string) *Writer {
	return &Writer{blobs: blobs, prefix: strings.Trim(prefix, "/")}
}

// Path returns the object path for summary: <prefix>/<target>/<run id>.json.
func (w *Writer) Path(summary prober.RunSummary) string {
	name := summary.RunID + ".json"
	if w.prefix == "" {
		return path.Join(summary.Target, name)
	}
	return path.Join(w.prefix, summary.Target, name)
}

// WriteReport marshals summary and stores it, returning the blob URI.
func (w *Writer) WriteReport(ctx context.Context, summary prober.RunSummary) (string, error) {
	if summary.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run summary: %w", err)
	}
	uri, err := w.blobs.PutObject(ctx, w.Path(summary), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("put run summary: %w", err)
	}
	return uri, nil
}
