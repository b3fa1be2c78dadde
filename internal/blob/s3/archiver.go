package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ehupin/marcobot/internal/domain"
)

// BlobWriter is the narrow upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves old opportunity rows out of the primary store: records
// detected before the cutoff are serialized to JSONL, uploaded under
// archive/opportunities/, and only then deleted.
type Archiver struct {
	writer BlobWriter
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer BlobWriter, store domain.OpportunityStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveOpportunities archives every opportunity detected before the cutoff
// and returns the number of records moved. The upload must succeed before
// anything is deleted.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities delete: %w", err)
	}

	a.logger.Info("opportunities archived",
		slog.String("path", path),
		slog.Int("archived", len(opps)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(opps)), nil
}

// archivePath names archive objects by cutoff month and exact cutoff instant,
// e.g. archive/opportunities/2026-08/20260815T120000Z.jsonl, so repeated runs
// within a month never overwrite an earlier batch.
func archivePath(kind string, before time.Time) string {
	t := before.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, t.Format("2006-01"), t.Format("20060102T150405Z"))
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ BlobWriter = (*Writer)(nil)
