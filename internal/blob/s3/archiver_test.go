package s3blob

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehupin/marcobot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	paths []string
	body  []byte
	err   error
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.body = body
	return nil
}

type fakeOpportunityStore struct {
	opps    []domain.Opportunity
	deleted bool
	listErr error
}

func (f *fakeOpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	return nil
}

func (f *fakeOpportunityStore) MarkExecuted(ctx context.Context, id string) error {
	return nil
}

func (f *fakeOpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (f *fakeOpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	return f.opps, f.listErr
}

func (f *fakeOpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	f.deleted = true
	return int64(len(f.opps)), nil
}

func testOpportunities(n int) []domain.Opportunity {
	opps := make([]domain.Opportunity, n)
	for i := range opps {
		opps[i] = domain.Opportunity{
			ID:         string(rune('a' + i)),
			DetectedAt: time.Date(2026, 5, 1+i, 0, 0, 0, 0, time.UTC),
		}
	}
	return opps
}

func TestArchiveOpportunities(t *testing.T) {
	writer := &fakeWriter{}
	store := &fakeOpportunityStore{opps: testOpportunities(2)}
	a := NewArchiver(writer, store, testLogger())

	cutoff := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	count, err := a.ArchiveOpportunities(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, store.deleted)

	require.Len(t, writer.paths, 1)
	assert.Equal(t, "archive/opportunities/2026-08/20260815T120000Z.jsonl", writer.paths[0])
	// One JSON document per line.
	assert.Equal(t, 2, len(splitLines(writer.body)))
}

func TestArchiveOpportunitiesEmpty(t *testing.T) {
	writer := &fakeWriter{}
	store := &fakeOpportunityStore{}
	a := NewArchiver(writer, store, testLogger())

	count, err := a.ArchiveOpportunities(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.paths)
	assert.False(t, store.deleted)
}

func TestArchiveOpportunitiesUploadFailureKeepsRows(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bucket gone")}
	store := &fakeOpportunityStore{opps: testOpportunities(1)}
	a := NewArchiver(writer, store, testLogger())

	_, err := a.ArchiveOpportunities(context.Background(), time.Now())
	require.Error(t, err)
	assert.False(t, store.deleted, "rows must survive a failed upload")
}

func TestArchivePathsUniquePerRun(t *testing.T) {
	first := archivePath("opportunities", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	second := archivePath("opportunities", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, first, second, "two runs in the same month must not share an object key")
}

func splitLines(body []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range body {
		if b == '\n' {
			lines = append(lines, body[start:i])
			start = i + 1
		}
	}
	if start < len(body) {
		lines = append(lines, body[start:])
	}
	return lines
}
