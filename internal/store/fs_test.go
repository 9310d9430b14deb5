package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

func TestFSSourceListAndOpen(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF "+name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	src := NewFSSource(dir)
	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PDF", "b.pdf"}, ids)

	data, err := src.Open(context.Background(), "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF b.pdf", string(data))

	_, err = src.Open(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = src.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFSRecordStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "extracted")
	s := NewFSRecordStore(dir, nil)

	has, err := s.HasRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.SaveBatch(ctx, 1, []entity.ExtractionRecord{
		{DocumentID: "b.pdf", Pages: []string{"b1", "b2"}},
		{DocumentID: "a.pdf", Pages: []string{"a1"}},
	}))
	require.NoError(t, s.SaveBatch(ctx, 2, []entity.ExtractionRecord{
		{DocumentID: "c.pdf", Pages: []string{}},
	}))

	_, err = os.Stat(filepath.Join(dir, "batch_0001.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "batch_0002.json"))
	require.NoError(t, err)

	has, err = s.HasRecords(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.ExtractionRecord{
		{DocumentID: "a.pdf", Pages: []string{"a1"}},
		{DocumentID: "b.pdf", Pages: []string{"b1", "b2"}},
		{DocumentID: "c.pdf", Pages: []string{}},
	}, got)
}

func TestFSRecordStoreArtifactShape(t *testing.T) {
	dir := t.TempDir()
	s := NewFSRecordStore(dir, nil)
	require.NoError(t, s.SaveBatch(context.Background(), 7, []entity.ExtractionRecord{
		{DocumentID: "x.pdf", Pages: []string{"page one", "page two"}},
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "batch_0007.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x.pdf":["page one","page two"]}`, string(raw))
}

func TestFSRecordStoreSkipsCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch_0001.json"), []byte("{not json"), 0o644))
	s := NewFSRecordStore(dir, nil)
	require.NoError(t, s.SaveBatch(context.Background(), 2, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"x"}}}))

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBatchObjectName(t *testing.T) {
	assert.Equal(t, "batch_0001.json", BatchObjectName(1))
	assert.Equal(t, "batch_0123.json", BatchObjectName(123))
}

func TestCleanPrefix(t *testing.T) {
	assert.Equal(t, "", cleanPrefix(""))
	assert.Equal(t, "claims/", cleanPrefix("/claims/"))
	assert.Equal(t, "a/b/", cleanPrefix("a//b"))
}

func TestParseBatchObjectName(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"batch_0001.json", 1, true},
		{"claims/batch_1001.json", 1001, true},
		{`out\batch_0042.json`, 42, true},
		{"batch_10000.json", 10000, true},
		{"batch_0000.json", 0, false},
		{"batch_x.json", 0, false},
		{"report.json", 0, false},
		{"batch_0001.xlsx", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := ParseBatchObjectName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestFSRecordStoreLastBatch(t *testing.T) {
	ctx := context.Background()
	s := NewFSRecordStore(t.TempDir(), nil)

	last, err := s.LastBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	require.NoError(t, s.SaveBatch(ctx, 1001, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"x"}}}))
	require.NoError(t, s.SaveBatch(ctx, 1, []entity.ExtractionRecord{{DocumentID: "b.pdf", Pages: []string{"y"}}}))

	last, err = s.LastBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1001, last)
}

func TestNextBatchFloorOnEmptyStore(t *testing.T) {
	n, err := NextBatch(context.Background(), NewFSRecordStore(t.TempDir(), nil), 1001)
	require.NoError(t, err)
	assert.Equal(t, 1001, n)
}

func TestAppenderDoesNotOverwriteEarlierSession(t *testing.T) {
	ctx := context.Background()
	s := NewFSRecordStore(t.TempDir(), nil)

	first, err := NewAppender(ctx, s, 1001)
	require.NoError(t, err)
	n, err := first.Append(ctx, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"first"}}})
	require.NoError(t, err)
	assert.Equal(t, 1001, n)

	// a restarted session with the same floor
	second, err := NewAppender(ctx, s, 1001)
	require.NoError(t, err)
	n, err = second.Append(ctx, []entity.ExtractionRecord{{DocumentID: "b.pdf", Pages: []string{"second"}}})
	require.NoError(t, err)
	assert.Equal(t, 1002, n)

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.ExtractionRecord{
		{DocumentID: "a.pdf", Pages: []string{"first"}},
		{DocumentID: "b.pdf", Pages: []string{"second"}},
	}, got)
}

func TestFSRecordStoreLoadsBatchesInNumericOrder(t *testing.T) {
	ctx := context.Background()
	s := NewFSRecordStore(t.TempDir(), nil)
	require.NoError(t, s.SaveBatch(ctx, 10000, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"newer"}}}))
	require.NoError(t, s.SaveBatch(ctx, 9999, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"older"}}}))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.ExtractionRecord{{DocumentID: "a.pdf", Pages: []string{"newer"}}}, got)
}
