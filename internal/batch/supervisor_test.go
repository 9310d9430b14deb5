package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

type memSource struct {
	ids []string
}

func (m *memSource) List(context.Context) ([]string, error) {
	out := append([]string(nil), m.ids...)
	sort.Strings(out)
	return out, nil
}

func (m *memSource) Open(_ context.Context, id string) ([]byte, error) {
	if id == "unreadable.pdf" {
		return nil, common.ErrNotFound
	}
	return []byte(id), nil
}

type memRecords struct {
	ev      *events
	mu      sync.Mutex
	batches map[int][]entity.ExtractionRecord
	err     error
}

func (m *memRecords) SaveBatch(_ context.Context, n int, records []entity.ExtractionRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batches == nil {
		m.batches = map[int][]entity.ExtractionRecord{}
	}
	m.batches[n] = records
	m.ev.add(fmt.Sprintf("save %d", n))
	return nil
}

func (m *memRecords) LoadAll(context.Context) ([]entity.ExtractionRecord, error) {
	return nil, nil
}

func (m *memRecords) HasRecords(context.Context) (bool, error) { return len(m.batches) > 0, nil }

func (m *memRecords) LastBatch(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for n := range m.batches {
		if n > last {
			last = n
		}
	}
	return last, nil
}

// fakeExtractor fails documents named in pageFail on every page and
// documents in openFail at open time.
type fakeExtractor struct {
	ev       *events
	pageFail map[string]bool
	openFail map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, id string, _ []byte, _ int) (ocr.Result, error) {
	f.ev.add("extract " + id)
	if f.openFail[id] {
		return ocr.Result{DocumentID: id}, &common.DocumentOpenError{DocumentID: id, Cause: errors.New("corrupt")}
	}
	pages := []ocr.Page{
		{Index: 0, Text: id + " p1", Source: constants.SourceDigital},
		{Index: 1, Text: id + " p2", Source: constants.SourceOCR},
	}
	failed := 0
	if f.pageFail[id] {
		pages = []ocr.Page{
			{Index: 0, Source: constants.SourceFailed, IsEmpty: true},
			{Index: 1, Source: constants.SourceFailed, IsEmpty: true},
		}
		failed = 2
	}
	return ocr.Result{DocumentID: id, Pages: pages, Failed: failed}, nil
}

func docIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc%02d.pdf", i+1)
	}
	return ids
}

func newSupervisor(ids []string, ex *fakeExtractor, rec *memRecords, size int) *Supervisor {
	return NewSupervisor(&memSource{ids: ids}, rec, ex, async.NewPool(4),
		Config{BatchSize: size, SuccessRatio: 0.9, PageWorkers: 2}, nil)
}

func TestSuccessThresholdBoundary(t *testing.T) {
	ev := &events{}
	ex := &fakeExtractor{ev: ev, pageFail: map[string]bool{"doc03.pdf": true}}
	rec := &memRecords{ev: ev}

	report, err := newSupervisor(docIDs(10), ex, rec, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, report.Processed)
	assert.Equal(t, 10, report.Total)
	assert.True(t, report.Success)
	assert.Empty(t, report.Reason)
	assert.Equal(t, "9 of 10 documents extracted", report.Summary())
	assert.NotEmpty(t, report.RunID)
}

func TestSuccessThresholdBelow(t *testing.T) {
	ev := &events{}
	ex := &fakeExtractor{
		ev:       ev,
		pageFail: map[string]bool{"doc03.pdf": true},
		openFail: map[string]bool{"doc07.pdf": true},
	}
	report, err := newSupervisor(docIDs(10), ex, &memRecords{ev: ev}, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Processed)
	assert.False(t, report.Success)
	assert.Contains(t, report.Reason, "below")
	assert.NoError(t, report.Err())
}

func TestNoFiles(t *testing.T) {
	ev := &events{}
	report, err := newSupervisor(nil, &fakeExtractor{ev: ev}, &memRecords{ev: ev}, 5).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "no files", report.Reason)
	assert.ErrorIs(t, report.Err(), common.ErrNoFiles)
	assert.Empty(t, ev.log)
}

func TestCheckpointBeforeNextBatch(t *testing.T) {
	ev := &events{}
	rec := &memRecords{ev: ev}
	report, err := newSupervisor(docIDs(7), &fakeExtractor{ev: ev}, rec, 3).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Batches, 3)
	assert.Equal(t, []int{3, 3, 1}, []int{report.Batches[0].Total, report.Batches[1].Total, report.Batches[2].Total})

	// every extract of batch k happens after save k-1
	pos := map[string]int{}
	for i, e := range ev.log {
		pos[e] = i
	}
	for _, id := range []string{"doc04.pdf", "doc05.pdf", "doc06.pdf"} {
		assert.Greater(t, pos["extract "+id], pos["save 1"])
		assert.Less(t, pos["extract "+id], pos["save 2"])
	}
	assert.Greater(t, pos["extract doc07.pdf"], pos["save 2"])

	got := rec.batches[2]
	require.Len(t, got, 3)
	assert.Equal(t, "doc04.pdf", got[0].DocumentID)
	assert.Equal(t, []string{"doc04.pdf p1", "doc04.pdf p2"}, got[0].Pages)
}

func TestFailedDocumentsAreNotSaved(t *testing.T) {
	ev := &events{}
	rec := &memRecords{ev: ev}
	ids := []string{"a.pdf", "unreadable.pdf", "c.pdf"}
	ex := &fakeExtractor{ev: ev, pageFail: map[string]bool{"c.pdf": true}}

	report, err := newSupervisor(ids, ex, rec, 5).RunIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.ElementsMatch(t, []string{"unreadable.pdf", "c.pdf"}, report.Batches[0].Failed)
	require.Len(t, rec.batches[1], 1)
	assert.Equal(t, "a.pdf", rec.batches[1][0].DocumentID)
}

func TestCheckpointFailureAbortsRun(t *testing.T) {
	ev := &events{}
	rec := &memRecords{ev: ev, err: errors.New("disk full")}
	report, err := newSupervisor(docIDs(6), &fakeExtractor{ev: ev}, rec, 3).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint batch 1")
	assert.Len(t, report.Batches, 1)
	assert.Zero(t, report.Processed)
	assert.NotContains(t, ev.log, "extract doc04.pdf")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := &events{}
	_, err := newSupervisor(docIDs(3), &fakeExtractor{ev: ev}, &memRecords{ev: ev}, 3).RunIDs(ctx, docIDs(3))
	assert.ErrorIs(t, err, context.Canceled)
}
