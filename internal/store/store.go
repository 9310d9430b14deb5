// Package store reads source documents and persists extraction records.
package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

// DocumentSource lists and opens source PDFs.
type DocumentSource interface {
	// List returns document ids sorted lexicographically.
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, id string) ([]byte, error)
}

// RecordStore persists one batch of extraction records at a time.
type RecordStore interface {
	SaveBatch(ctx context.Context, batchNumber int, records []entity.ExtractionRecord) error
	// LoadAll returns every saved record, merged across batches and sorted by id.
	LoadAll(ctx context.Context) ([]entity.ExtractionRecord, error)
	HasRecords(ctx context.Context) (bool, error)
	// LastBatch returns the highest batch number saved so far, 0 when empty.
	LastBatch(ctx context.Context) (int, error)
}

// BatchObjectName is the artifact name of one batch, e.g. batch_0001.json.
func BatchObjectName(batchNumber int) string {
	return fmt.Sprintf("batch_%04d.json", batchNumber)
}

// ParseBatchObjectName is the inverse of BatchObjectName. It accepts a full
// path or object name.
func ParseBatchObjectName(name string) (int, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if !strings.HasPrefix(base, "batch_") || !strings.HasSuffix(base, ".json") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "batch_"), ".json"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NextBatch returns the first batch number after everything already in rs,
// and never less than floor. Appending sessions use it so they cannot
// overwrite an earlier checkpoint.
func NextBatch(ctx context.Context, rs RecordStore, floor int) (int, error) {
	last, err := rs.LastBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("find last batch: %w", err)
	}
	if last+1 > floor {
		return last + 1, nil
	}
	return floor, nil
}

// Appender saves records as consecutive new batches after whatever a store
// already holds. It is not safe for concurrent use.
type Appender struct {
	records RecordStore
	next    int
}

// NewAppender starts numbering at NextBatch(ctx, rs, floor).
func NewAppender(ctx context.Context, rs RecordStore, floor int) (*Appender, error) {
	next, err := NextBatch(ctx, rs, floor)
	if err != nil {
		return nil, err
	}
	return &Appender{records: rs, next: next}, nil
}

// Append saves records as one new batch and returns its number.
func (a *Appender) Append(ctx context.Context, records []entity.ExtractionRecord) (int, error) {
	n := a.next
	if err := a.records.SaveBatch(ctx, n, records); err != nil {
		return 0, err
	}
	a.next++
	return n, nil
}

// sortArtifacts orders batch artifacts by batch number, other names last.
func sortArtifacts(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, okA := ParseBatchObjectName(names[i])
		b, okB := ParseBatchObjectName(names[j])
		switch {
		case okA && okB:
			return a < b
		case okA != okB:
			return okA
		}
		return names[i] < names[j]
	})
}

func lastBatchOf(names []string) int {
	last := 0
	for _, name := range names {
		if n, ok := ParseBatchObjectName(name); ok && n > last {
			last = n
		}
	}
	return last
}
