package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

// FSSource serves PDFs from one directory (non-recursive).
type FSSource struct {
	dir string
}

func NewFSSource(dir string) *FSSource { return &FSSource{dir: dir} }

func (s *FSSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Type().IsRegular() && constants.IsDocumentPath(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FSSource) Open(_ context.Context, id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, common.NewAppError("INVALID_DOCUMENT_ID", fmt.Sprintf("invalid document id %q", id), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %q not found", id), common.ErrNotFound)
	}
	return data, err
}

// FSRecordStore writes one JSON artifact per batch into a directory.
type FSRecordStore struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewFSRecordStore(dir string, logger *zap.SugaredLogger) *FSRecordStore {
	return &FSRecordStore{dir: dir, logger: common.OrNop(logger)}
}

// SaveBatch writes the artifact atomically (temp file + rename).
func (s *FSRecordStore) SaveBatch(_ context.Context, batchNumber int, records []entity.ExtractionRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	body, err := json.MarshalIndent(entity.RecordsToMap(records), "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", batchNumber, err)
	}

	name := filepath.Join(s.dir, BatchObjectName(batchNumber))
	tmp, err := os.CreateTemp(s.dir, ".batch-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write batch %d: %w", batchNumber, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish batch %d: %w", batchNumber, err)
	}
	s.logger.Infow("batch saved", "backend", "fs", "batch", batchNumber, "records", len(records), "path", name)
	return nil
}

func (s *FSRecordStore) LoadAll(ctx context.Context) ([]entity.ExtractionRecord, error) {
	names, err := s.artifacts()
	if err != nil {
		return nil, err
	}
	merged := map[string][]string{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		var batch map[string][]string
		if err := json.Unmarshal(raw, &batch); err != nil {
			// a foreign or truncated file must not hide the rest
			s.logger.Warnw("skipping unreadable artifact", "path", name, "error", err)
			continue
		}
		for id, pages := range batch {
			merged[id] = pages
		}
	}
	return entity.RecordsFromMap(merged), nil
}

func (s *FSRecordStore) HasRecords(context.Context) (bool, error) {
	names, err := s.artifacts()
	return len(names) > 0, err
}

func (s *FSRecordStore) LastBatch(context.Context) (int, error) {
	names, err := s.artifacts()
	if err != nil {
		return 0, err
	}
	return lastBatchOf(names), nil
}

// artifacts lists batch JSON files in name order; later batches win on merge.
func (s *FSRecordStore) artifacts() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && constants.IsRecordPath(e.Name()) && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sortArtifacts(names)
	return names, nil
}
