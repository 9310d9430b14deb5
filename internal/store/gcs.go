package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

// GCSSource serves PDFs stored under a prefix of a bucket.
type GCSSource struct {
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSSource(client *storage.Client, bucket, prefix string) *GCSSource {
	return &GCSSource{bucket: client.Bucket(bucket), prefix: cleanPrefix(prefix)}
}

func (s *GCSSource) List(ctx context.Context) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})
	var ids []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		id := strings.TrimPrefix(attrs.Name, s.prefix)
		// direct children only
		if id == "" || strings.Contains(id, "/") || !constants.IsDocumentPath(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *GCSSource) Open(ctx context.Context, id string) ([]byte, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, common.NewAppError("INVALID_DOCUMENT_ID", fmt.Sprintf("invalid document id %q", id), common.ErrInvalidInput)
	}
	return readObject(ctx, s.bucket.Object(s.prefix+id))
}

// GCSRecordStore writes one JSON artifact per batch under a bucket prefix.
type GCSRecordStore struct {
	bucket *storage.BucketHandle
	prefix string
	logger *zap.SugaredLogger
}

func NewGCSRecordStore(client *storage.Client, bucket, prefix string, logger *zap.SugaredLogger) *GCSRecordStore {
	return &GCSRecordStore{bucket: client.Bucket(bucket), prefix: cleanPrefix(prefix), logger: common.OrNop(logger)}
}

func (s *GCSRecordStore) SaveBatch(ctx context.Context, batchNumber int, records []entity.ExtractionRecord) error {
	body, err := json.Marshal(entity.RecordsToMap(records))
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", batchNumber, err)
	}
	name := s.prefix + BatchObjectName(batchNumber)

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	s.logger.Infow("batch saved", "backend", "gcs", "batch", batchNumber, "records", len(records), "object", name)
	return nil
}

func (s *GCSRecordStore) LoadAll(ctx context.Context) ([]entity.ExtractionRecord, error) {
	names, err := s.artifacts(ctx, 0)
	if err != nil {
		return nil, err
	}
	merged := map[string][]string{}
	for _, name := range names {
		raw, err := readObject(ctx, s.bucket.Object(name))
		if err != nil {
			return nil, err
		}
		var batch map[string][]string
		if err := json.Unmarshal(raw, &batch); err != nil {
			s.logger.Warnw("skipping unreadable artifact", "object", name, "error", err)
			continue
		}
		for id, pages := range batch {
			merged[id] = pages
		}
	}
	return entity.RecordsFromMap(merged), nil
}

func (s *GCSRecordStore) HasRecords(ctx context.Context) (bool, error) {
	names, err := s.artifacts(ctx, 1)
	return len(names) > 0, err
}

func (s *GCSRecordStore) LastBatch(ctx context.Context) (int, error) {
	names, err := s.artifacts(ctx, 0)
	if err != nil {
		return 0, err
	}
	return lastBatchOf(names), nil
}

// artifacts lists JSON objects under the prefix in name order, stopping
// after limit names when limit > 0.
func (s *GCSRecordStore) artifacts(ctx context.Context, limit int) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		if !constants.IsRecordPath(attrs.Name) {
			continue
		}
		names = append(names, attrs.Name)
		if limit > 0 && len(names) >= limit {
			break
		}
	}
	sortArtifacts(names)
	return names, nil
}

func readObject(ctx context.Context, obj *storage.ObjectHandle) ([]byte, error) {
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND", fmt.Sprintf("object %q not found", obj.ObjectName()), common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", obj.ObjectName(), err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func cleanPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p) + "/"
}
