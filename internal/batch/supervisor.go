package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/metrics"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
	"github.com/joseph-ayodele/claims-extractor/internal/store"
)

// Extractor extracts every page of one document.
type Extractor interface {
	Extract(ctx context.Context, id string, data []byte, workerLimit int) (ocr.Result, error)
}

type Config struct {
	BatchSize    int
	SuccessRatio float64
	PageWorkers  int
}

// Supervisor extracts a document set in fixed-size batches, checkpointing
// each batch to the record store before the next one starts.
type Supervisor struct {
	source    store.DocumentSource
	records   store.RecordStore
	extractor Extractor
	pool      *async.Pool
	cfg       Config
	logger    *zap.SugaredLogger
}

func NewSupervisor(source store.DocumentSource, records store.RecordStore, extractor Extractor, pool *async.Pool, cfg Config, logger *zap.SugaredLogger) *Supervisor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.SuccessRatio <= 0 {
		cfg.SuccessRatio = 0.9
	}
	if pool == nil {
		pool = async.NewPool(0)
	}
	return &Supervisor{
		source:    source,
		records:   records,
		extractor: extractor,
		pool:      pool,
		cfg:       cfg,
		logger:    common.OrNop(logger),
	}
}

// Run extracts every document the source lists.
func (s *Supervisor) Run(ctx context.Context) (Report, error) {
	ids, err := s.source.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list documents: %w", err)
	}
	return s.RunIDs(ctx, ids)
}

// RunIDs extracts ids in order. Per-document failures only lower the
// success ratio; a checkpoint failure or cancellation ends the run with an
// error and the report of the batches saved so far.
func (s *Supervisor) RunIDs(ctx context.Context, ids []string) (Report, error) {
	report := Report{RunID: uuid.NewString(), Total: len(ids), StartedAt: time.Now()}
	log := s.logger.With("run_id", report.RunID)

	if len(ids) == 0 {
		report.finish(s.cfg.SuccessRatio)
		log.Warnw("batch run found no documents")
		return report, nil
	}

	batches := entity.SliceBatches(ids, s.cfg.BatchSize)
	log.Infow("batch run started", "documents", len(ids), "batches", len(batches), "batch_size", s.cfg.BatchSize)

	for _, b := range batches {
		br, err := s.runBatch(ctx, b, log)
		report.Processed += br.Processed
		report.Batches = append(report.Batches, br)
		if err != nil {
			report.finish(s.cfg.SuccessRatio)
			log.Errorw("batch run aborted", "batch", b.Number, "error", err)
			return report, err
		}
	}

	report.finish(s.cfg.SuccessRatio)
	metrics.BatchSuccessRatio.Set(report.Ratio)
	log.Infow("batch run finished",
		"processed", report.Processed,
		"total", report.Total,
		"ratio", report.Ratio,
		"success", report.Success,
	)
	return report, nil
}

type outcome struct {
	record entity.ExtractionRecord
	ok     bool
}

func (s *Supervisor) runBatch(ctx context.Context, b entity.ExtractionBatch, log *zap.SugaredLogger) (BatchReport, error) {
	start := time.Now()
	br := BatchReport{Number: b.Number, Members: b.Members, Total: b.Total}

	// one slot per member; tasks never share an index
	outcomes := make([]outcome, len(b.Members))
	err := s.pool.Run(ctx, len(b.Members), s.cfg.BatchSize, func(ctx context.Context, i int) error {
		id := b.Members[i]
		rec, ok := s.extractOne(ctx, id, log)
		if err := ctx.Err(); err != nil {
			return err
		}
		outcomes[i] = outcome{record: rec, ok: ok}
		return nil
	})
	if err != nil {
		br.Duration = time.Since(start)
		return br, fmt.Errorf("batch %d: %w", b.Number, err)
	}

	var records []entity.ExtractionRecord
	for i, o := range outcomes {
		if o.ok {
			records = append(records, o.record)
			br.Processed++
		} else {
			br.Failed = append(br.Failed, b.Members[i])
		}
	}

	if err := s.records.SaveBatch(ctx, b.Number, records); err != nil {
		br.Processed = 0
		br.Duration = time.Since(start)
		return br, fmt.Errorf("checkpoint batch %d: %w", b.Number, err)
	}
	br.Duration = time.Since(start)
	log.Infow("batch checkpointed",
		"batch", b.Number,
		"processed", br.Processed,
		"total", br.Total,
		"duration_ms", br.Duration.Milliseconds(),
	)
	return br, nil
}

// extractOne reports ok=false when the document could not be read or opened,
// or when none of its pages yielded text through a working path.
func (s *Supervisor) extractOne(ctx context.Context, id string, log *zap.SugaredLogger) (entity.ExtractionRecord, bool) {
	data, err := s.source.Open(ctx, id)
	if err != nil {
		log.Errorw("document read failed", "document_id", id, "error", err)
		return entity.ExtractionRecord{}, false
	}
	res, err := s.extractor.Extract(ctx, id, data, s.cfg.PageWorkers)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Errorw("document extraction failed", "document_id", id, "error", err)
		}
		return entity.ExtractionRecord{}, false
	}
	if res.AllFailed() {
		log.Warnw("every page failed", "document_id", id, "pages", len(res.Pages))
		return entity.ExtractionRecord{}, false
	}
	return entity.ExtractionRecord{DocumentID: id, Pages: res.Texts()}, true
}
