package claims

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/batch"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/delivery"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/metrics"
	"github.com/joseph-ayodele/claims-extractor/internal/search"
	"github.com/joseph-ayodele/claims-extractor/internal/store"
)

// Enqueuer hands a finished search result to background delivery.
type Enqueuer interface {
	Enqueue(d delivery.Delivery) bool
}

// Runner runs one batch extraction over the document source.
type Runner interface {
	Run(ctx context.Context) (batch.Report, error)
}

// SearchRequest is a live keyword search over one document.
type SearchRequest struct {
	DocumentID             string `json:"documentId"`
	Keywords               string `json:"keywords"`
	ReturnOnlyMatchedPages bool   `json:"returnOnlyMatchedPages"`
	InlineDocument         string `json:"inlineDocument,omitempty"` // base64
}

type Config struct {
	PageWorkers int
}

// Service handles the claims business logic shared by the HTTP server and the CLI.
type Service struct {
	extractor batch.Extractor
	source    store.DocumentSource
	records   store.RecordStore
	lookup    *search.Lookup
	limiter   *async.Limiter
	runner    Runner
	outbox    Enqueuer
	cfg       Config
	logger    *zap.SugaredLogger
}

// NewService creates a new claims service. outbox may be nil when no
// downstream URL is configured.
func NewService(
	extractor batch.Extractor,
	source store.DocumentSource,
	records store.RecordStore,
	lookup *search.Lookup,
	limiter *async.Limiter,
	runner Runner,
	outbox Enqueuer,
	cfg Config,
	logger *zap.SugaredLogger,
) *Service {
	if limiter == nil {
		limiter = async.NewLimiter(10)
	}
	return &Service{
		extractor: extractor,
		source:    source,
		records:   records,
		lookup:    lookup,
		limiter:   limiter,
		runner:    runner,
		outbox:    outbox,
		cfg:       cfg,
		logger:    common.OrNop(logger),
	}
}

// ExtractDocument extracts every page of one document.
func (s *Service) ExtractDocument(ctx context.Context, id string, data []byte) (entity.ExtractionRecord, error) {
	res, err := s.extractor.Extract(ctx, id, data, s.cfg.PageWorkers)
	if err != nil {
		return entity.ExtractionRecord{}, err
	}
	return entity.ExtractionRecord{DocumentID: id, Pages: res.Texts()}, nil
}

// LiveSearch extracts one document under a live OCR slot and applies the
// keyword query to its pages. The result is queued for delivery when an
// outbox is configured; delivery never delays the response.
func (s *Service) LiveSearch(ctx context.Context, req SearchRequest) (search.KeywordResponse, error) {
	q, err := search.NewKeywordQuery(req.Keywords, req.ReturnOnlyMatchedPages)
	if err != nil {
		metrics.Searches.WithLabelValues("keyword", "invalid").Inc()
		return search.KeywordResponse{}, err
	}
	id := strings.TrimSpace(req.DocumentID)
	if id == "" && req.InlineDocument == "" {
		metrics.Searches.WithLabelValues("keyword", "invalid").Inc()
		return search.KeywordResponse{}, common.InvalidQueryf("documentId or inlineDocument is required")
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return search.KeywordResponse{}, err
	}
	metrics.LiveSlotsInUse.Set(float64(s.limiter.InUse()))
	defer func() {
		release()
		metrics.LiveSlotsInUse.Set(float64(s.limiter.InUse()))
	}()

	log := s.logger.With("document_id", id, "request_id", common.RequestIDFromContext(ctx))
	log.Debugw("live slot acquired", "in_use", s.limiter.InUse(), "slots", s.limiter.Slots())

	data, err := s.documentBytes(ctx, id, req.InlineDocument)
	if err != nil {
		metrics.Searches.WithLabelValues("keyword", "error").Inc()
		return search.KeywordResponse{}, err
	}

	rec, err := s.ExtractDocument(ctx, id, data)
	if err != nil {
		log.Errorw("live extraction failed", "error", err)
		metrics.Searches.WithLabelValues("keyword", "error").Inc()
		return search.KeywordResponse{}, err
	}

	resp, err := search.SearchPages(rec.Pages, q)
	if err != nil {
		return search.KeywordResponse{}, err
	}
	outcome := "matched"
	if !resp.Matched() {
		outcome = "no_match"
	}
	metrics.Searches.WithLabelValues("keyword", outcome).Inc()
	log.Infow("keyword search complete", "keywords", q.String(), "pages", len(rec.Pages), "matched", resp.Matched())

	if s.outbox != nil {
		s.outbox.Enqueue(delivery.Delivery{
			FileID:         id,
			SearchKeywords: req.Keywords,
			Response:       resp.Payload(),
		})
	}
	return resp, nil
}

func (s *Service) documentBytes(ctx context.Context, id, inline string) ([]byte, error) {
	if inline != "" {
		data, err := base64.StdEncoding.DecodeString(inline)
		if err != nil {
			return nil, common.NewAppError("INVALID_DOCUMENT", "inlineDocument is not valid base64", common.ErrInvalidInput)
		}
		return data, nil
	}
	if s.source == nil {
		return nil, common.NewAppError("NO_SOURCE", "no document source configured", common.ErrInvalidInput)
	}
	return s.source.Open(ctx, id)
}

// NeedsExtraction reports whether the record store holds nothing yet.
func (s *Service) NeedsExtraction(ctx context.Context) (bool, error) {
	has, err := s.records.HasRecords(ctx)
	if err != nil {
		return false, err
	}
	return !has, nil
}

// RunBatch extracts the whole document source.
func (s *Service) RunBatch(ctx context.Context) (batch.Report, error) {
	if s.runner == nil {
		return batch.Report{}, common.NewAppError("NO_BATCH", "batch extraction is not configured", common.ErrInternal)
	}
	return s.runner.Run(ctx)
}

// Lookup finds the documents answering q across every stored record.
func (s *Service) Lookup(ctx context.Context, q search.FieldQuery) ([]string, error) {
	q = q.Trimmed()
	if err := q.Validate(); err != nil {
		metrics.Searches.WithLabelValues("field", "invalid").Inc()
		return nil, err
	}
	corpus, err := s.records.LoadAll(ctx)
	if err != nil {
		metrics.Searches.WithLabelValues("field", "error").Inc()
		return nil, common.WrapError(err, "load extraction records")
	}

	files, err := s.lookup.Find(ctx, corpus, q)
	switch {
	case errors.Is(err, common.ErrNoMatchFound):
		metrics.Searches.WithLabelValues("field", "no_match").Inc()
		s.logger.Infow("field lookup found nothing", "query", q.String(), "corpus", len(corpus))
		return nil, err
	case err != nil:
		metrics.Searches.WithLabelValues("field", "error").Inc()
		return nil, err
	}
	metrics.Searches.WithLabelValues("field", "matched").Inc()
	s.logger.Infow("field lookup matched", "query", q.String(), "files", len(files))
	return files, nil
}
