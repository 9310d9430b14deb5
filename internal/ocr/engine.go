package ocr

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/metrics"
)

// Result is the ordered page set of one document.
type Result struct {
	DocumentID string
	Kind       constants.DocumentKind
	Pages      []Page
	Failed     int
}

// Texts returns page texts; index i is page i+1.
func (r Result) Texts() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Text
	}
	return out
}

// AllFailed reports whether no page produced text through a working path.
func (r Result) AllFailed() bool {
	return len(r.Pages) > 0 && r.Failed == len(r.Pages)
}

// Loader opens a document buffer.
type Loader func(id string, data []byte) (*Document, error)

// Engine fans page extraction out over a shared worker pool.
type Engine struct {
	pages      *PageExtractor
	classifier *Classifier
	pool       *async.Pool
	load       Loader
	logger     *zap.SugaredLogger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLoader replaces LoadDocument.
func WithLoader(l Loader) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.load = l
		}
	}
}

// WithClassifier enables document-level classification before fan-out.
func WithClassifier(c *Classifier) EngineOption {
	return func(e *Engine) { e.classifier = c }
}

func NewEngine(pages *PageExtractor, pool *async.Pool, logger *zap.SugaredLogger, opts ...EngineOption) *Engine {
	if pool == nil {
		pool = async.NewPool(0)
	}
	e := &Engine{
		pages:  pages,
		pool:   pool,
		load:   LoadDocument,
		logger: common.OrNop(logger),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract opens data and extracts every page. See ExtractPages.
func (e *Engine) Extract(ctx context.Context, id string, data []byte, workerLimit int) (Result, error) {
	doc, err := e.load(id, data)
	if err != nil {
		metrics.DocumentsExtracted.WithLabelValues("open_error").Inc()
		e.logger.Errorw("document open failed", "document_id", id, "error", err)
		return Result{DocumentID: id}, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			e.logger.Warnw("cleanup failed", "document_id", id, "error", err)
		}
	}()
	return e.ExtractPages(ctx, doc, workerLimit)
}

// ExtractAll returns one string per page in page order.
func (e *Engine) ExtractAll(ctx context.Context, doc *Document, workerLimit int) ([]string, error) {
	res, err := e.ExtractPages(ctx, doc, workerLimit)
	if err != nil {
		return nil, err
	}
	return res.Texts(), nil
}

// ExtractPages runs one task per page on at most min(pool size, workerLimit)
// workers. A page failure leaves that page empty. A document open failure
// stops scheduling further pages; pages already running finish and the
// whole result is discarded.
func (e *Engine) ExtractPages(ctx context.Context, doc *Document, workerLimit int) (Result, error) {
	start := time.Now()
	ctx = common.WithDocumentID(ctx, doc.ID)
	res := Result{DocumentID: doc.ID, Kind: constants.KindScanned}
	if e.classifier != nil {
		res.Kind = e.classifier.Classify(ctx, doc)
	}

	// each task owns pages[i]; no locking needed
	pages := make([]Page, doc.Pages)
	err := e.pool.Run(ctx, doc.Pages, workerLimit, func(ctx context.Context, i int) error {
		page, err := e.pages.Extract(ctx, doc, i)
		if err != nil {
			if errors.Is(err, common.ErrDocumentOpen) {
				return err
			}
			e.logger.Warnw("page extraction failed", "document_id", doc.ID, "page", i+1, "error", err)
			page = failedPage(i)
		}
		pages[i] = page
		return nil
	})
	if err != nil {
		result := "canceled"
		if errors.Is(err, common.ErrDocumentOpen) {
			result = "open_error"
			e.logger.Errorw("document extraction aborted", "document_id", doc.ID, "error", err)
		}
		metrics.DocumentsExtracted.WithLabelValues(result).Inc()
		return Result{DocumentID: doc.ID}, err
	}

	for _, p := range pages {
		if p.Source == constants.SourceFailed {
			res.Failed++
		}
		metrics.PagesExtracted.WithLabelValues(strings.ToLower(string(p.Source))).Inc()
	}
	res.Pages = pages

	metrics.DocumentsExtracted.WithLabelValues("ok").Inc()
	metrics.ExtractionDuration.WithLabelValues(strings.ToLower(string(res.Kind))).Observe(time.Since(start).Seconds())
	e.logger.Infow("document extracted",
		"document_id", doc.ID,
		"kind", res.Kind,
		"pages", doc.Pages,
		"failed_pages", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
