// Package app wires the configured components into a runnable claims service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/batch"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/delivery"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
	"github.com/joseph-ayodele/claims-extractor/internal/search"
	"github.com/joseph-ayodele/claims-extractor/internal/services/claims"
	"github.com/joseph-ayodele/claims-extractor/internal/store"
)

// App holds the long-lived components shared by the daemon and the CLI.
type App struct {
	Config     *common.Config
	Stores     *store.Stores
	Engine     *ocr.Engine
	Supervisor *batch.Supervisor
	Dispatcher *delivery.Dispatcher // nil without a delivery URL
	Service    *claims.Service

	logger *zap.SugaredLogger
}

// Build opens the stores and assembles the extraction stack from cfg.
func Build(ctx context.Context, cfg *common.Config, logger *zap.SugaredLogger) (*App, error) {
	logger = common.OrNop(logger)

	stores, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	pool := async.NewPool(0)
	sup := batch.NewSupervisor(stores.Source, stores.Records, engine, pool, batch.Config{
		BatchSize:    cfg.Batch.Size,
		SuccessRatio: cfg.Batch.SuccessRatio,
		PageWorkers:  cfg.Extraction.PageWorkers,
	}, logger)

	a := &App{Config: cfg, Stores: stores, Engine: engine, Supervisor: sup, logger: logger}

	var outbox claims.Enqueuer
	if cfg.Delivery.URL != "" {
		a.Dispatcher = newDispatcher(cfg.Delivery, logger)
		outbox = a.Dispatcher
	}

	a.Service = claims.NewService(
		engine,
		stores.Source,
		stores.Records,
		search.NewLookup(cfg.Search.FuzzyThreshold, logger),
		async.NewLimiter(cfg.Extraction.LiveSlots),
		sup,
		outbox,
		claims.Config{PageWorkers: cfg.Extraction.PageWorkers},
		logger,
	)
	return a, nil
}

// NewEngine builds the page extraction engine. It needs no stores, so the
// single-file CLI commands use it directly.
func NewEngine(cfg *common.Config, logger *zap.SugaredLogger) (*ocr.Engine, error) {
	runner := ocr.NewExecRunner(logger)
	tools := ocr.ToolsConfig{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
	}

	var recognizer ocr.Recognizer
	switch cfg.OCR.Engine {
	case "gosseract":
		r, err := ocr.NewGosseractEngine(tools)
		if err != nil {
			return nil, err
		}
		recognizer = r
	default:
		recognizer = ocr.NewTesseractCLI(runner, tools)
	}

	reader := ocr.CachingReader(ocr.NewPdftotextReader(runner, tools))
	pages := ocr.NewPageExtractor(reader, ocr.NewPdftoppmRenderer(runner, tools), recognizer, ocr.PageConfig{
		DPI:           cfg.OCR.DPI,
		MinTextLength: cfg.Extraction.MinTextLength,
		Preprocess:    cfg.OCR.Preprocess,
	}, logger)

	return ocr.NewEngine(pages, async.NewPool(0), logger,
		ocr.WithClassifier(ocr.NewClassifier(reader, cfg.Extraction.MinTextLength, logger)),
	), nil
}

func newDispatcher(cfg common.DeliveryConfig, logger *zap.SugaredLogger) *delivery.Dispatcher {
	onFailure := func(d delivery.Delivery, err error) {
		logger.Errorw("search result not delivered", "file_id", d.FileID, "error", err)
	}
	poster := delivery.NewPoster(cfg.URL, &http.Client{Timeout: cfg.Timeout}, delivery.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       delivery.FixedDelay(cfg.Delay),
	}, onFailure, logger)

	// one post may spend every attempt and the delays between them
	budget := time.Duration(cfg.MaxAttempts) * (cfg.Timeout + cfg.Delay)
	return delivery.NewDispatcher(poster, logger,
		delivery.WithWorkers(cfg.Workers),
		delivery.WithQueueSize(cfg.QueueSize),
		delivery.WithPostTimeout(budget),
		delivery.WithDropHandler(onFailure),
	)
}

// Close drains pending deliveries, then releases the stores.
func (a *App) Close(ctx context.Context) error {
	if a.Dispatcher != nil {
		a.Dispatcher.Shutdown(ctx)
	}
	return a.Stores.Close()
}
