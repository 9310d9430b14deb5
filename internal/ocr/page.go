package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// Page is the extracted text of one page.
type Page struct {
	Index   int // 0-based
	Text    string
	Source  constants.PageSource
	IsEmpty bool
}

// PageConfig holds the per-page extraction knobs.
type PageConfig struct {
	DPI           int
	MinTextLength int
	Preprocess    bool
}

// PageExtractor extracts one page: text layer first, OCR as fallback.
type PageExtractor struct {
	digital  DigitalReader
	renderer Renderer
	ocr      Recognizer
	cfg      PageConfig
	logger   *zap.SugaredLogger
}

func NewPageExtractor(digital DigitalReader, renderer Renderer, ocr Recognizer, cfg PageConfig, logger *zap.SugaredLogger) *PageExtractor {
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	return &PageExtractor{
		digital:  digital,
		renderer: renderer,
		ocr:      ocr,
		cfg:      cfg,
		logger:   common.OrNop(logger),
	}
}

// Extract returns the normalized text of page index. Failures come back as
// *common.PageError, except a document that cannot be opened at all, which
// keeps its *common.DocumentOpenError so the caller can stop the document.
func (p *PageExtractor) Extract(ctx context.Context, doc *Document, index int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &common.PageError{DocumentID: doc.ID, Page: index + 1, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, derr := p.digital.ReadPage(ctx, doc, index)
	if derr != nil {
		if errors.Is(derr, common.ErrDocumentOpen) {
			return Page{}, derr
		}
		// no text layer is normal for scans; fall through to OCR
		p.logger.Debugw("text layer read failed", "document_id", doc.ID, "page", index+1, "error", derr)
	} else if utf8.RuneCountInString(strings.TrimSpace(text)) >= p.cfg.MinTextLength {
		return newPage(index, Normalize(text), constants.SourceDigital), nil
	}

	img, err := p.renderer.RenderPage(ctx, doc, index, p.cfg.DPI)
	if err != nil {
		return Page{}, p.pageErr(doc, index, fmt.Errorf("render: %w", err))
	}
	if p.cfg.Preprocess {
		img = Binarize(img, 0)
	}
	raw, err := p.ocr.Recognize(ctx, img, ModeUniformBlock)
	if err != nil {
		return Page{}, p.pageErr(doc, index, fmt.Errorf("ocr: %w", err))
	}
	return newPage(index, Normalize(raw), constants.SourceOCR), nil
}

func (p *PageExtractor) pageErr(doc *Document, index int, cause error) error {
	if errors.Is(cause, common.ErrDocumentOpen) {
		return cause
	}
	return &common.PageError{DocumentID: doc.ID, Page: index + 1, Cause: cause}
}

func newPage(index int, text string, source constants.PageSource) Page {
	return Page{Index: index, Text: text, Source: source, IsEmpty: text == ""}
}

func failedPage(index int) Page {
	return Page{Index: index, Source: constants.SourceFailed, IsEmpty: true}
}
