package ocr

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// Classifier makes the document-level digital/scanned call. It only informs
// logging and metrics: pages of a scanned document still try their text
// layer first.
type Classifier struct {
	reader        DigitalReader
	minTextLength int
	logger        *zap.SugaredLogger
}

func NewClassifier(reader DigitalReader, minTextLength int, logger *zap.SugaredLogger) *Classifier {
	return &Classifier{reader: reader, minTextLength: minTextLength, logger: common.OrNop(logger)}
}

// Classify reads page text layers in order until the cumulative length
// exceeds the threshold. A reader failure means Scanned.
func (c *Classifier) Classify(ctx context.Context, doc *Document) constants.DocumentKind {
	total := 0
	for i := 0; i < doc.Pages; i++ {
		text, err := c.reader.ReadPage(ctx, doc, i)
		if err != nil {
			c.logger.Debugw("text layer unreadable, treating as scanned",
				"document_id", doc.ID, "page", i+1, "error", err)
			return constants.KindScanned
		}
		total += utf8.RuneCountInString(text)
		if total > c.minTextLength {
			return constants.KindDigital
		}
	}
	return constants.KindScanned
}
