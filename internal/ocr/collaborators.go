package ocr

import (
	"context"
	"image"
)

// DigitalReader reads the embedded text layer of one page. index is 0-based.
type DigitalReader interface {
	ReadPage(ctx context.Context, doc *Document, index int) (string, error)
}

// CachingReader keeps each successful text-layer read on the Document, so
// classification and the page tasks read every page at most once.
func CachingReader(r DigitalReader) DigitalReader {
	if _, ok := r.(cachingReader); ok {
		return r
	}
	return cachingReader{r}
}

type cachingReader struct {
	DigitalReader
}

func (c cachingReader) ReadPage(ctx context.Context, doc *Document, index int) (string, error) {
	if text, ok := doc.cachedText(index); ok {
		return text, nil
	}
	text, err := c.DigitalReader.ReadPage(ctx, doc, index)
	if err == nil {
		doc.cacheText(index, text)
	}
	return text, err
}

// Renderer rasterizes one page at the given resolution.
type Renderer interface {
	RenderPage(ctx context.Context, doc *Document, index int, dpi int) (image.Image, error)
}

// Recognizer runs OCR over an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, mode Mode) (string, error)
}

// Mode is the recognition mode handed to the OCR engine.
type Mode struct {
	PageSegMode             int
	PreserveInterwordSpaces bool
}

// ModeUniformBlock treats the page as one uniform block of text.
var ModeUniformBlock = Mode{PageSegMode: 6, PreserveInterwordSpaces: true}
