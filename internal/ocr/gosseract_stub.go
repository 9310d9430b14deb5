//go:build !gosseract

package ocr

import "errors"

// NewGosseractEngine is unavailable without the gosseract build tag.
func NewGosseractEngine(ToolsConfig) (Recognizer, error) {
	return nil, errors.New("in-process OCR engine not compiled in; rebuild with -tags gosseract")
}
