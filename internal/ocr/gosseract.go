//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine runs tesseract in-process through libtesseract.
type GosseractEngine struct {
	lang        string
	tessdataDir string
}

// NewGosseractEngine returns the in-process engine. Requires the gosseract build tag.
func NewGosseractEngine(cfg ToolsConfig) (Recognizer, error) {
	cfg = cfg.withDefaults()
	return &GosseractEngine{lang: cfg.TesseractLang, tessdataDir: cfg.TessdataDir}, nil
}

func (g *GosseractEngine) Recognize(ctx context.Context, img image.Image, mode Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	c := gosseract.NewClient()
	defer c.Close()

	if g.tessdataDir != "" {
		if err := c.SetTessdataPrefix(g.tessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata dir: %w", err)
		}
	}
	if err := c.SetLanguage(g.lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if mode.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(mode.PageSegMode)); err != nil {
			return "", fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if mode.PreserveInterwordSpaces {
		if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
			return "", fmt.Errorf("set preserve_interword_spaces: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
