package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ToolsConfig names the command-line binaries used by the CLI collaborators.
type ToolsConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
}

func (c ToolsConfig) withDefaults() ToolsConfig {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	return c
}

// PdftotextReader reads a page's text layer with poppler's pdftotext.
type PdftotextReader struct {
	runner Runner
	bin    string
}

func NewPdftotextReader(runner Runner, cfg ToolsConfig) *PdftotextReader {
	return &PdftotextReader{runner: runner, bin: cfg.withDefaults().Pdftotext}
}

func (r *PdftotextReader) ReadPage(ctx context.Context, doc *Document, index int) (string, error) {
	path, err := doc.Path()
	if err != nil {
		return "", err
	}
	page := strconv.Itoa(index + 1)
	// pdftotext -enc UTF-8 -eol unix -f N -l N <path> -
	out, errb, err := r.runner.Run(ctx, r.bin, "-enc", "UTF-8", "-eol", "unix", "-f", page, "-l", page, path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %s: %w: %s", page, err, truncate(string(errb), 512))
	}
	// single page output still ends with a form feed
	return strings.TrimRight(string(out), "\f"), nil
}

// PdftoppmRenderer rasterizes a single page to PNG with poppler's pdftoppm.
type PdftoppmRenderer struct {
	runner Runner
	bin    string
}

func NewPdftoppmRenderer(runner Runner, cfg ToolsConfig) *PdftoppmRenderer {
	return &PdftoppmRenderer{runner: runner, bin: cfg.withDefaults().Pdftoppm}
}

func (r *PdftoppmRenderer) RenderPage(ctx context.Context, doc *Document, index int, dpi int) (image.Image, error) {
	path, err := doc.Path()
	if err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp("", "claims-pp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	page := strconv.Itoa(index + 1)
	// pdftoppm -r DPI -f N -l N -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.bin,
		"-r", strconv.Itoa(dpi), "-f", page, "-l", page, "-png", "-singlefile", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %s: %w: %s", page, err, truncate(string(errb), 512))
	}

	raw, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %s: %w", page, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode page %s image: %w", page, err)
	}
	return img, nil
}

// TesseractCLI runs the tesseract binary over a temporary PNG.
type TesseractCLI struct {
	runner      Runner
	bin         string
	lang        string
	tessdataDir string
}

func NewTesseractCLI(runner Runner, cfg ToolsConfig) *TesseractCLI {
	cfg = cfg.withDefaults()
	return &TesseractCLI{runner: runner, bin: cfg.Tesseract, lang: cfg.TesseractLang, tessdataDir: cfg.TessdataDir}
}

func (t *TesseractCLI) Recognize(ctx context.Context, img image.Image, mode Mode) (string, error) {
	f, err := os.CreateTemp("", "claims-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode page image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	args := tesseractArgs(f.Name(), t.lang, t.tessdataDir, mode)
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// tesseract <file> stdout -l <lang> --oem 1 --psm N [-c preserve_interword_spaces=1] [--tessdata-dir D]
func tesseractArgs(path, lang, tessdataDir string, mode Mode) []string {
	args := []string{path, "stdout", "-l", lang, "--oem", "1"}
	if mode.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(mode.PageSegMode))
	}
	if mode.PreserveInterwordSpaces {
		args = append(args, "-c", "preserve_interword_spaces=1")
	}
	if tessdataDir != "" {
		args = append(args, "--tessdata-dir", tessdataDir)
	}
	return args
}
