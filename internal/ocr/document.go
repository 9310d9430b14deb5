package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// Document is an immutable PDF buffer with its page count.
//
// Command-line collaborators need a path, so the buffer is written to a
// read-only temp file the first time Path is called and shared by every page
// task afterwards.
type Document struct {
	ID    string
	Data  []byte
	Pages int

	once    sync.Once
	path    string
	pathErr error

	mu    sync.Mutex
	texts map[int]string
}

// LoadDocument validates data as a PDF container and counts its pages.
// Any failure is reported as a *common.DocumentOpenError.
func LoadDocument(id string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &common.DocumentOpenError{DocumentID: id, Cause: errors.New("empty document")}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &common.DocumentOpenError{DocumentID: id, Cause: err}
	}
	if pages <= 0 {
		return nil, &common.DocumentOpenError{DocumentID: id, Cause: errors.New("document has no pages")}
	}
	return &Document{ID: id, Data: data, Pages: pages}, nil
}

// Path returns a filesystem path holding the document bytes.
func (d *Document) Path() (string, error) {
	d.once.Do(func() {
		f, err := os.CreateTemp("", "claims-*.pdf")
		if err != nil {
			d.pathErr = &common.DocumentOpenError{DocumentID: d.ID, Cause: fmt.Errorf("create temp file: %w", err)}
			return
		}
		if _, err := f.Write(d.Data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			d.pathErr = &common.DocumentOpenError{DocumentID: d.ID, Cause: fmt.Errorf("write temp file: %w", err)}
			return
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(f.Name())
			d.pathErr = &common.DocumentOpenError{DocumentID: d.ID, Cause: fmt.Errorf("close temp file: %w", err)}
			return
		}
		_ = os.Chmod(f.Name(), 0o400)
		d.path = f.Name()
	})
	return d.path, d.pathErr
}

func (d *Document) cachedText(index int) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.texts[index]
	return text, ok
}

func (d *Document) cacheText(index int, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.texts == nil {
		d.texts = make(map[int]string, d.Pages)
	}
	d.texts[index] = text
}

// Close removes the temp file, if one was materialized.
func (d *Document) Close() error {
	if d.path == "" {
		return nil
	}
	err := os.Remove(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
