package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// fakeReader serves a fixed text layer per page.
type fakeReader struct {
	texts map[int]string
	errs  map[int]error
	calls atomic.Int32
	docID atomic.Value
}

func (f *fakeReader) ReadPage(ctx context.Context, _ *Document, index int) (string, error) {
	f.calls.Add(1)
	f.docID.Store(common.DocumentIDFromContext(ctx))
	if err := f.errs[index]; err != nil {
		return "", err
	}
	return f.texts[index], nil
}

// fakeRenderer encodes the page number in the image width so the OCR fake
// can tell pages apart. Later pages render faster to scramble completion order.
type fakeRenderer struct {
	pages int
	errs  map[int]error
}

func (f *fakeRenderer) RenderPage(ctx context.Context, _ *Document, index int, _ int) (image.Image, error) {
	if err := f.errs[index]; err != nil {
		return nil, err
	}
	if f.pages > 0 {
		select {
		case <-time.After(time.Duration(f.pages-index) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return image.NewGray(image.Rect(0, 0, index+1, 1)), nil
}

type fakeOCR struct {
	panicOn int
	errOn   int
	mu      sync.Mutex
	modes   []Mode
}

func newFakeOCR() *fakeOCR { return &fakeOCR{panicOn: -1, errOn: -1} }

func (f *fakeOCR) Recognize(_ context.Context, img image.Image, mode Mode) (string, error) {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()

	page := img.Bounds().Dx()
	switch page - 1 {
	case f.panicOn:
		panic("engine crashed")
	case f.errOn:
		return "", errors.New("ocr engine unavailable")
	}
	return fmt.Sprintf("  scanned   text\n\n\n for page %d  ", page), nil
}

// fakeRunner records invocations and answers from canned output.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout []byte
	err    error
	onRun  func(name string, args []string) error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.onRun != nil {
		if err := f.onRun(name, args); err != nil {
			return nil, []byte("stderr: " + err.Error()), err
		}
	}
	if f.err != nil {
		return nil, []byte("failure"), f.err
	}
	return f.stdout, nil, nil
}

func (f *fakeRunner) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return strings.Join(f.calls[len(f.calls)-1], " ")
}

func longText(page int) string {
	return fmt.Sprintf("Page %d   carries a proper text layer with plenty of characters\n\n  in it", page)
}
