package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDoc(t *testing.T) *Document {
	t.Helper()
	doc := &Document{ID: "claim.pdf", Data: []byte("%PDF-1.4 test"), Pages: 3}
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestPdftotextReaderArgs(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("Dealer: Acme Motors\n\f")}
	r := NewPdftotextReader(runner, ToolsConfig{})
	doc := tempDoc(t)

	text, err := r.ReadPage(context.Background(), doc, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dealer: Acme Motors\n", text)

	path, err := doc.Path()
	require.NoError(t, err)
	assert.Equal(t, "pdftotext -enc UTF-8 -eol unix -f 2 -l 2 "+path+" -", runner.lastCall())
}

func TestPdftotextReaderError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	r := NewPdftotextReader(runner, ToolsConfig{Pdftotext: "/opt/poppler/pdftotext"})

	_, err := r.ReadPage(context.Background(), tempDoc(t), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
	assert.Contains(t, runner.lastCall(), "/opt/poppler/pdftotext")
}

func TestPdftoppmRenderer(t *testing.T) {
	runner := &fakeRunner{}
	runner.onRun = func(_ string, args []string) error {
		// last arg is the output prefix
		prefix := args[len(args)-1]
		f, err := os.Create(prefix + ".png")
		if err != nil {
			return err
		}
		defer f.Close()
		return png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 2)))
	}
	r := NewPdftoppmRenderer(runner, ToolsConfig{})
	doc := tempDoc(t)

	img, err := r.RenderPage(context.Background(), doc, 2, 200)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	call := runner.lastCall()
	assert.Contains(t, call, "pdftoppm -r 200 -f 3 -l 3 -png -singlefile ")
}

func TestPdftoppmRendererNoOutput(t *testing.T) {
	r := NewPdftoppmRenderer(&fakeRunner{}, ToolsConfig{})
	_, err := r.RenderPage(context.Background(), tempDoc(t), 0, 150)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}

func TestTesseractCLI(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("CLAIM 123456\n")}
	ocr := NewTesseractCLI(runner, ToolsConfig{TessdataDir: "/usr/share/tessdata"})

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 200})
	text, err := ocr.Recognize(context.Background(), img, ModeUniformBlock)
	require.NoError(t, err)
	assert.Equal(t, "CLAIM 123456\n", text)

	call := runner.lastCall()
	assert.Contains(t, call, "stdout -l eng --oem 1 --psm 6 -c preserve_interword_spaces=1 --tessdata-dir /usr/share/tessdata")
}

func TestTesseractArgsWithoutMode(t *testing.T) {
	args := tesseractArgs("in.png", "deu", "", Mode{})
	assert.Equal(t, []string{"in.png", "stdout", "-l", "deu", "--oem", "1"}, args)
}

func TestDocumentPathSharedAndCleaned(t *testing.T) {
	doc := &Document{ID: "a.pdf", Data: []byte("%PDF-1.4")}
	p1, err := doc.Path()
	require.NoError(t, err)
	p2, err := doc.Path()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	raw, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, doc.Data, raw)

	require.NoError(t, doc.Close())
	_, err = os.Stat(p1)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, doc.Close())
}
