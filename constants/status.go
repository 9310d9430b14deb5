package constants

// PageSource records which path produced a page's text.
type PageSource string

// Stable values (used as metric labels and in logs).
const (
	SourceDigital PageSource = "DIGITAL" // embedded text layer
	SourceOCR     PageSource = "OCR"     // rendered + recognized
	SourceFailed  PageSource = "FAILED"  // extraction error, empty text
)

// DocumentKind is the document-level classification.
type DocumentKind string

const (
	KindDigital DocumentKind = "DIGITAL"
	KindScanned DocumentKind = "SCANNED"
)

// NotFoundKeyword is the sentinel emitted when a keyword search matches nothing.
const NotFoundKeyword = "NOT FOUND"
