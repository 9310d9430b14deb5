package constants

import (
	"path/filepath"
	"strings"
)

// DocumentExtensions holds the file extensions picked up by listings and watchers.
var DocumentExtensions = map[string]struct{}{
	"pdf": {},
}

// RecordExtension is the extension of persisted batch artifacts.
const RecordExtension = "json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsDocumentPath reports whether path names a document we know how to extract.
func IsDocumentPath(path string) bool {
	_, ok := DocumentExtensions[NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsRecordPath reports whether path names a persisted batch artifact.
func IsRecordPath(path string) bool {
	return NormalizeExt(filepath.Ext(path)) == RecordExtension
}
