package normalize

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind classifies file content for line-ending conversion
type Kind int

const (
	Text Kind = iota
	Binary
)

// sniffLen is how much of the file is inspected for binary content
const sniffLen = 1024

// textExtensions is the allow-list of extensions eligible for conversion.
// A matching extension alone is not enough: the content sniff can still
// demote a file to Binary.
var textExtensions = map[string]struct{}{
	".txt":        {},
	".sh":         {},
	".py":         {},
	".pl":         {},
	".conf":       {},
	".cfg":        {},
	".ini":        {},
	".log":        {},
	".xml":        {},
	".json":       {},
	".yaml":       {},
	".yml":        {},
	".properties": {},
	".sql":        {},
	".js":         {},
	".css":        {},
	".html":       {},
	".htm":        {},
	".md":         {},
	".csv":        {},
	".tsv":        {},
	".bat":        {},
	".ps1":        {},
}

// HasTextExtension reports whether the file name carries an allow-listed extension
func HasTextExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := textExtensions[ext]
	return ok
}

// IsBinaryContent reports whether content appears to be binary (contains a NUL byte)
func IsBinaryContent(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0
}

// Classify decides whether a file is eligible for line-ending conversion.
// Only files with an allow-listed extension whose first 1024 bytes contain
// no NUL byte are Text. Any read error classifies the file as Binary so that
// no transformation is attempted on content we could not inspect.
func Classify(path string) Kind {
	if !HasTextExtension(path) {
		return Binary
	}

	f, err := os.Open(path)
	if err != nil {
		return Binary
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Binary
	}

	if IsBinaryContent(buf[:n]) {
		return Binary
	}
	return Text
}
