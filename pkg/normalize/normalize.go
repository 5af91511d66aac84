// Package normalize decides which files are text and converts their line
// endings from CRLF to LF before upload.
package normalize

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrDecode is returned when content decodes neither as UTF-8 nor as
// Windows-1252. The caller should fall back to uploading the original bytes.
var ErrDecode = errors.New("content is not decodable text")

var crlf = []byte("\r\n")
var lf = []byte("\n")

// Normalize converts CRLF line endings to LF and returns the converted
// payload together with the number of replacements made.
//
// Decoding tries UTF-8 first, then Windows-1252 as a single-byte fallback.
// The result is always re-encoded as UTF-8, even when the input was
// Windows-1252: the conversion is deliberately lossy with respect to the
// original encoding.
func Normalize(data []byte) ([]byte, int, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, 0, ErrDecode
		}
		// The charmap decoder maps undefined code points to U+FFFD
		// instead of failing, so treat any replacement rune as a
		// failed decode.
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			return nil, 0, ErrDecode
		}
		data = decoded
	}

	count := bytes.Count(data, crlf)
	if count == 0 {
		return data, 0, nil
	}
	return bytes.ReplaceAll(data, crlf, lf), count, nil
}
