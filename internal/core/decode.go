package core

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// newTextReader returns r decoded to UTF-8 for the CSV reader.
//
// A UTF-8 byte order mark is dropped. Files with a UTF-16 byte order mark
// (spreadsheet "Unicode text" exports) are transcoded. Without a mark the
// content is read as UTF-8 and invalid bytes become U+FFFD, so a stray
// Latin-1 byte damages one name instead of failing the file.
func newTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
