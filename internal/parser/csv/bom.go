package csv

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const utf8BOM = "\uFEFF"

// decodeBOM wraps r so that a leading UTF-8 or UTF-16 byte order mark picks
// the decoder; input without a BOM is read as UTF-8. The BOM itself is
// consumed.
func decodeBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
