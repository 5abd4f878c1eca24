package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"csvkml/internal/parser/csv"
)

// Normalize rewrites name, description and attribute values to a Unicode
// normal form. It never drops a record. A Normalize holds transform state and
// must not be shared between goroutines.
type Normalize struct {
	t    transform.Transformer
	trim bool
}

// NewNormalize returns a Normalize for form "nfc" (default), "nfkc", "nfd" or
// "nfkd". foldDiacritics strips combining marks ("Café" becomes "Cafe")
// and always yields NFC.
func NewNormalize(form string, trim, foldDiacritics bool) *Normalize {
	var t transform.Transformer
	switch strings.ToLower(form) {
	case "nfkc":
		t = norm.NFKC
	case "nfd":
		t = norm.NFD
	case "nfkd":
		t = norm.NFKD
	default:
		t = norm.NFC
	}
	if foldDiacritics {
		t = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	}
	return &Normalize{t: t, trim: trim}
}

func (n *Normalize) apply(s string) string {
	if out, _, err := transform.String(n.t, s); err == nil {
		s = out
	}
	if n.trim {
		s = strings.TrimSpace(s)
	}
	return s
}

// Apply implements transformer.Transformer.
func (n *Normalize) Apply(rec *csv.Record) (bool, string) {
	if rec.Name != nil {
		v := n.apply(*rec.Name)
		rec.Name = &v
	}
	if rec.Description != nil {
		v := n.apply(*rec.Description)
		rec.Description = &v
	}
	for i := range rec.Attributes {
		rec.Attributes[i].Value = n.apply(rec.Attributes[i].Value)
	}
	return true, ""
}
