// Package transformer applies per-record rewrites and filters to placemark
// records after they have been built and validated.
package transformer

import (
	"fmt"

	"csvkml/internal/config"
	"csvkml/internal/parser/csv"
	"csvkml/internal/transformer/builtin"
)

// Transformer may rewrite rec in place. It returns keep=false with a short
// reason to drop the record.
type Transformer interface {
	Apply(rec *csv.Record) (keep bool, reason string)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order and stops at the first drop.
func (c Chain) Apply(rec *csv.Record) (bool, string) {
	for _, t := range c {
		if keep, reason := t.Apply(rec); !keep {
			return false, reason
		}
	}
	return true, ""
}

// Build constructs a Chain from pipeline transform steps.
func Build(steps []config.Transform) (Chain, error) {
	c := make(Chain, 0, len(steps))
	for i, s := range steps {
		switch s.Kind {
		case "normalize":
			c = append(c, builtin.NewNormalize(
				s.Options.String("form", "nfc"),
				s.Options.Bool("trim_space", false),
				s.Options.Bool("fold_diacritics", false),
			))
		case "dedup":
			c = append(c, builtin.NewDedup(s.Options.StringSlice("keys")))
		case "require":
			c = append(c, builtin.Require{Fields: s.Options.StringSlice("fields")})
		default:
			return nil, fmt.Errorf("transform[%d]: unknown kind %q", i, s.Kind)
		}
	}
	return c, nil
}
