// Package extract provides named extractors that derive structured data
// from a syntax tree, and a registry to look them up by name.
package extract

import (
	"context"
	"unicode/utf8"

	"github.com/roboco-io/qmdtree/internal/cells"
	"github.com/roboco-io/qmdtree/internal/outline"
	"github.com/roboco-io/qmdtree/internal/syntax"
)

// Extractor is the interface that all extractors must implement.
type Extractor interface {
	// Name returns the extractor identifier (e.g., "cells", "outline").
	Name() string

	// Description is a one-line summary for listings.
	Description() string

	// Extract derives data from t. The result must be serializable as
	// JSON and YAML.
	Extract(ctx context.Context, t *syntax.Tree) (any, error)
}

// Func adapts a function to the Extractor interface.
type Func struct {
	ID      string
	Summary string
	Fn      func(t *syntax.Tree) any
}

// Name returns the extractor identifier.
func (f Func) Name() string { return f.ID }

// Description returns the summary.
func (f Func) Description() string { return f.Summary }

// Extract runs Fn unless ctx is already done.
func (f Func) Extract(ctx context.Context, t *syntax.Tree) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Fn(t), nil
}

// DiagnosticReport is the result of the diagnostics extractor.
type DiagnosticReport struct {
	Errors      int               `json:"errors" yaml:"errors"`
	Diagnostics []DiagnosticEntry `json:"diagnostics" yaml:"diagnostics"`
	ByKind      map[string]int    `json:"by_kind,omitempty" yaml:"by_kind,omitempty"`
}

// DiagnosticEntry is one diagnostic with its line and the text it covers.
type DiagnosticEntry struct {
	Kind    string `json:"kind" yaml:"kind"`
	Line    int    `json:"line" yaml:"line"`
	Message string `json:"message" yaml:"message"`
	Excerpt string `json:"excerpt" yaml:"excerpt"`
}

// excerptLen bounds the source text quoted in a diagnostic.
const excerptLen = 40

// Diagnostics summarizes the recovered problems of t.
func Diagnostics(t *syntax.Tree) DiagnosticReport {
	r := DiagnosticReport{
		Errors:      len(t.Errors()),
		Diagnostics: []DiagnosticEntry{},
	}
	for _, d := range t.Diagnostics {
		text := string(t.Source[d.Start:d.End])
		if i := indexLineEnd(text); i >= 0 {
			text = text[:i]
		}
		if len(text) > excerptLen {
			cut := excerptLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "..."
		}
		r.Diagnostics = append(r.Diagnostics, DiagnosticEntry{
			Kind:    d.Kind.String(),
			Line:    t.LineOf(d.Start),
			Message: d.Message,
			Excerpt: text,
		})
		if r.ByKind == nil {
			r.ByKind = make(map[string]int)
		}
		r.ByKind[d.Kind.String()]++
	}
	return r
}

func indexLineEnd(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return i
		}
	}
	return -1
}

func init() {
	for _, e := range []Extractor{
		Func{
			ID:      "cells",
			Summary: "executable code cells with decoded chunk options",
			Fn:      func(t *syntax.Tree) any { return cells.Extract(t) },
		},
		Func{
			ID:      "outline",
			Summary: "headings, cross-reference targets and uses",
			Fn:      func(t *syntax.Tree) any { return outline.Extract(t) },
		},
		Func{
			ID:      "diagnostics",
			Summary: "error nodes and recovered problems",
			Fn:      func(t *syntax.Tree) any { return Diagnostics(t) },
		},
	} {
		if err := Register(e); err != nil {
			panic(err)
		}
	}
}
