// Package ir defines the serializable form of a parsed document.
// It is what the CLI prints as JSON or YAML.
package ir

import (
	"sort"

	"github.com/roboco-io/qmdtree/internal/syntax"
)

// Version is the schema version written into every document.
const Version = "1.0"

// Document is the serializable form of a syntax tree.
type Document struct {
	Version     string       `json:"version" yaml:"version"`
	Metadata    Metadata     `json:"metadata" yaml:"metadata"`
	Root        *Node        `json:"root,omitempty" yaml:"root,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Metadata describes the source and the shape of the tree.
type Metadata struct {
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
	Lines  int    `json:"lines" yaml:"lines"`
	Nodes  int    `json:"nodes" yaml:"nodes"`
	Errors int    `json:"errors" yaml:"errors"`
}

// Node is one tree node. Text is set on leaves only.
type Node struct {
	Kind     string  `json:"kind" yaml:"kind"`
	Field    string  `json:"field,omitempty" yaml:"field,omitempty"`
	Start    int     `json:"start" yaml:"start"`
	End      int     `json:"end" yaml:"end"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Diagnostic is a recovered problem with its 1-based line.
type Diagnostic struct {
	Kind    string `json:"kind" yaml:"kind"`
	Line    int    `json:"line" yaml:"line"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	Message string `json:"message" yaml:"message"`
}

// Options controls the projection of a tree into a document.
type Options struct {
	// Anonymous keeps punctuation, whitespace and newline nodes.
	Anonymous bool
	// Text adds the covered source to leaf nodes.
	Text bool
}

// NewDocument creates a new IR document with the current version.
func NewDocument() *Document {
	return &Document{
		Version: Version,
	}
}

// FromTree builds a document from t.
func FromTree(t *syntax.Tree, opts Options) *Document {
	doc := NewDocument()
	doc.Metadata.Bytes = len(t.Source)
	doc.Metadata.Lines = countLines(t.Source)
	doc.Root = convert(t, t.Root, opts, &doc.Metadata)

	for _, d := range t.Diagnostics {
		doc.AddDiagnostic(Diagnostic{
			Kind:    d.Kind.String(),
			Line:    t.LineOf(d.Start),
			Start:   d.Start,
			End:     d.End,
			Message: d.Message,
		})
	}
	return doc
}

func convert(t *syntax.Tree, n *syntax.Node, opts Options, meta *Metadata) *Node {
	if n == nil {
		return nil
	}
	meta.Nodes++
	out := &Node{
		Kind:  string(n.Kind),
		Field: n.Field,
		Start: n.Start,
		End:   n.End,
	}
	if n.IsError() {
		meta.Errors++
		out.Error = n.Error.String()
	}
	if n.IsLeaf() {
		if opts.Text {
			out.Text = t.Text(n)
		}
		return out
	}
	for _, c := range n.Children {
		if !opts.Anonymous && !c.Named() {
			continue
		}
		out.Children = append(out.Children, convert(t, c, opts, meta))
	}
	return out
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := 0
	for _, b := range src {
		if b == '\n' {
			n++
		}
	}
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

// AddDiagnostic appends a diagnostic to the document.
func (d *Document) AddDiagnostic(diag Diagnostic) {
	d.Diagnostics = append(d.Diagnostics, diag)
}

// Find returns every node of the given kind in document order.
func (d *Document) Find(kind string) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == kind {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d.Root)
	return out
}

// KindCount is the number of nodes of one kind.
type KindCount struct {
	Kind  string `json:"kind" yaml:"kind"`
	Count int    `json:"count" yaml:"count"`
}

// Histogram counts nodes per kind, most frequent first. Ties are ordered
// by kind.
func (d *Document) Histogram() []KindCount {
	counts := make(map[string]int)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		counts[n.Kind]++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d.Root)

	out := make([]KindCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, KindCount{Kind: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
