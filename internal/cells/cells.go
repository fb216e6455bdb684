// Package cells extracts executable code cells from a syntax tree.
package cells

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roboco-io/qmdtree/internal/syntax"
)

// Option is one chunk option as written, continuation lines included.
type Option struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Line  int    `json:"line" yaml:"line"`
}

// Cell is an executable cell, block or inline.
type Cell struct {
	Language   string         `json:"language" yaml:"language"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
	Options    []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	Values     map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Attributes syntax.Attrs   `json:"attributes" yaml:"attributes"`
	Code       string         `json:"code" yaml:"code"`
	Inline     bool           `json:"inline,omitempty" yaml:"inline,omitempty"`
	Line       int            `json:"line" yaml:"line"`
}

// Extract returns the executable cells of t in document order.
func Extract(t *syntax.Tree) []Cell {
	var out []Cell
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		if n == nil {
			return false
		}
		switch n.Kind {
		case syntax.KindExecutableCodeCell:
			out = append(out, block(t, n))
			return false
		case syntax.KindInlineCodeCell:
			out = append(out, inline(t, n))
			return false
		}
		return true
	})
	return out
}

func block(t *syntax.Tree, n *syntax.Node) Cell {
	c := Cell{
		Language:   t.Text(n.ChildByField("language")),
		Label:      t.Text(n.ChildByField("label")),
		Attributes: syntax.Attributes(t, n.ChildByField("attributes")),
		Code:       t.Text(n.ChildByField("content")),
		Line:       t.LineOf(n.Start),
	}

	// Header pairs first so that #| options override them.
	values := make(map[string]any)
	for _, kv := range c.Attributes.Pairs {
		values[kv.Key] = scalar(kv.Value)
	}
	if opts := n.ChildByField("chunk_options"); opts != nil {
		c.Options = options(t, opts)
	}
	for _, o := range c.Options {
		values[o.Key] = decode(o)
	}

	switch {
	case values["label"] != nil:
		if s, ok := values["label"].(string); ok {
			c.Label = s
		}
	case c.Label == "" && c.Attributes.ID != "":
		c.Label = c.Attributes.ID
	}
	if len(values) > 0 {
		c.Values = values
	}
	return c
}

func inline(t *syntax.Tree, n *syntax.Node) Cell {
	return Cell{
		Language: t.Text(n.ChildByField("language")),
		Code:     strings.TrimSpace(t.Text(n.ChildByField("content"))),
		Inline:   true,
		Line:     t.LineOf(n.Start),
	}
}

// options folds continuation lines into the option they follow.
func options(t *syntax.Tree, n *syntax.Node) []Option {
	var out []Option
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindChunkOption:
			out = append(out, Option{
				Key:   t.Text(c.ChildByField("key")),
				Value: t.Text(c.ChildByField("value")),
				Line:  t.LineOf(c.Start),
			})
		case syntax.KindChunkOptionContinuation:
			if len(out) == 0 {
				continue
			}
			last := &out[len(out)-1]
			last.Value += "\n" + continuation(t, c)
		}
	}
	return out
}

func continuation(t *syntax.Tree, n *syntax.Node) string {
	for _, c := range n.Children {
		if c.Kind == syntax.KindRaw {
			return t.Text(c)
		}
	}
	return ""
}

// decode reads an option value as YAML. Values that do not decode are
// kept as text.
func decode(o Option) any {
	var m map[string]any
	doc := o.Key + ": " + o.Value + "\n"
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		return o.Value
	}
	v, ok := m[o.Key]
	if !ok {
		return o.Value
	}
	return v
}

// scalar reads a header value such as FALSE or 7 as a YAML scalar.
func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	switch v.(type) {
	case map[string]any, []any:
		return s
	}
	return v
}
