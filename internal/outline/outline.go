// Package outline extracts the heading structure and cross-reference graph
// of a document.
package outline

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roboco-io/qmdtree/internal/cells"
	"github.com/roboco-io/qmdtree/internal/syntax"
)

// Outline is the navigational summary of a document.
type Outline struct {
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Headings   []Heading   `json:"headings,omitempty" yaml:"headings,omitempty"`
	Targets    []Target    `json:"targets,omitempty" yaml:"targets,omitempty"`
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`
	Unresolved []Reference `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// Heading is one ATX or setext heading.
type Heading struct {
	Level   int      `json:"level" yaml:"level"`
	Text    string   `json:"text" yaml:"text"`
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Classes []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	Line    int      `json:"line" yaml:"line"`
}

// Target is a label that cross-references can point at.
type Target struct {
	Label string `json:"label" yaml:"label"`
	Type  string `json:"type" yaml:"type"`
	Kind  string `json:"kind" yaml:"kind"` // kind of the labelled node
	Line  int    `json:"line" yaml:"line"`
}

// Reference is one use of a cross-reference or citation.
type Reference struct {
	Key  string `json:"key" yaml:"key"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"` // empty for citations
	Kind string `json:"kind" yaml:"kind"`
	Line int    `json:"line" yaml:"line"`
}

// Extract builds the outline of t.
func Extract(t *syntax.Tree) Outline {
	var o Outline
	o.Title = title(t)

	seen := make(map[string]bool)
	addTarget := func(label, kind string, line int) {
		typ := referenceType(label)
		if typ == "" || seen[label] {
			return
		}
		seen[label] = true
		o.Targets = append(o.Targets, Target{Label: label, Type: typ, Kind: kind, Line: line})
	}

	// parents tracks the node an attribute list belongs to.
	var parents []*syntax.Node
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		if n == nil {
			parents = parents[:len(parents)-1]
			return false
		}
		switch n.Kind {
		case syntax.KindATXHeading, syntax.KindSetextHeading:
			o.Headings = append(o.Headings, heading(t, n))
		case syntax.KindAttributeList:
			if id := syntax.Attributes(t, n).ID; id != "" && len(parents) > 0 {
				addTarget(id, string(parents[len(parents)-1].Kind), t.LineOf(n.Start))
			}
		case syntax.KindCrossReference:
			typ := t.Text(n.ChildByField("type"))
			o.References = append(o.References, Reference{
				Key:  typ + "-" + t.Text(n.ChildByField("id")),
				Type: typ,
				Kind: string(n.Kind),
				Line: t.LineOf(n.Start),
			})
		case syntax.KindCitation:
			o.References = append(o.References, Reference{
				Key:  t.Text(n.ChildByField("key")),
				Kind: string(n.Kind),
				Line: t.LineOf(n.Start),
			})
		}
		parents = append(parents, n)
		return true
	})

	for _, c := range cells.Extract(t) {
		if !c.Inline && c.Label != "" {
			addTarget(c.Label, string(syntax.KindExecutableCodeCell), c.Line)
		}
	}

	for _, r := range o.References {
		if r.Kind == string(syntax.KindCrossReference) && !seen[r.Key] {
			o.Unresolved = append(o.Unresolved, r)
		}
	}
	return o
}

func heading(t *syntax.Tree, n *syntax.Node) Heading {
	h := Heading{
		Text: strings.TrimSpace(t.Text(n.ChildByField("content"))),
		Line: t.LineOf(n.Start),
	}
	if n.Kind == syntax.KindATXHeading {
		h.Level = n.ChildByField("marker").Len()
		a := syntax.Attributes(t, n.ChildByField("attributes"))
		h.ID, h.Classes = a.ID, a.Classes
	} else {
		h.Level = 2
		if u := n.ChildByField("underline"); u != nil && t.Source[u.Start] == '=' {
			h.Level = 1
		}
	}
	return h
}

// referenceType returns the cross-reference type of label, such as "fig"
// for "fig-plot", or "" when the label is not referenceable.
func referenceType(label string) string {
	for _, typ := range syntax.Rules().ReferenceTypes() {
		if strings.HasPrefix(label, typ+"-") && len(label) > len(typ)+1 {
			return typ
		}
	}
	return ""
}

// title reads the front-matter title, or the first percent metadata line.
func title(t *syntax.Tree) string {
	for _, n := range t.Root.Children {
		switch n.Kind {
		case syntax.KindYAMLFrontMatter:
			var meta struct {
				Title any `yaml:"title"`
			}
			if err := yaml.Unmarshal([]byte(t.Text(n.ChildByField("content"))), &meta); err != nil {
				return ""
			}
			if s, ok := meta.Title.(string); ok {
				return s
			}
			return ""
		case syntax.KindPercentMetadata:
			for _, c := range n.Children {
				if c.Kind == syntax.KindMetadataLine {
					return strings.TrimSpace(strings.TrimPrefix(t.Text(c), "%"))
				}
			}
		}
	}
	return ""
}
