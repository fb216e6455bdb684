package syntax

import (
	"fmt"
	"sort"
)

// Node is one node of a syntax tree. Start and End are byte offsets into
// the source buffer. Field names the parent field this node is attached
// under, or is empty.
type Node struct {
	Kind     Kind      `json:"kind"`
	Field    string    `json:"field,omitempty"`
	Start    int       `json:"start"`
	End      int       `json:"end"`
	Error    ErrorKind `json:"error,omitempty"`
	Children []*Node   `json:"children,omitempty"`
}

// Named reports whether the node is a grammar variant.
func (n *Node) Named() bool {
	return n.Kind.Named()
}

// IsError reports whether the node is an error marker.
func (n *Node) IsError() bool {
	return n.Kind == KindError
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Len returns the number of bytes the node covers.
func (n *Node) Len() int {
	return n.End - n.Start
}

// ChildByField returns the first child attached under field.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenByField returns every child attached under field, in order.
func (n *Node) ChildrenByField(field string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns the named children of n.
func (n *Node) NamedChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Named() {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOfKind returns the direct children with the given kind.
func (n *Node) ChildrenOfKind(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) String() string {
	if n.Field != "" {
		return fmt.Sprintf("%s: %s [%d, %d)", n.Field, n.Kind, n.Start, n.End)
	}
	return fmt.Sprintf("%s [%d, %d)", n.Kind, n.Start, n.End)
}

// Diagnostic describes a recovered problem in the source.
type Diagnostic struct {
	Kind    ErrorKind `json:"kind"`
	Start   int       `json:"start"`
	End     int       `json:"end"`
	Message string    `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d-%d: %s: %s", d.Start, d.End, d.Kind, d.Message)
}

// Tree is the result of a parse. It is never mutated after Parse returns.
type Tree struct {
	Source      []byte
	Root        *Node
	Diagnostics []Diagnostic

	starts []int // line start offsets
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *Node) string {
	if n == nil {
		return ""
	}
	return string(t.Source[n.Start:n.End])
}

// Leaves returns the leaf nodes in source order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	Inspect(t.Root, func(n *Node) bool {
		if n == nil {
			return false
		}
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Find returns every node of the given kind in document order.
func (t *Tree) Find(kind Kind) []*Node {
	var out []*Node
	Inspect(t.Root, func(n *Node) bool {
		if n == nil {
			return false
		}
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Errors returns the error-marker nodes in document order.
func (t *Tree) Errors() []*Node {
	return t.Find(KindError)
}

// HasErrors reports whether the tree contains an error-marker node.
func (t *Tree) HasErrors() bool {
	found := false
	Inspect(t.Root, func(n *Node) bool {
		if n == nil || found {
			return false
		}
		if n.IsError() {
			found = true
			return false
		}
		return true
	})
	return found
}

// LineOf returns the 1-based line number of the byte offset pos. Lines
// end at LF, CRLF or a lone CR.
func (t *Tree) LineOf(pos int) int {
	if t.starts == nil {
		t.starts = lineStarts(splitLines(t.Source))
	}
	if pos < 0 {
		return 1
	}
	return sort.SearchInts(t.starts, pos+1)
}
