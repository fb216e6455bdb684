package syntax

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Visitor defines the method to implement to walk a syntax tree.
type Visitor interface {
	Visit(n *Node) Visitor
}

// Walk walks a syntax tree using Visitor.
func Walk(v Visitor, n *Node) {
	if v = v.Visit(n); v == nil {
		return
	}

	for _, c := range n.Children {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(*Node) bool

func (f inspector) Visit(node *Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses a tree in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the children of node, followed by a call of
// f(nil).
func Inspect(node *Node, f func(*Node) bool) {
	if node == nil {
		return
	}
	Walk(inspector(f), node)
}

// Print writes one line per node to w, indenting children.
func Print(t *Tree, w io.Writer, indent string) {
	var depth int
	Inspect(t.Root, func(n *Node) bool {
		if n == nil {
			depth--
			return false
		}
		space := strings.Repeat(indent, depth)
		if n.IsLeaf() {
			fmt.Fprintf(w, "%s%s %s\n", space, n, strconv.Quote(t.Text(n)))
		} else {
			fmt.Fprintf(w, "%s%s\n", space, n)
		}
		depth++
		return true
	})
}

// SExpr renders the named nodes of the tree as an s-expression. Fields are
// written as "name:" prefixes.
func SExpr(t *Tree) string {
	var b strings.Builder
	writeSExpr(&b, t.Root, true)
	return b.String()
}

// SExprKinds is SExpr without field prefixes.
func SExprKinds(t *Tree) string {
	var b strings.Builder
	writeSExpr(&b, t.Root, false)
	return b.String()
}

func writeSExpr(b *strings.Builder, n *Node, fields bool) {
	if fields && n.Field != "" {
		b.WriteString(n.Field)
		b.WriteString(": ")
	}
	b.WriteByte('(')
	b.WriteString(string(n.Kind))
	for _, c := range n.Children {
		if !c.Named() {
			continue
		}
		b.WriteByte(' ')
		writeSExpr(b, c, fields)
	}
	b.WriteByte(')')
}
