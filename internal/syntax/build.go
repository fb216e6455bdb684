package syntax

// leaf returns a leaf node, or nil for an empty range.
func leaf(kind Kind, start, end int) *Node {
	if end <= start {
		return nil
	}
	return &Node{Kind: kind, Start: start, End: end}
}

func punct(start, end int) *Node {
	return leaf(KindPunctuation, start, end)
}

func space(start, end int) *Node {
	return leaf(KindWhitespace, start, end)
}

// as attaches n under field. It is nil-safe.
func (n *Node) as(field string) *Node {
	if n != nil {
		n.Field = field
	}
	return n
}

// branch builds an interior node spanning its non-nil children. It
// returns nil when no child remains.
func branch(kind Kind, children ...*Node) *Node {
	kept := compact(children)
	if len(kept) == 0 {
		return nil
	}
	return &Node{
		Kind:     kind,
		Start:    kept[0].Start,
		End:      kept[len(kept)-1].End,
		Children: kept,
	}
}

func compact(nodes []*Node) []*Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// adopt appends children to n and widens its range.
func (n *Node) adopt(children ...*Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		if len(n.Children) == 0 || c.Start < n.Start {
			n.Start = c.Start
		}
		if c.End > n.End {
			n.End = c.End
		}
		n.Children = append(n.Children, c)
	}
}

// appendInline appends nodes to items, merging adjacent text runs.
func appendInline(items []*Node, nodes ...*Node) []*Node {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Kind == KindText && n.IsLeaf() && len(items) > 0 {
			last := items[len(items)-1]
			if last.Kind == KindText && last.IsLeaf() && last.End == n.Start && last.Field == "" {
				last.End = n.End
				continue
			}
		}
		items = append(items, n)
	}
	return items
}

// withField attaches every node in nodes under field.
func withField(field string, nodes []*Node) []*Node {
	for _, n := range nodes {
		n.as(field)
	}
	return nodes
}
