package syntax

import "bytes"

// parseAttributes parses the inside of a {...} suffix, [start, end)
// excluding the braces. It returns the nodes covering the range and the
// attribute_list among them. commas admits knitr-style comma separators.
//
// Entries come in a fixed order: an optional identifier, then classes,
// then key/value pairs. An entry out of that order rejects the list.
func parseAttributes(src []byte, start, end int, commas bool) ([]*Node, *Node, bool) {
	sc := attrScanner{src: src, pos: start, end: end, commas: commas}

	lead := sc.separators()
	var entries, trail []*Node
	count := 0
	pairs := false
	for sc.pos < sc.end {
		var e *Node
		switch src[sc.pos] {
		case '#':
			if count > 0 {
				return nil, nil, false
			}
			e = sc.name(KindAttributeID, "id", isIDChar)
		case '.':
			if pairs {
				return nil, nil, false
			}
			e = sc.name(KindAttributeClass, "class", isNameChar)
		default:
			e = sc.pair()
			pairs = true
		}
		if e == nil {
			return nil, nil, false
		}
		count++
		entries = append(entries, e)
		if sc.pos == sc.end {
			break
		}
		seps := sc.separators()
		if len(seps) == 0 {
			return nil, nil, false
		}
		if sc.pos == sc.end {
			trail = seps
			break
		}
		entries = append(entries, seps...)
	}
	if count == 0 {
		return nil, nil, false
	}

	list := branch(KindAttributeList, entries...)
	nodes := append(lead, list)
	return append(nodes, trail...), list, true
}

type attrScanner struct {
	src    []byte
	pos    int
	end    int
	commas bool
}

func (sc *attrScanner) separators() []*Node {
	var out []*Node
	for sc.pos < sc.end {
		switch c := sc.src[sc.pos]; {
		case isSpace(c):
			s := sc.pos
			sc.pos = skipSpaces(sc.src, sc.pos, sc.end)
			out = append(out, space(s, sc.pos))
		case c == ',' && sc.commas:
			out = append(out, punct(sc.pos, sc.pos+1))
			sc.pos++
		default:
			return out
		}
	}
	return out
}

func isIDChar(b byte) bool {
	return isNameChar(b) || b == ':' || b == '.'
}

// name scans a sigil-prefixed name such as #id or .class.
func (sc *attrScanner) name(kind Kind, field string, tail func(byte) bool) *Node {
	s := sc.pos
	p := s + 1
	if p >= sc.end || !(isAlpha(sc.src[p]) || sc.src[p] == '_') {
		return nil
	}
	for p < sc.end && tail(sc.src[p]) {
		p++
	}
	sc.pos = p
	return leaf(kind, s, p).as(field)
}

func (sc *attrScanner) pair() *Node {
	ks := sc.pos
	ke := scanOptionKey(sc.src, ks, sc.end)
	if ke == ks || ke >= sc.end || sc.src[ke] != '=' {
		return nil
	}
	vs := ke + 1
	ve := vs
	if vs < sc.end && (sc.src[vs] == '"' || sc.src[vs] == '\'') {
		q := bytes.IndexByte(sc.src[vs+1:sc.end], sc.src[vs])
		if q < 0 {
			return nil
		}
		ve = vs + 1 + q + 1
	} else {
		for ve < sc.end && !isSpace(sc.src[ve]) && sc.src[ve] != '}' && !(sc.commas && sc.src[ve] == ',') {
			ve++
		}
		if ve == vs {
			return nil
		}
	}
	sc.pos = ve
	return branch(KindKeyValueAttribute,
		leaf(KindAttributeKey, ks, ke).as("key"),
		punct(ke, ke+1),
		leaf(KindAttributeValue, vs, ve).as("value"),
	).as("attribute")
}

// attrClose finds the brace closing an attribute suffix opened at open,
// skipping quoted values. It returns -1 when the suffix is not closed
// before end or a line break.
func attrClose(src []byte, open, end int) int {
	var quote byte
	for i := open + 1; i < end; i++ {
		c := src[i]
		switch {
		case c == '\n' || c == '\r':
			return -1
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '}':
			return i
		}
	}
	return -1
}

// braced parses a {...} suffix starting at open. It returns the nodes for
// the braces and their content, the attribute_list, and the offset after
// the closing brace.
func braced(src []byte, open, end int, commas bool) ([]*Node, *Node, int, bool) {
	rb := attrClose(src, open, end)
	if rb < 0 {
		return nil, nil, open, false
	}
	inner, list, ok := parseAttributes(src, open+1, rb, commas)
	if !ok {
		return nil, nil, rb + 1, false
	}
	list.as("attributes")
	nodes := []*Node{punct(open, open+1)}
	nodes = append(nodes, inner...)
	nodes = append(nodes, punct(rb, rb+1))
	return nodes, list, rb + 1, true
}

// KeyValue is one key/value attribute.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Attrs is a decoded attribute list. Classes and Pairs keep source
// order.
type Attrs struct {
	ID      string     `json:"id,omitempty" yaml:"id,omitempty"`
	Classes []string   `json:"classes,omitempty" yaml:"classes,omitempty"`
	Pairs   []KeyValue `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// Attributes decodes an attribute_list node. A nil node decodes to the
// zero value.
func Attributes(t *Tree, n *Node) Attrs {
	return attrsOf(t.Source, n)
}

func attrsOf(src []byte, n *Node) Attrs {
	var a Attrs
	if n == nil {
		return a
	}
	for _, c := range n.Children {
		switch c.Kind {
		case KindAttributeID:
			a.ID = string(src[c.Start+1 : c.End])
		case KindAttributeClass:
			a.Classes = append(a.Classes, string(src[c.Start+1:c.End]))
		case KindKeyValueAttribute:
			k, v := c.ChildByField("key"), c.ChildByField("value")
			a.Pairs = append(a.Pairs, KeyValue{
				Key:   string(src[k.Start:k.End]),
				Value: unquote(string(src[v.Start:v.End])),
			})
		}
	}
	return a
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// HasClass reports whether the list carries class c.
func (a Attrs) HasClass(c string) bool {
	for _, cls := range a.Classes {
		if cls == c {
			return true
		}
	}
	return false
}

// HasOneOfClasses reports whether the list carries any of cs.
func (a Attrs) HasOneOfClasses(cs ...string) bool {
	for _, c := range cs {
		if a.HasClass(c) {
			return true
		}
	}
	return false
}

// Get returns the value of the first pair with key.
func (a Attrs) Get(key string) (string, bool) {
	for _, kv := range a.Pairs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// CalloutType returns the callout type of a callout_block ("note",
// "warning", ...), or "" for any other node.
func CalloutType(t *Tree, n *Node) string {
	if n == nil || n.Kind != KindCalloutBlock {
		return ""
	}
	for _, c := range Attributes(t, n.ChildByField("attributes")).Classes {
		if m := calloutClass.FindStringSubmatch(c); m != nil {
			return m[1]
		}
	}
	return ""
}

func chunkOption(src []byte, l line) *Node {
	ks := skipSpaces(src, l.start+2, l.end)
	ke := scanOptionKey(src, ks, l.end)
	vs := skipSpaces(src, ke+1, l.end)
	ve := trimTrailingSpaces(src, vs, l.end)
	return branch(KindChunkOption,
		leaf(KindChunkOptionMarker, l.start, l.start+2),
		space(l.start+2, ks),
		leaf(KindChunkOptionKey, ks, ke).as("key"),
		punct(ke, ke+1),
		space(ke+1, vs),
		leaf(KindChunkOptionValue, vs, ve).as("value"),
		space(ve, l.end),
		leaf(KindNewline, l.end, l.next),
	)
}

func chunkContinuation(src []byte, l line) *Node {
	return branch(KindChunkOptionContinuation,
		leaf(KindChunkOptionMarker, l.start, l.start+2),
		leaf(KindRaw, l.start+2, l.end),
		leaf(KindNewline, l.end, l.next),
	).as("continuation")
}
