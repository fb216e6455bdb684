package syntax

import (
	"sort"
	"strings"
)

// delim is an open emphasis-like delimiter. mark is the index of its
// provisional opener leaf in the item list being built.
type delim struct {
	ch   byte
	n    int
	mark int
}

type delimKey struct {
	ch byte
	n  int
}

// inlineIndex holds positions computed in one pass over a content region
// so that every closer lookup is a binary search.
type inlineIndex struct {
	ticks      map[int][]int // backtick runs by length
	allTicks   []int
	brackets   map[int]int
	ats        []int // @ that can start a citation key
	blanks     []int
	mathClose  []int
	dollars    []int
	shortClose []int
}

func buildIndex(src []byte, start, end int) *inlineIndex {
	x := &inlineIndex{
		ticks:    make(map[int][]int),
		brackets: make(map[int]int),
	}
	for i := start; i < end; i++ {
		switch src[i] {
		case '`':
			n := runLength(src, i, end, '`')
			x.ticks[n] = append(x.ticks[n], i)
			for k := i; k < i+n; k++ {
				x.allTicks = append(x.allTicks, k)
			}
			i += n - 1
		case '$':
			if i+1 < end && src[i+1] == '$' {
				x.dollars = append(x.dollars, i)
			}
			if i > start && !isWhitespace(src[i-1]) && src[i-1] != '\\' && (i+1 >= end || !isDigit(src[i+1])) {
				x.mathClose = append(x.mathClose, i)
			}
		case '>':
			if i+2 < end && src[i+1] == '}' && src[i+2] == '}' {
				x.shortClose = append(x.shortClose, i)
			}
		case ' ', '\t', '\n', '\r':
			x.blanks = append(x.blanks, i)
		case '@':
			if i > start && i+1 < end && !isAlnum(src[i-1]) && (isAlnum(src[i+1]) || src[i+1] == '_') {
				x.ats = append(x.ats, i)
			}
		}
	}

	var open []int
	for i := start; i < end; i++ {
		switch src[i] {
		case '\\':
			i++
		case '`':
			n := runLength(src, i, end, '`')
			if c := nextAt(x.ticks[n], i+n, end); c >= 0 {
				i = c + n - 1
			} else {
				i += n - 1
			}
		case '[':
			open = append(open, i)
		case ']':
			if len(open) > 0 {
				x.brackets[open[len(open)-1]] = i
				open = open[:len(open)-1]
			}
		}
	}
	return x
}

// nextAt returns the first position in list at or after from and before
// end, or -1.
func nextAt(list []int, from, end int) int {
	i := sort.SearchInts(list, from)
	if i < len(list) && list[i] < end {
		return list[i]
	}
	return -1
}

type inlineParser struct {
	s   *session
	src []byte
	x   *inlineIndex
	pos int
	end int

	restricted bool // inside link text or image alt

	// Open delimiters, innermost last. open maps each delimiter shape to
	// its stack indexes so closers are found without scanning the stack.
	// Entries below floor belong to an enclosing region and cannot close.
	stack []delim
	open  map[delimKey][]int
	floor int

	runStart, runEnd, runBound int
}

// inlineItems parses [start, end) as an inline sequence.
func (s *session) inlineItems(start, end int) []*Node {
	if start >= end {
		return nil
	}
	ip := &inlineParser{
		s:    s,
		src:  s.src,
		x:    buildIndex(s.src, start, end),
		pos:  start,
		end:  end,
		open: make(map[delimKey][]int),
	}
	items, _ := ip.seq(nil)
	return normalize(items)
}

// inline parses [start, end) into an inline node.
func (s *session) inline(start, end int) *Node {
	return branch(KindInline, s.inlineItems(start, end)...)
}

// normalize merges the adjacent text runs left behind by openers that
// turned back into text.
func normalize(items []*Node) []*Node {
	if len(items) < 2 {
		return items
	}
	return appendInline(make([]*Node, 0, len(items)), items...)
}

// seq appends elements to items until the region ends or the current
// position closes one of the open delimiters. closed reports whether the
// innermost delimiter was closed.
func (ip *inlineParser) seq(items []*Node) ([]*Node, bool) {
	for ip.pos < ip.end {
		if k := ip.closer(items); k >= 0 {
			return items, k == len(ip.stack)-1
		}
		items = ip.element(items)
	}
	return items, false
}

func (ip *inlineParser) push(d delim) {
	k := delimKey{d.ch, d.n}
	ip.open[k] = append(ip.open[k], len(ip.stack))
	ip.stack = append(ip.stack, d)
}

func (ip *inlineParser) pop() {
	d := ip.stack[len(ip.stack)-1]
	k := delimKey{d.ch, d.n}
	ip.open[k] = ip.open[k][:len(ip.open[k])-1]
	ip.stack = ip.stack[:len(ip.stack)-1]
}

// closer returns the stack index of the innermost delimiter closed at the
// current position, or -1. The innermost one needs some content first.
func (ip *inlineParser) closer(items []*Node) int {
	top := len(ip.stack) - 1
	p := ip.pos
	if top < ip.floor || p == 0 || isWhitespace(ip.src[p-1]) {
		return -1
	}
	c := ip.src[p]
	content := len(items) > ip.stack[top].mark+1
	best := -1
	for n := 1; n <= 2; n++ {
		if !ip.closes(c, n) {
			continue
		}
		list := ip.open[delimKey{c, n}]
		k := len(list) - 1
		if k >= 0 && list[k] == top && !content {
			k--
		}
		if k >= 0 && list[k] >= ip.floor && list[k] > best {
			best = list[k]
		}
	}
	return best
}

func (ip *inlineParser) closes(c byte, n int) bool {
	p := ip.pos
	if p+n > ip.end {
		return false
	}
	for k := 1; k < n; k++ {
		if ip.src[p+k] != c {
			return false
		}
	}
	if c == '_' && p+n < len(ip.src) && isAlnum(ip.src[p+n]) {
		return false
	}
	return true
}

// sub parses [start, end) as a nested sequence in which the enclosing
// open delimiters cannot close.
func (ip *inlineParser) sub(start, end int, restricted bool) []*Node {
	pos, stop, was, floor := ip.pos, ip.end, ip.restricted, ip.floor
	ip.pos, ip.end, ip.restricted, ip.floor = start, end, was || restricted, len(ip.stack)
	items, _ := ip.seq(nil)
	ip.pos, ip.end, ip.restricted, ip.floor = pos, stop, was, floor
	return normalize(items)
}

func (ip *inlineParser) element(items []*Node) []*Node {
	p := ip.pos
	switch c := ip.src[p]; {
	case c == '\n':
		ip.pos++
		return append(items, leaf(KindNewline, p, p+1))
	case c == '\r' && p+1 < ip.end && ip.src[p+1] == '\n':
		ip.pos += 2
		return append(items, leaf(KindNewline, p, p+2))
	case c == '\r':
		ip.pos++
		return append(items, leaf(KindNewline, p, p+1))
	}

	for _, g := range ip.s.rules.Candidates(LevelInline, ip.src[p]) {
		members := ip.enabled(g)
		if len(members) == 0 {
			continue
		}
		if members[0].Shape == KindEmphasis {
			if res, ok := ip.emphasis(items, members); ok {
				return res
			}
			continue
		}
		if nodes, ok := ip.match(members); ok {
			return appendInline(items, nodes...)
		}
	}
	return ip.text(items)
}

func (ip *inlineParser) enabled(group []*Rule) []*Rule {
	var out []*Rule
	for _, r := range group {
		if r.Extension && !ip.s.opts.PandocExtensions {
			continue
		}
		if ip.restricted && !r.LinkText {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (ip *inlineParser) match(group []*Rule) ([]*Node, bool) {
	switch group[0].Shape {
	case KindInlineCodeCell:
		return ip.inlineCell()
	case KindCodeSpan:
		return ip.codeSpan()
	case KindInlineMath:
		return ip.math()
	case KindInlineFootnote:
		return ip.inlineFootnote()
	case KindFootnoteReference:
		return ip.footnoteReference()
	case KindLink:
		return ip.link()
	case KindCitationGroup:
		return ip.citationGroup()
	case KindImage:
		return ip.image()
	case KindCrossReference:
		return ip.crossReference()
	case KindCitation:
		return ip.citation()
	case KindShortcodeInline:
		return ip.shortcode()
	case KindURIAutolink:
		return ip.autolink()
	case KindHardLineBreak:
		return ip.hardLineBreak()
	case KindBackslashEscape:
		return ip.escape()
	}
	return nil, false
}

func (ip *inlineParser) text(items []*Node) []*Node {
	s := ip.pos
	ip.pos++
	for ip.pos < ip.end && !ip.s.rules.InlineTrigger(ip.src[ip.pos]) && ip.src[ip.pos] != '\n' && ip.src[ip.pos] != '\r' {
		ip.pos++
	}
	return appendInline(items, leaf(KindText, s, ip.pos))
}

func one(n *Node) ([]*Node, bool) {
	if n == nil {
		return nil, false
	}
	return []*Node{n}, true
}

func delimFor(c byte, run int) (Kind, int) {
	switch c {
	case '*', '_':
		if run >= 2 {
			return KindStrongEmphasis, 2
		}
		return KindEmphasis, 1
	case '~':
		if run >= 2 {
			return KindStrikethrough, 2
		}
		return KindSubscript, 1
	case '=':
		if run >= 2 {
			return KindHighlight, 2
		}
	case '^':
		return KindSuperscript, 1
	}
	return "", 0
}

// runAt is runLength of c from p, remembering the last run so that a
// long run opened two bytes at a time is scanned once.
func (ip *inlineParser) runAt(p int, c byte) int {
	if p < ip.runStart || p >= ip.runEnd || ip.runBound != ip.end || ip.src[p] != c {
		ip.runStart, ip.runEnd, ip.runBound = p, p+runLength(ip.src, p, ip.end, c), ip.end
	}
	return ip.runEnd - p
}

// emphasis opens a delimiter and parses up to its closer into items. The
// opener is appended as a provisional delimiter leaf; if it never closes
// that leaf becomes text and the content stays where it was parsed, so no
// input is scanned or copied twice.
func (ip *inlineParser) emphasis(items []*Node, group []*Rule) ([]*Node, bool) {
	p := ip.pos
	c := ip.src[p]
	run := ip.runAt(p, c)
	kind, n := delimFor(c, run)
	if !hasKind(group, kind) {
		return items, false
	}
	if p+run >= ip.end || isWhitespace(ip.src[p+run]) || (c == '_' && p > 0 && isAlnum(ip.src[p-1])) {
		ip.pos = p + run
		return appendInline(items, leaf(KindText, p, p+run)), true
	}

	ip.pos += n
	mark := len(items)
	items = append(items, leaf(KindEmphasisDelimiter, p, p+n))
	ip.push(delim{ch: c, n: n, mark: mark})
	items, closed := ip.seq(items)
	ip.pop()
	if !closed {
		items[mark].Kind = KindText
		return items, true
	}
	cs := ip.pos
	ip.pos += n
	children := appendInline(make([]*Node, 0, len(items)-mark+1), items[mark:]...)
	children = append(children, leaf(KindEmphasisDelimiter, cs, cs+n))
	return append(items[:mark], branch(kind, children...)), true
}

func hasKind(group []*Rule, kind Kind) bool {
	for _, r := range group {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func (ip *inlineParser) inlineCell() ([]*Node, bool) {
	p := ip.pos
	if runLength(ip.src, p, ip.end, '`') != 1 {
		return nil, false
	}
	q := p + 1
	var header []*Node
	cs := q
	switch {
	case q < ip.end && ip.src[q] == '{':
		ls := q + 1
		le := scanName(ip.src, ls, ip.end)
		if le == ls || le >= ip.end || ip.src[le] != '}' {
			return nil, false
		}
		header = []*Node{punct(q, q+1), leaf(KindLanguageName, ls, le).as("language"), punct(le, le+1)}
		cs = le + 1
	case q+1 < ip.end && ip.src[q] == 'r' && isSpace(ip.src[q+1]):
		header = []*Node{leaf(KindLanguageName, q, q+1).as("language")}
		cs = q + 1
	default:
		return nil, false
	}

	ce := skipSpaces(ip.src, cs, ip.end)
	rb := nextAt(ip.x.allTicks, ce, ip.end)
	if rb <= ce {
		return nil, false
	}
	ip.pos = rb + 1
	children := []*Node{leaf(KindInlineCellDelim, p, p+1)}
	children = append(children, header...)
	children = append(children,
		space(cs, ce),
		leaf(KindCellContent, ce, rb).as("content"),
		leaf(KindInlineCellDelim, rb, rb+1),
	)
	return one(branch(KindInlineCodeCell, children...))
}

// codeSpan matches a backtick run up to the next run of the same length.
// An unmatched run is a lexical error covering just the run.
func (ip *inlineParser) codeSpan() ([]*Node, bool) {
	p := ip.pos
	n := runLength(ip.src, p, ip.end, '`')
	cl := nextAt(ip.x.ticks[n], p+n, ip.end)
	if cl < 0 || cl+n > ip.end {
		ip.pos = p + n
		return one(ip.s.errorLeaf(ErrorLexical, p, p+n, "unterminated code span"))
	}
	ip.pos = cl + n
	node := branch(KindCodeSpan,
		leaf(KindCodeSpanDelimiter, p, p+n),
		leaf(KindCodeSpanContent, p+n, cl),
		leaf(KindCodeSpanDelimiter, cl, cl+n),
	)

	if ip.pos >= ip.end || ip.src[ip.pos] != '{' {
		return one(node)
	}
	if fs, fe, end, ok := rawFormat(ip.src, ip.pos, ip.end); ok {
		node.Kind = KindRawInline
		node.adopt(
			punct(ip.pos, ip.pos+2),
			leaf(KindRawFormat, fs, fe).as("format"),
			punct(fe, end),
		)
		ip.pos = end
		return one(node)
	}
	nodes, _, end, ok := braced(ip.src, ip.pos, ip.end, false)
	if ok {
		node.adopt(nodes...)
		ip.pos = end
	} else if end > ip.pos {
		ip.s.degrade(ip.pos, end, "malformed attribute list after code span")
	}
	return one(node)
}

// rawFormat matches {=format} at open.
func rawFormat(src []byte, open, end int) (int, int, int, bool) {
	if open+2 >= end || src[open] != '{' || src[open+1] != '=' {
		return 0, 0, 0, false
	}
	fs := open + 2
	fe := fs
	for fe < end && (isAlnum(src[fe]) || src[fe] == '_' || src[fe] == '-') {
		fe++
	}
	if fe == fs || fe >= end || src[fe] != '}' {
		return 0, 0, 0, false
	}
	return fs, fe, fe + 1, true
}

func (ip *inlineParser) math() ([]*Node, bool) {
	p := ip.pos
	if p+1 < ip.end && ip.src[p+1] == '$' {
		c := nextAt(ip.x.dollars, p+2, ip.end)
		if c < 0 || c == p+2 || c+2 > ip.end {
			return nil, false
		}
		ip.pos = c + 2
		return one(branch(KindInlineMath,
			leaf(KindMathDelimiter, p, p+2),
			leaf(KindMathContent, p+2, c).as("content"),
			leaf(KindMathDelimiter, c, c+2),
		))
	}
	if p+1 >= ip.end || isWhitespace(ip.src[p+1]) {
		return nil, false
	}
	c := nextAt(ip.x.mathClose, p+2, ip.end)
	if c < 0 {
		return nil, false
	}
	ip.pos = c + 1
	return one(branch(KindInlineMath,
		leaf(KindMathDelimiter, p, p+1),
		leaf(KindMathContent, p+1, c).as("content"),
		leaf(KindMathDelimiter, c, c+1),
	))
}

func (ip *inlineParser) bracket(open int) (int, bool) {
	c, ok := ip.x.brackets[open]
	if !ok || c >= ip.end {
		return 0, false
	}
	return c, true
}

func (ip *inlineParser) footnoteReference() ([]*Node, bool) {
	p := ip.pos
	if p+1 >= ip.end || ip.src[p+1] != '^' {
		return nil, false
	}
	c, ok := ip.bracket(p)
	if !ok || c == p+2 {
		return nil, false
	}
	if nextAt(ip.x.blanks, p+2, c) >= 0 {
		return nil, false
	}
	ip.pos = c + 1
	return one(branch(KindFootnoteReference,
		punct(p, p+1),
		punct(p+1, p+2),
		leaf(KindFootnoteLabel, p+2, c).as("label"),
		punct(c, c+1),
	))
}

func (ip *inlineParser) inlineFootnote() ([]*Node, bool) {
	p := ip.pos
	if p+1 >= ip.end || ip.src[p+1] != '[' {
		return nil, false
	}
	c, ok := ip.bracket(p + 1)
	if !ok {
		return nil, false
	}
	children := []*Node{punct(p, p+1), punct(p+1, p+2)}
	children = append(children, ip.sub(p+2, c, false)...)
	children = append(children, punct(c, c+1))
	ip.pos = c + 1
	return one(branch(KindInlineFootnote, children...))
}

// link matches [text](destination), [text]{attributes} and
// [text][reference]. The destination and attributes forms are distinct
// alternatives, so a link never carries both fields.
func (ip *inlineParser) link() ([]*Node, bool) {
	p := ip.pos
	c, ok := ip.bracket(p)
	if !ok {
		return nil, false
	}
	after := c + 1
	if after >= ip.end {
		return nil, false
	}

	var tail []*Node
	var end int
	switch ip.src[after] {
	case '(':
		tail, end, ok = ip.destination(after)
		if !ok {
			return nil, false
		}
	case '{':
		tail, _, end, ok = braced(ip.src, after, ip.end, false)
		if !ok {
			if end > after {
				ip.s.degrade(after, end, "malformed attribute list after link text")
			}
			return nil, false
		}
	case '[':
		rc, ok := ip.bracket(after)
		if !ok {
			return nil, false
		}
		tail = []*Node{
			punct(after, after+1),
			leaf(KindReferenceLabel, after+1, rc).as("reference"),
			punct(rc, rc+1),
		}
		end = rc + 1
	default:
		return nil, false
	}

	text := branch(KindLinkText, ip.sub(p+1, c, true)...).as("text")
	children := []*Node{punct(p, p+1), text, punct(c, c+1)}
	children = append(children, tail...)
	ip.pos = end
	return one(branch(KindLink, children...))
}

// destination parses (url "title") starting at open.
func (ip *inlineParser) destination(open int) ([]*Node, int, bool) {
	src, end := ip.src, ip.end
	ds := skipSpaces(src, open+1, end)
	de := ds
	if de < end && src[de] == '<' {
		for de < end && src[de] != '>' && src[de] != '\n' {
			de++
		}
		if de >= end || src[de] != '>' {
			return nil, 0, false
		}
		de++
	} else {
		depth := 0
		for de < end && !isWhitespace(src[de]) {
			if src[de] == '(' {
				depth++
			} else if src[de] == ')' {
				if depth == 0 {
					break
				}
				depth--
			}
			de++
		}
	}
	if de == ds {
		return nil, 0, false
	}

	ts := skipSpaces(src, de, end)
	te := ts
	if ts < end && (src[ts] == '"' || src[ts] == '\'') {
		q := ts + 1
		for q < end && src[q] != src[ts] {
			q++
		}
		if q >= end {
			return nil, 0, false
		}
		te = q + 1
	}
	rp := skipSpaces(src, te, end)
	if rp >= end || src[rp] != ')' {
		return nil, 0, false
	}
	return []*Node{
		punct(open, open+1),
		space(open+1, ds),
		leaf(KindLinkDestination, ds, de).as("destination"),
		space(de, ts),
		leaf(KindLinkTitle, ts, te).as("title"),
		space(te, rp),
		punct(rp, rp+1),
	}, rp + 1, true
}

func (ip *inlineParser) image() ([]*Node, bool) {
	p := ip.pos
	if p+1 >= ip.end || ip.src[p+1] != '[' {
		return nil, false
	}
	c, ok := ip.bracket(p + 1)
	if !ok || c+1 >= ip.end || ip.src[c+1] != '(' {
		return nil, false
	}
	dest, end, ok := ip.destination(c + 1)
	if !ok {
		return nil, false
	}
	children := []*Node{
		punct(p, p+1),
		punct(p+1, p+2),
		branch(KindImageAlt, ip.sub(p+2, c, true)...).as("alt"),
		punct(c, c+1),
	}
	children = append(children, dest...)
	if end < ip.end && ip.src[end] == '{' {
		if attrs, _, next, ok := braced(ip.src, end, ip.end, false); ok {
			children = append(children, attrs...)
			end = next
		} else if next > end {
			ip.s.degrade(end, next, "malformed attribute list after image")
		}
	}
	ip.pos = end
	return one(branch(KindImage, children...))
}

func (ip *inlineParser) citationGroup() ([]*Node, bool) {
	p := ip.pos
	c, ok := ip.bracket(p)
	if !ok {
		return nil, false
	}
	if nextAt(ip.x.ats, p+1, c) < 0 {
		return nil, false
	}
	children := []*Node{punct(p, p+1)}
	children = append(children, ip.sub(p+1, c, false)...)
	children = append(children, punct(c, c+1))
	ip.pos = c + 1
	return one(branch(KindCitationGroup, children...))
}

// atWordStart reports whether an @ at p starts a reference rather than
// continuing a word such as an e-mail address.
func (ip *inlineParser) atWordStart(p int) bool {
	return p == 0 || !(isAlnum(ip.src[p-1]) || ip.src[p-1] == '_')
}

func (ip *inlineParser) crossReference() ([]*Node, bool) {
	p := ip.pos
	if !ip.atWordStart(p) {
		return nil, false
	}
	for _, typ := range ip.s.rules.ReferenceTypes() {
		ts := p + 1
		te := ts + len(typ)
		if te >= ip.end || string(ip.src[ts:te]) != typ || ip.src[te] != '-' {
			continue
		}
		is := te + 1
		ie := is
		for ie < ip.end && isNameChar(ip.src[ie]) {
			ie++
		}
		for ie > is && ip.src[ie-1] == '-' {
			ie--
		}
		if ie == is {
			continue
		}
		ip.pos = ie
		return one(branch(KindCrossReference,
			punct(p, p+1),
			leaf(KindReferenceType, ts, te).as("type"),
			punct(te, te+1),
			leaf(KindReferenceID, is, ie).as("id"),
		))
	}
	return nil, false
}

func (ip *inlineParser) citation() ([]*Node, bool) {
	p := ip.pos
	if !ip.atWordStart(p) {
		return nil, false
	}
	k := p + 1
	if k >= ip.end || !(isAlnum(ip.src[k]) || ip.src[k] == '_') {
		return nil, false
	}
	for k < ip.end {
		c := ip.src[k]
		if isAlnum(c) || c == '_' {
			k++
			continue
		}
		if strings.IndexByte(":.-/", c) >= 0 && k+1 < ip.end && (isAlnum(ip.src[k+1]) || ip.src[k+1] == '_') {
			k++
			continue
		}
		break
	}
	ip.pos = k
	return one(branch(KindCitation,
		punct(p, p+1),
		leaf(KindCitationKey, p+1, k).as("key"),
	))
}

func (ip *inlineParser) shortcode() ([]*Node, bool) {
	p := ip.pos
	if p+2 >= ip.end || ip.src[p+1] != '{' || ip.src[p+2] != '<' {
		return nil, false
	}
	ns := skipSpaces(ip.src, p+3, ip.end)
	ne := scanName(ip.src, ns, ip.end)
	if ne == ns {
		return nil, false
	}
	c := nextAt(ip.x.shortClose, ne, ip.end)
	if c < 0 || c+3 > ip.end || (ne < c && !isWhitespace(ip.src[ne])) {
		return nil, false
	}
	ip.pos = c + 3
	return one(branch(KindShortcodeInline, shortcodeParts(ip.src, p, ns, ne, c)...))
}

// shortcodeParts builds the children of {{< name args >}} with the name
// at [ns, ne) and the closer at c.
func shortcodeParts(src []byte, open, ns, ne, c int) []*Node {
	as := skipSpaces(src, ne, c)
	ae := trimTrailingSpaces(src, as, c)
	return []*Node{
		leaf(KindShortcodeOpen, open, open+3),
		space(open+3, ns),
		leaf(KindShortcodeName, ns, ne).as("name"),
		space(ne, as),
		leaf(KindShortcodeArguments, as, ae).as("arguments"),
		space(ae, c),
		leaf(KindShortcodeClose, c, c+3),
	}
}

func (ip *inlineParser) autolink() ([]*Node, bool) {
	p := ip.pos
	src, end := ip.src, ip.end
	i := p + 1
	k := -1
	if i < end && isAlpha(src[i]) {
		j := i + 1
		for j < end && (isAlnum(src[j]) || src[j] == '+' || src[j] == '.' || src[j] == '-') {
			j++
		}
		if j-i >= 2 && j < end && src[j] == ':' {
			m := j + 1
			for m < end && src[m] != '>' && src[m] != '<' && !isWhitespace(src[m]) {
				m++
			}
			if m < end && src[m] == '>' {
				k = m
			}
		}
	}
	if k < 0 {
		j := i
		for j < end && (isAlnum(src[j]) || strings.IndexByte(".-_+", src[j]) >= 0) {
			j++
		}
		if j > i && j < end && src[j] == '@' {
			m := j + 1
			for m < end && (isAlnum(src[m]) || src[m] == '.' || src[m] == '-') {
				m++
			}
			if m > j+1 && m < end && src[m] == '>' {
				k = m
			}
		}
	}
	if k < 0 {
		return nil, false
	}
	ip.pos = k + 1
	return one(branch(KindURIAutolink,
		punct(p, p+1),
		leaf(KindLinkDestination, i, k).as("destination"),
		punct(k, k+1),
	))
}

func (ip *inlineParser) hardLineBreak() ([]*Node, bool) {
	p := ip.pos
	if p+1 >= ip.end {
		return nil, false
	}
	if ip.src[p+1] == '\n' || ip.src[p+1] == '\r' {
		ip.pos = p + 1
		return one(leaf(KindHardLineBreak, p, p+1))
	}
	return nil, false
}

func (ip *inlineParser) escape() ([]*Node, bool) {
	p := ip.pos
	if p+1 >= ip.end || !isASCIIPunct(ip.src[p+1]) {
		return nil, false
	}
	ip.pos = p + 2
	return one(leaf(KindBackslashEscape, p, p+2))
}
