package syntax

import (
	"bytes"
	"strings"
)

var (
	mathFence    = []byte("$$")
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	shortcodeEnd = []byte(">}}")
)

func newline(l line) *Node {
	return leaf(KindNewline, l.end, l.next)
}

func single(n *Node, next int) ([]*Node, int, bool) {
	return compact([]*Node{n}), next, true
}

// blocks appends to out the blocks parsed from line i until the end of
// input or, inside a fenced div, until a closing fence. closed reports
// whether a closing fence stopped the scan; next is then the index of
// that fence. Nested divs append into the same slice, so a body is never
// copied more than once.
func (s *session) blocks(out []*Node, i int, inDiv bool) ([]*Node, int, bool) {
	for i < len(s.lines) {
		if inDiv && s.isDivCloser(s.lines[i]) {
			return out, i, true
		}
		out, i = s.block(out, i)
	}
	return out, i, false
}

// block parses one block at line i. Candidates are tried by trigger byte
// in precedence order; paragraph is the fallback, so every call consumes
// at least one line.
func (s *session) block(out []*Node, i int) ([]*Node, int) {
	l := s.lines[i]
	c := byte('\n')
	if l.start < l.end {
		c = s.src[l.start]
	}
	if res, next, ok := s.tryBlocks(out, s.rules.Candidates(LevelBlock, c), i, false); ok {
		return res, next
	}
	if isSpace(c) {
		if p := skipSpaces(s.src, l.start, l.end); p < l.end {
			if res, next, ok := s.tryBlocks(out, s.rules.Candidates(LevelBlock, s.src[p]), i, true); ok {
				return res, next
			}
		}
	}
	nodes, next := s.paragraph(i)
	return append(out, nodes...), next
}

func (s *session) tryBlocks(out []*Node, groups [][]*Rule, i int, indented bool) ([]*Node, int, bool) {
	for _, g := range groups {
		var members []*Rule
		for _, r := range g {
			if r.StartOnly && (i != 0 || !s.opts.FrontMatter) {
				continue
			}
			if indented && !r.Indent {
				continue
			}
			members = append(members, r)
		}
		if len(members) == 0 {
			continue
		}
		if members[0].Shape == KindFencedDiv {
			if res, next, ok := s.fencedDiv(out, members, i); ok {
				return res, next, true
			}
			continue
		}
		if nodes, next, ok := s.matchBlock(members, i); ok {
			return append(out, nodes...), next, true
		}
	}
	return out, i, false
}

func (s *session) matchBlock(group []*Rule, i int) ([]*Node, int, bool) {
	switch group[0].Shape {
	case KindYAMLFrontMatter:
		return s.frontMatter(i)
	case KindPercentMetadata:
		return s.percentMetadata(i)
	case KindBlankLine:
		return s.blankLine(i)
	case KindThematicBreak:
		return s.thematicBreak(i)
	case KindUnorderedList, KindOrderedList:
		return s.list(group[0].Kind, i)
	case KindATXHeading:
		return s.atxHeading(i)
	case KindBlockQuote:
		return s.blockQuote(i)
	case KindRawBlock:
		return s.rawBlock(i)
	case KindExecutableCodeCell:
		return s.codeCell(i)
	case KindFencedCodeBlock:
		return s.fencedCode(i)
	case KindDisplayMath:
		return s.displayMath(i)
	case KindPipeTable:
		return s.pipeTable(i)
	case KindShortcodeBlock:
		return s.shortcodeBlock(i)
	case KindHTMLBlock:
		return s.htmlBlock(i)
	case KindFootnoteDefinition:
		return s.footnoteDefinition(i)
	case KindLinkReferenceDef:
		return s.linkReferenceDefinition(i)
	}
	return nil, i, false
}

func (s *session) blank(i int) bool {
	l := s.lines[i]
	return isBlank(s.src, l.start, l.end)
}

// delimiterLine reports whether l is exactly three c bytes plus optional
// trailing spaces.
func (s *session) delimiterLine(l line, c byte) bool {
	return runLength(s.src, l.start, l.end, c) == 3 && isBlank(s.src, l.start+3, l.end)
}

// frontMatter matches a YAML block opened by a leading --- line. The
// opener always wins over a thematic break; without a closer only the
// opening line becomes an error.
func (s *session) frontMatter(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	if !s.delimiterLine(l, '-') {
		return nil, i, false
	}
	for j := i + 1; j < len(s.lines); j++ {
		lj := s.lines[j]
		if !s.delimiterLine(lj, '-') && !s.delimiterLine(lj, '.') {
			continue
		}
		return single(branch(KindYAMLFrontMatter,
			leaf(KindYAMLFrontMatterStart, l.start, l.start+3).as("start"),
			space(l.start+3, l.end),
			newline(l),
			leaf(KindYAMLFrontMatterContent, s.lines[i+1].start, lj.start).as("content"),
			leaf(KindYAMLFrontMatterEnd, lj.start, lj.start+3).as("end"),
			space(lj.start+3, lj.end),
			newline(lj),
		), j+1)
	}
	return single(s.errorLine(ErrorStructural, i, "unclosed front matter"), i+1)
}

func (s *session) percentMetadata(i int) ([]*Node, int, bool) {
	var children []*Node
	j := i
	for ; j < len(s.lines); j++ {
		l := s.lines[j]
		if l.start == l.end || s.src[l.start] != '%' {
			break
		}
		children = append(children, leaf(KindMetadataLine, l.start, l.end), newline(l))
	}
	if j == i {
		return nil, i, false
	}
	return single(branch(KindPercentMetadata, children...), j)
}

func (s *session) blankNode(i int) *Node {
	l := s.lines[i]
	return branch(KindBlankLine, space(l.start, l.end), newline(l))
}

func (s *session) blankLine(i int) ([]*Node, int, bool) {
	if !s.blank(i) {
		return nil, i, false
	}
	return single(s.blankNode(i), i+1)
}

func (s *session) isThematicBreak(l line) bool {
	if l.start == l.end {
		return false
	}
	c := s.src[l.start]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	n := 0
	for p := l.start; p < l.end; p++ {
		switch {
		case s.src[p] == c:
			n++
		case !isSpace(s.src[p]):
			return false
		}
	}
	return n >= 3
}

func (s *session) thematicBreak(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	if !s.isThematicBreak(l) {
		return nil, i, false
	}
	end := trimTrailingSpaces(s.src, l.start, l.end)
	return single(branch(KindThematicBreak,
		punct(l.start, end),
		space(end, l.end),
		newline(l),
	), i+1)
}

// atxLevel returns the heading level of l, or 0.
func (s *session) atxLevel(l line) int {
	n := runLength(s.src, l.start, l.end, '#')
	if n == 0 || n > 6 || (l.start+n < l.end && !isSpace(s.src[l.start+n])) {
		return 0
	}
	return n
}

func (s *session) atxHeading(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	n := s.atxLevel(l)
	if n == 0 {
		return nil, i, false
	}
	cs := skipSpaces(s.src, l.start+n, l.end)
	ce := trimTrailingSpaces(s.src, cs, l.end)

	// Trailing {attributes}, separated from the text by whitespace.
	as, ae := ce, ce
	var attrs []*Node
	if ce > cs && s.src[ce-1] == '}' {
		if lb := bytes.LastIndexByte(s.src[cs:ce], '{') + cs; lb > cs && isSpace(s.src[lb-1]) {
			nodes, _, next, ok := braced(s.src, lb, ce, false)
			switch {
			case ok && next == ce:
				attrs, as = nodes, lb
			case next > lb:
				s.degrade(lb, ce, "malformed heading attributes")
			}
		}
	}

	// Optional closing sequence of #s.
	area := trimTrailingSpaces(s.src, cs, as)
	hs := area
	for hs > cs && s.src[hs-1] == '#' {
		hs--
	}
	if hs == area || (hs > cs && !isSpace(s.src[hs-1])) {
		hs = area
	}
	te := trimTrailingSpaces(s.src, cs, hs)

	children := []*Node{
		leaf(KindATXHeadingMarker, l.start, l.start+n).as("marker"),
		space(l.start+n, cs),
		s.inline(cs, te).as("content"),
		space(te, hs),
		punct(hs, area),
		space(area, as),
	}
	children = append(children, attrs...)
	children = append(children, space(ae, l.end), newline(l))
	return single(branch(KindATXHeading, children...), i+1)
}

func (s *session) blockQuote(i int) ([]*Node, int, bool) {
	var children []*Node
	j := i
	for ; j < len(s.lines); j++ {
		l := s.lines[j]
		if l.start == l.end || s.src[l.start] != '>' {
			break
		}
		cs := l.start + 1
		if cs < l.end && isSpace(s.src[cs]) {
			cs++
		}
		children = append(children, branch(KindBlockQuoteLine,
			leaf(KindBlockQuoteMarker, l.start, l.start+1).as("marker"),
			space(l.start+1, cs),
			s.inline(cs, l.end).as("content"),
			newline(l),
		))
	}
	if j == i {
		return nil, i, false
	}
	return single(branch(KindBlockQuote, children...), j)
}

type listMark struct {
	indent  int
	start   int
	end     int
	ordered bool
}

func (s *session) listMarker(i int) (listMark, bool) {
	l := s.lines[i]
	p := skipSpaces(s.src, l.start, l.end)
	if p >= l.end {
		return listMark{}, false
	}
	m := listMark{indent: p - l.start, start: p}
	switch c := s.src[p]; {
	case c == '-' || c == '*' || c == '+':
		m.end = p + 1
	case isDigit(c):
		q := p
		for q < l.end && isDigit(s.src[q]) && q-p < 9 {
			q++
		}
		if q >= l.end || (s.src[q] != '.' && s.src[q] != ')') {
			return listMark{}, false
		}
		m.end = q + 1
		m.ordered = true
	default:
		return listMark{}, false
	}
	if m.end < l.end && !isSpace(s.src[m.end]) {
		return listMark{}, false
	}
	return m, true
}

func (s *session) list(kind Kind, i int) ([]*Node, int, bool) {
	m, ok := s.listMarker(i)
	if !ok || m.ordered != (kind == KindOrderedList) {
		return nil, i, false
	}
	node, next := s.listAt(i, m)
	return single(node, next)
}

func (s *session) sameList(j int, m listMark) bool {
	cm, ok := s.listMarker(j)
	return ok && cm.indent == m.indent && cm.ordered == m.ordered && !s.isThematicBreak(s.lines[j])
}

// listAt parses the items of one list whose markers sit at m.indent.
// Blank lines between two items belong to the list.
func (s *session) listAt(i int, m listMark) (*Node, int) {
	kind := KindUnorderedList
	if m.ordered {
		kind = KindOrderedList
	}
	var children []*Node
	for i < len(s.lines) && s.sameList(i, m) {
		cm, _ := s.listMarker(i)
		item, next := s.listItem(i, cm)
		children = append(children, item)
		i = next

		j := i
		for j < len(s.lines) && s.blank(j) {
			j++
		}
		if j > i && j < len(s.lines) && s.sameList(j, m) {
			for ; i < j; i++ {
				children = append(children, s.blankNode(i))
			}
		}
	}
	return branch(kind, children...), i
}

func (s *session) listItem(i int, m listMark) (*Node, int) {
	l := s.lines[i]
	children := []*Node{
		space(l.start, m.start),
		leaf(KindListMarker, m.start, m.end).as("marker"),
	}
	p := skipSpaces(s.src, m.end, l.end)
	if t := p; t+2 < l.end && s.src[t] == '[' && s.src[t+2] == ']' &&
		strings.IndexByte(" xX", s.src[t+1]) >= 0 && (t+3 == l.end || isSpace(s.src[t+3])) {
		p = skipSpaces(s.src, t+3, l.end)
		children = append(children,
			space(m.end, t),
			leaf(KindTaskMarker, t, t+3).as("task"),
			space(t+3, p),
		)
	} else {
		children = append(children, space(m.end, p))
	}

	j := i + 1
	for j < len(s.lines) && !s.blank(j) {
		lj := s.lines[j]
		if skipSpaces(s.src, lj.start, lj.end)-lj.start <= m.indent {
			break
		}
		if _, ok := s.listMarker(j); ok {
			break
		}
		j++
	}
	last := s.lines[j-1]
	children = append(children, s.inline(p, last.end).as("content"), newline(last))

	for j < len(s.lines) {
		cm, ok := s.listMarker(j)
		if !ok || cm.indent <= m.indent || s.isThematicBreak(s.lines[j]) {
			break
		}
		var sub *Node
		sub, j = s.listAt(j, cm)
		children = append(children, sub)
	}
	return branch(KindListItem, children...), j
}

// fenceRun returns the fence byte and run length opening l, or 0.
func (s *session) fenceRun(l line) (byte, int) {
	if l.start == l.end {
		return 0, 0
	}
	c := s.src[l.start]
	if c != '`' && c != '~' {
		return 0, 0
	}
	n := runLength(s.src, l.start, l.end, c)
	if n < 3 {
		return 0, 0
	}
	return c, n
}

func (s *session) findClose(from int, c byte, n int) int {
	for j := from; j < len(s.lines); j++ {
		if _, ok := closingFence(s.src, s.lines[j], c, n); ok {
			return j
		}
	}
	return -1
}

func (s *session) closeFence(j int, c byte, n int, field string) []*Node {
	l := s.lines[j]
	run, _ := closingFence(s.src, l, c, n)
	return []*Node{
		leaf(KindCodeFenceDelimiter, l.start, l.start+run).as(field),
		space(l.start+run, l.end),
		newline(l),
	}
}

func (s *session) codeLines(from, to int) []*Node {
	var out []*Node
	for j := from; j < to; j++ {
		l := s.lines[j]
		out = append(out, leaf(KindCodeLine, l.start, l.end), newline(l))
	}
	return compact(out)
}

func (s *session) rawBlock(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	c, n := s.fenceRun(l)
	if c != '`' {
		return nil, i, false
	}
	p := skipSpaces(s.src, l.start+n, l.end)
	fs, fe, end, ok := rawFormat(s.src, p, l.end)
	if !ok || !isBlank(s.src, end, l.end) {
		return nil, i, false
	}
	j := s.findClose(i+1, c, n)
	if j < 0 {
		return single(s.errorToEOF(ErrorStructural, i, "unterminated raw block"), len(s.lines))
	}
	children := []*Node{
		leaf(KindRawBlockDelimiter, l.start, l.start+n).as("open_delimiter"),
		space(l.start+n, p),
		punct(p, p+2),
		leaf(KindRawFormat, fs, fe).as("format"),
		punct(fe, end),
		space(end, l.end),
		newline(l),
		leaf(KindRawBlockContent, s.lines[i+1].start, s.lines[j].start).as("content"),
	}
	closer := s.closeFence(j, c, n, "close_delimiter")
	closer[0].Kind = KindRawBlockDelimiter
	return single(branch(KindRawBlock, append(children, closer...)...), j+1)
}

// codeCell matches an executable cell: a backtick fence followed by
// {language ...}. Option lines and the body are split by the lexer's
// cell modes.
func (s *session) codeCell(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	c, n := s.fenceRun(l)
	if c != '`' {
		return nil, i, false
	}
	p := skipSpaces(s.src, l.start+n, l.end)
	if p >= l.end || s.src[p] != '{' {
		return nil, i, false
	}
	rb := attrClose(s.src, p, l.end)
	if rb < 0 || !isBlank(s.src, rb+1, l.end) {
		return nil, i, false
	}
	ls := skipSpaces(s.src, p+1, rb)
	le := scanName(s.src, ls, rb)
	if le == ls || (le < rb && !isSpace(s.src[le]) && s.src[le] != ',') {
		return nil, i, false
	}

	s.lx.enterCell(c, n)
	j := i + 1
	var options []*Node
	for ; j < len(s.lines); j++ {
		tok := s.lx.Scan(j)
		if tok.Type != TokenChunkOptionMarker {
			break
		}
		lj := s.lines[j]
		if isChunkOptionLine(s.src, tok.End, lj.end) {
			options = append(options, chunkOption(s.src, lj))
		} else {
			options = append(options, chunkContinuation(s.src, lj))
		}
	}
	body := j
	closeAt := -1
	for ; j < len(s.lines); j++ {
		if s.lx.Scan(j).Type == TokenCellBoundary {
			closeAt = j
			break
		}
	}
	if closeAt < 0 {
		s.lx.leaveCell()
		return single(s.errorToEOF(ErrorStructural, i, "unterminated executable cell"), len(s.lines))
	}

	children := []*Node{
		leaf(KindCodeFenceDelimiter, l.start, l.start+n).as("open_delimiter"),
		space(l.start+n, p),
		punct(p, p+1),
		space(p+1, ls),
		leaf(KindLanguageName, ls, le).as("language"),
	}
	children = append(children, s.cellHeader(le, rb)...)
	children = append(children,
		punct(rb, rb+1),
		space(rb+1, l.end),
		newline(l),
		branch(KindChunkOptions, options...).as("chunk_options"),
		branch(KindCellContent, s.codeLines(body, closeAt)...).as("content"),
	)
	children = append(children, s.closeFence(closeAt, c, n, "close_delimiter")...)
	return single(branch(KindExecutableCodeCell, children...), closeAt+1)
}

// cellHeader parses what follows the language inside a cell header: an
// optional knitr label and an attribute list that may use commas.
func (s *session) cellHeader(pos, end int) []*Node {
	var out []*Node
	seps := func() {
		for pos < end {
			switch {
			case s.src[pos] == ',':
				out = append(out, punct(pos, pos+1))
				pos++
			case isSpace(s.src[pos]):
				q := skipSpaces(s.src, pos, end)
				out = append(out, space(pos, q))
				pos = q
			default:
				return
			}
		}
	}
	seps()
	if ne := scanOptionKey(s.src, pos, end); ne > pos && (ne >= end || s.src[ne] != '=') {
		out = append(out, leaf(KindChunkLabel, pos, ne).as("label"))
		pos = ne
		seps()
	}
	if pos >= end {
		return out
	}
	nodes, list, ok := parseAttributes(s.src, pos, end, true)
	if !ok {
		s.degrade(pos, end, "malformed cell attributes")
		return append(out, leaf(KindRaw, pos, end))
	}
	list.as("attributes")
	return append(out, nodes...)
}

func (s *session) fencedCode(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	c, n := s.fenceRun(l)
	if n == 0 {
		return nil, i, false
	}
	is := skipSpaces(s.src, l.start+n, l.end)
	ie := trimTrailingSpaces(s.src, is, l.end)
	if c == '`' && bytes.IndexByte(s.src[is:ie], '`') >= 0 {
		return nil, i, false
	}
	j := s.findClose(i+1, c, n)
	if j < 0 {
		return single(s.errorToEOF(ErrorStructural, i, "unterminated code block"), len(s.lines))
	}

	children := []*Node{
		leaf(KindCodeFenceDelimiter, l.start, l.start+n).as("open_delimiter"),
		space(l.start+n, is),
	}
	var header []*Node
	if is < ie && s.src[is] == '{' {
		nodes, _, next, ok := braced(s.src, is, ie, false)
		switch {
		case ok && next == ie:
			header = nodes
		case next > is:
			s.degrade(is, ie, "malformed code block attributes")
		}
	}
	if header == nil {
		header = []*Node{leaf(KindInfoString, is, ie).as("info")}
	}
	children = append(children, header...)
	children = append(children,
		space(ie, l.end),
		newline(l),
		branch(KindCodeContent, s.codeLines(i+1, j)...).as("content"),
	)
	children = append(children, s.closeFence(j, c, n, "close_delimiter")...)
	return single(branch(KindFencedCodeBlock, children...), j+1)
}

func (s *session) isDivFence(l line) bool {
	return runLength(s.src, l.start, l.end, ':') >= 3
}

func (s *session) isDivCloser(l line) bool {
	n := runLength(s.src, l.start, l.end, ':')
	return n >= 3 && isBlank(s.src, l.start+n, l.end)
}

// fencedDiv matches a colon fence with an optional {attributes} list.
// The generic shape is matched first, then refined into a specialized
// container by its classes. An unclosed div leaves an error on its
// opening line and keeps its body as sibling blocks.
func (s *session) fencedDiv(out []*Node, group []*Rule, i int) ([]*Node, int, bool) {
	l := s.lines[i]
	n := runLength(s.src, l.start, l.end, ':')
	if n < 3 {
		return out, i, false
	}
	header := []*Node{leaf(KindFencedDivDelimiter, l.start, l.start+n).as("open")}
	var classes []string
	p := skipSpaces(s.src, l.start+n, l.end)
	switch {
	case p >= l.end:
		header = append(header, space(l.start+n, l.end), newline(l))
	case s.src[p] == '{':
		rb := attrClose(s.src, p, l.end)
		if rb < 0 {
			return out, i, false
		}
		cs := skipSpaces(s.src, rb+1, l.end)
		ce := cs + runLength(s.src, cs, l.end, ':')
		if !isBlank(s.src, ce, l.end) {
			return out, i, false
		}
		header = append(header, space(l.start+n, p))
		if inner, list, ok := parseAttributes(s.src, p+1, rb, false); ok {
			list.as("attributes")
			header = append(header, punct(p, p+1))
			header = append(header, inner...)
			header = append(header, punct(rb, rb+1))
			classes = attrsOf(s.src, list).Classes
		} else {
			s.degrade(p, rb+1, "malformed fenced div attributes")
			header = append(header, leaf(KindRaw, p, rb+1))
		}
		header = append(header, space(rb+1, cs), punct(cs, ce), space(ce, l.end), newline(l))
	default:
		return out, i, false
	}

	kind := s.rules.Refine(group, classes).Kind
	mark := len(out)
	out = append(out, nil)
	out, next, closed := s.blocks(out, i+1, true)
	if !closed {
		out[mark] = s.errorLine(ErrorStructural, i, "unclosed fenced div")
		return out, next, true
	}

	cl := s.lines[next]
	cn := runLength(s.src, cl.start, cl.end, ':')
	node := &Node{Kind: kind}
	node.adopt(header...)
	node.adopt(withField("content", out[mark+1:])...)
	node.adopt(
		leaf(KindFencedDivDelimiter, cl.start, cl.start+cn).as("close"),
		space(cl.start+cn, cl.end),
		newline(cl),
	)
	out[mark] = node
	return out[:mark+1], next + 1, true
}

// displayMath matches $$ ... $$ on one line or several. It stops at a
// blank line, in which case the lines fall back to a paragraph.
func (s *session) displayMath(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	if !bytes.HasPrefix(s.src[l.start:l.end], mathFence) {
		return nil, i, false
	}
	from := l.start + 2
	for j := i; j < len(s.lines); j++ {
		lj := s.lines[j]
		if j > i && s.blank(j) {
			return nil, i, false
		}
		ss := lj.start
		if j == i {
			ss = from
		}
		k := bytes.Index(s.src[ss:lj.end], mathFence)
		if k < 0 {
			continue
		}
		c := ss + k
		p := skipSpaces(s.src, c+2, lj.end)
		ae := p
		var attrs []*Node
		if p < lj.end && s.src[p] == '{' {
			nodes, _, next, ok := braced(s.src, p, lj.end, false)
			if !ok {
				return nil, i, false
			}
			attrs, ae = nodes, next
		}
		if !isBlank(s.src, ae, lj.end) {
			return nil, i, false
		}
		children := []*Node{
			leaf(KindMathDelimiter, l.start, from),
			leaf(KindMathContent, from, c).as("content"),
			leaf(KindMathDelimiter, c, c+2),
			space(c+2, p),
		}
		children = append(children, attrs...)
		children = append(children, space(ae, lj.end), newline(lj))
		return single(branch(KindDisplayMath, children...), j+1)
	}
	return nil, i, false
}

// pipeTable needs the table-start token: a header row followed by a
// verified delimiter row.
func (s *session) pipeTable(i int) ([]*Node, int, bool) {
	if s.lx.Scan(i).Type != TokenTableStart {
		return nil, i, false
	}
	children := []*Node{
		s.tableRow(KindPipeTableHeader, s.lines[i], false).as("header"),
		s.tableRow(KindPipeTableDelimiter, s.lines[i+1], true).as("delimiter"),
	}
	j := i + 2
	for ; j < len(s.lines); j++ {
		l := s.lines[j]
		if l.start == l.end || s.src[l.start] != '|' {
			break
		}
		children = append(children, s.tableRow(KindPipeTableRow, l, false))
	}
	return single(branch(KindPipeTable, children...), j)
}

// tableRow splits l at unescaped pipes. The trailing pipe is optional.
func (s *session) tableRow(kind Kind, l line, delimiter bool) *Node {
	var children []*Node
	p := l.start
	for p < l.end {
		if s.src[p] == '|' {
			children = append(children, punct(p, p+1))
			p++
			continue
		}
		q := p
		for q < l.end && s.src[q] != '|' {
			if s.src[q] == '\\' && q+1 < l.end {
				q++
			}
			q++
		}
		cs := skipSpaces(s.src, p, q)
		ce := trimTrailingSpaces(s.src, cs, q)
		children = append(children, space(p, cs))
		if ce > cs {
			if delimiter {
				children = append(children, leaf(KindTableDelimiterCell, cs, ce))
			} else {
				children = append(children, branch(KindTableCell, s.inlineItems(cs, ce)...))
			}
		}
		children = append(children, space(ce, q))
		p = q
	}
	children = append(children, newline(l))
	return branch(kind, children...)
}

func (s *session) isShortcodeLine(l line) (ns, ne, c int, ok bool) {
	if !bytes.HasPrefix(s.src[l.start:l.end], []byte("{{<")) {
		return 0, 0, 0, false
	}
	ns = skipSpaces(s.src, l.start+3, l.end)
	ne = scanName(s.src, ns, l.end)
	if ne == ns {
		return 0, 0, 0, false
	}
	k := bytes.Index(s.src[ne:l.end], shortcodeEnd)
	if k < 0 {
		return 0, 0, 0, false
	}
	c = ne + k
	if (ne < c && !isSpace(s.src[ne])) || !isBlank(s.src, c+3, l.end) {
		return 0, 0, 0, false
	}
	return ns, ne, c, true
}

func (s *session) shortcodeBlock(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	ns, ne, c, ok := s.isShortcodeLine(l)
	if !ok {
		return nil, i, false
	}
	children := shortcodeParts(s.src, l.start, ns, ne, c)
	children = append(children, space(c+3, l.end), newline(l))
	return single(branch(KindShortcodeBlock, children...), i+1)
}

// htmlStart matches a line opening with a tag, closing tag, comment or
// declaration. Autolinks such as <https://x> do not qualify.
func (s *session) htmlStart(l line) bool {
	p := l.start
	if l.end-p < 2 || s.src[p] != '<' {
		return false
	}
	switch c := s.src[p+1]; {
	case c == '!':
		return p+2 < l.end && (s.src[p+2] == '-' || isAlpha(s.src[p+2]))
	case c == '/':
		return p+2 < l.end && isAlpha(s.src[p+2])
	case isAlpha(c):
		q := p + 1
		for q < l.end && (isAlnum(s.src[q]) || s.src[q] == '-') {
			q++
		}
		return q == l.end || isSpace(s.src[q]) || s.src[q] == '>' || s.src[q] == '/'
	}
	return false
}

func (s *session) htmlBlock(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	if !s.htmlStart(l) {
		return nil, i, false
	}
	comment := bytes.HasPrefix(s.src[l.start:l.end], commentOpen)
	j := i
	for j < len(s.lines) {
		lj := s.lines[j]
		if comment {
			j++
			if bytes.Contains(s.src[lj.start:lj.end], commentClose) {
				break
			}
			continue
		}
		if s.blank(j) || (j > i && s.isDivFence(lj)) {
			break
		}
		j++
	}
	var children []*Node
	for k := i; k < j; k++ {
		lk := s.lines[k]
		children = append(children, leaf(KindHTMLBlockContent, lk.start, lk.end), newline(lk))
	}
	return single(branch(KindHTMLBlock, children...), j)
}

func (s *session) footnoteDefinition(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	if l.end-l.start < 5 || s.src[l.start+1] != '^' {
		return nil, i, false
	}
	le := l.start + 2
	for le < l.end && s.src[le] != ']' && !isWhitespace(s.src[le]) {
		le++
	}
	if le == l.start+2 || le+1 >= l.end || s.src[le] != ']' || s.src[le+1] != ':' {
		return nil, i, false
	}
	p := skipSpaces(s.src, le+2, l.end)
	j := i + 1
	for j < len(s.lines) && !s.blank(j) && isSpace(s.src[s.lines[j].start]) {
		j++
	}
	last := s.lines[j-1]
	return single(branch(KindFootnoteDefinition,
		punct(l.start, l.start+2),
		leaf(KindFootnoteLabel, l.start+2, le).as("label"),
		punct(le, le+2),
		space(le+2, p),
		s.inline(p, last.end).as("content"),
		newline(last),
	), j)
}

func (s *session) linkReferenceDefinition(i int) ([]*Node, int, bool) {
	l := s.lines[i]
	ls := l.start + 1
	k := bytes.IndexByte(s.src[ls:l.end], ']')
	if k <= 0 {
		return nil, i, false
	}
	le := ls + k
	if le+1 >= l.end || s.src[le+1] != ':' {
		return nil, i, false
	}
	ds := skipSpaces(s.src, le+2, l.end)
	de := ds
	if de < l.end && s.src[de] == '<' {
		q := bytes.IndexByte(s.src[de:l.end], '>')
		if q < 0 {
			return nil, i, false
		}
		de += q + 1
	} else {
		for de < l.end && !isSpace(s.src[de]) {
			de++
		}
	}
	if de == ds {
		return nil, i, false
	}
	ts := skipSpaces(s.src, de, l.end)
	te := ts
	if ts < l.end && strings.IndexByte("\"'(", s.src[ts]) >= 0 {
		want := s.src[ts]
		if want == '(' {
			want = ')'
		}
		q := bytes.IndexByte(s.src[ts+1:l.end], want)
		if q < 0 {
			return nil, i, false
		}
		te = ts + 1 + q + 1
	}
	if !isBlank(s.src, te, l.end) {
		return nil, i, false
	}
	return single(branch(KindLinkReferenceDef,
		punct(l.start, ls),
		leaf(KindReferenceLabel, ls, le).as("label"),
		punct(le, le+2),
		space(le+2, ds),
		leaf(KindLinkDestination, ds, de).as("destination"),
		space(de, ts),
		leaf(KindLinkTitle, ts, te).as("title"),
		space(te, l.end),
		newline(l),
	), i+1)
}

// interrupts reports whether line j ends a paragraph by opening another
// block.
func (s *session) interrupts(j int) bool {
	if s.blank(j) {
		return true
	}
	l := s.lines[j]
	switch s.src[l.start] {
	case '#':
		return s.atxLevel(l) > 0
	case '`', '~':
		c, n := s.fenceRun(l)
		return n > 0 && (c == '~' || bytes.IndexByte(s.src[l.start+n:l.end], '`') < 0)
	case ':':
		return s.isDivFence(l)
	case '>':
		return true
	case '-', '*', '+':
		_, ok := s.listMarker(j)
		return ok || s.isThematicBreak(l)
	case '_':
		return s.isThematicBreak(l)
	case '1':
		m, ok := s.listMarker(j)
		return ok && m.end-m.start == 2
	case '$':
		return bytes.HasPrefix(s.src[l.start:l.end], mathFence)
	case '{':
		_, _, _, ok := s.isShortcodeLine(l)
		return ok
	case '<':
		return s.htmlStart(l)
	case '|':
		return s.lx.Scan(j).Type == TokenTableStart
	}
	return false
}

// setextUnderline reports whether l is a run of = or - with optional
// trailing spaces.
func (s *session) setextUnderline(l line) bool {
	if l.start == l.end {
		return false
	}
	c := s.src[l.start]
	if c != '=' && c != '-' {
		return false
	}
	return isBlank(s.src, l.start+runLength(s.src, l.start, l.end, c), l.end)
}

// paragraph collects lines until a blank line or an interrupting block.
// An underline after the text turns it into a setext heading.
func (s *session) paragraph(i int) ([]*Node, int) {
	l := s.lines[i]
	cs := skipSpaces(s.src, l.start, l.end)
	j := i + 1
	for ; j < len(s.lines); j++ {
		if u := s.lines[j]; s.setextUnderline(u) {
			last := s.lines[j-1]
			ue := trimTrailingSpaces(s.src, u.start, u.end)
			return compact([]*Node{branch(KindSetextHeading,
				space(l.start, cs),
				s.inline(cs, last.end).as("content"),
				newline(last),
				leaf(KindSetextHeadingMarker, u.start, ue).as("underline"),
				space(ue, u.end),
				newline(u),
			)}), j + 1
		}
		if s.interrupts(j) {
			break
		}
	}
	last := s.lines[j-1]
	return compact([]*Node{branch(KindParagraph,
		space(l.start, cs),
		s.inline(cs, last.end).as("content"),
		newline(last),
	)}), j
}
