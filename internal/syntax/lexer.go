package syntax

// Mode is the lexer context. Each mode exposes only the tokens listed for
// it in the rule table.
type Mode int

const (
	ModeDefault Mode = iota
	ModeTableProbe
	ModeCellOptions
	ModeCellBody
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeTableProbe:
		return "table-probe"
	case ModeCellOptions:
		return "cell-options"
	case ModeCellBody:
		return "cell-body"
	default:
		return "unknown"
	}
}

// TokenType identifies a context-sensitive token.
type TokenType int

const (
	TokenNone TokenType = iota
	TokenTableStart
	TokenChunkOptionMarker
	TokenCellBoundary
)

func (t TokenType) String() string {
	switch t {
	case TokenTableStart:
		return "table-start"
	case TokenChunkOptionMarker:
		return "chunk-option-marker"
	case TokenCellBoundary:
		return "cell-boundary"
	default:
		return "none"
	}
}

// Token is a context-sensitive token. Zero-width tokens have Start == End.
type Token struct {
	Type       TokenType
	Start, End int
}

// Valid reports whether a token was recognized.
func (t Token) Valid() bool {
	return t.Type != TokenNone
}

type frame struct {
	mode     Mode
	fence    byte
	fenceLen int
	options  int
}

// lexer recognizes the tokens whose legality depends on parse position.
// Tokens are anchored at line starts; i is a line index.
type lexer struct {
	src   []byte
	lines []line
	rules *RuleTable
	stack []frame
}

func newLexer(src []byte, lines []line, rules *RuleTable) *lexer {
	return &lexer{
		src:   src,
		lines: lines,
		rules: rules,
		stack: []frame{{mode: ModeDefault}},
	}
}

// Mode returns the current mode.
func (lx *lexer) Mode() Mode {
	return lx.top().mode
}

func (lx *lexer) top() *frame {
	return &lx.stack[len(lx.stack)-1]
}

func (lx *lexer) push(f frame) {
	lx.stack = append(lx.stack, f)
}

func (lx *lexer) pop() {
	if len(lx.stack) > 1 {
		lx.stack = lx.stack[:len(lx.stack)-1]
	}
}

// enterCell switches to the option lines of an executable cell opened by
// n fence bytes.
func (lx *lexer) enterCell(fence byte, n int) {
	lx.push(frame{mode: ModeCellOptions, fence: fence, fenceLen: n})
}

// leaveCell abandons the current cell without a closing boundary.
func (lx *lexer) leaveCell() {
	if m := lx.Mode(); m == ModeCellOptions || m == ModeCellBody {
		lx.pop()
	}
}

// Scan returns the first token legal in the current mode at line i, or a
// token of type TokenNone.
func (lx *lexer) Scan(i int) Token {
	if i >= len(lx.lines) {
		return Token{}
	}
	for _, tt := range lx.rules.Tokens(lx.Mode()) {
		var tok Token
		switch tt {
		case TokenTableStart:
			tok = lx.scanTableStart(i)
		case TokenChunkOptionMarker:
			tok = lx.scanChunkOptionMarker(i)
		case TokenCellBoundary:
			tok = lx.scanCellBoundary(i)
		}
		if tok.Valid() {
			return tok
		}
	}
	return Token{}
}

func (lx *lexer) scanTableStart(i int) Token {
	if i+1 >= len(lx.lines) {
		return Token{}
	}
	lx.push(frame{mode: ModeTableProbe})
	defer lx.pop()

	l := lx.lines[i]
	if l.start == l.end || lx.src[l.start] != '|' {
		return Token{}
	}
	if !isDelimiterRow(lx.src, lx.lines[i+1]) {
		return Token{}
	}
	return Token{Type: TokenTableStart, Start: l.start, End: l.start}
}

// isDelimiterRow matches a |:---|---:| line. Every cell must be a run of
// dashes with optional alignment colons.
func isDelimiterRow(src []byte, l line) bool {
	end := trimTrailingSpaces(src, l.start, l.end)
	pos := skipSpaces(src, l.start, end)
	if pos >= end || src[pos] != '|' {
		return false
	}
	pos++
	cells := 0
	for pos < end {
		pos = skipSpaces(src, pos, end)
		if pos < end && src[pos] == ':' {
			pos++
		}
		dashes := runLength(src, pos, end, '-')
		if dashes == 0 {
			return false
		}
		pos += dashes
		if pos < end && src[pos] == ':' {
			pos++
		}
		pos = skipSpaces(src, pos, end)
		cells++
		if pos == end {
			break
		}
		if src[pos] != '|' {
			return false
		}
		pos++
	}
	return cells > 0
}

func (lx *lexer) scanChunkOptionMarker(i int) Token {
	l := lx.lines[i]
	if l.end-l.start < 2 || lx.src[l.start] != '#' || lx.src[l.start+1] != '|' {
		return Token{}
	}
	rest := l.start + 2
	f := lx.top()
	if !isChunkOptionLine(lx.src, rest, l.end) && (f.options == 0 || !isOptionContinuation(lx.src, rest, l.end)) {
		return Token{}
	}
	f.options++
	return Token{Type: TokenChunkOptionMarker, Start: l.start, End: rest}
}

// isChunkOptionLine matches "[ws] key:" after the marker.
func isChunkOptionLine(src []byte, pos, end int) bool {
	pos = skipSpaces(src, pos, end)
	k := scanOptionKey(src, pos, end)
	return k > pos && k < end && src[k] == ':'
}

func scanOptionKey(src []byte, pos, end int) int {
	if pos >= end || !isAlpha(src[pos]) {
		return pos
	}
	pos++
	for pos < end && (isNameChar(src[pos]) || src[pos] == '.') {
		pos++
	}
	return pos
}

// isOptionContinuation matches an indented or list-item line that extends
// the previous option's value.
func isOptionContinuation(src []byte, pos, end int) bool {
	if pos < end && src[pos] == ' ' {
		pos++
	}
	if isBlank(src, pos, end) {
		return false
	}
	if isSpace(src[pos]) {
		return true
	}
	return src[pos] == '-' && pos+1 < end && src[pos+1] == ' '
}

func (lx *lexer) scanCellBoundary(i int) Token {
	l := lx.lines[i]
	f := lx.top()
	switch f.mode {
	case ModeCellOptions:
		f.mode = ModeCellBody
		return Token{Type: TokenCellBoundary, Start: l.start, End: l.start}
	case ModeCellBody:
		n, ok := closingFence(lx.src, l, f.fence, f.fenceLen)
		if !ok {
			return Token{}
		}
		lx.pop()
		return Token{Type: TokenCellBoundary, Start: l.start, End: l.start + n}
	}
	return Token{}
}

// closingFence reports whether l closes a fence of n bytes of c. The
// closer must be at least as long and followed only by whitespace.
func closingFence(src []byte, l line, c byte, n int) (int, bool) {
	run := runLength(src, l.start, l.end, c)
	if run < n {
		return 0, false
	}
	if !isBlank(src, l.start+run, l.end) {
		return 0, false
	}
	return run, true
}
