package syntax

import (
	"bytes"
	"sort"

	"go.uber.org/zap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures a Parser.
type Options struct {
	// FrontMatter enables YAML front matter and percent title blocks at
	// the start of the document.
	FrontMatter bool

	// PandocExtensions enables strikethrough, highlight, subscript,
	// superscript and inline footnotes.
	PandocExtensions bool

	// Logger receives error-recovery events at debug level. Nil disables
	// logging.
	Logger *zap.Logger
}

// DefaultOptions returns the options used by Parse.
func DefaultOptions() Options {
	return Options{
		FrontMatter:      true,
		PandocExtensions: true,
	}
}

// Parser parses documents with a fixed rule table and options. A Parser
// is safe for concurrent use; every call to Parse runs its own session.
type Parser struct {
	rules *RuleTable
	opts  Options
}

// NewParser creates a parser using the process-wide rule table.
func NewParser(opts Options) *Parser {
	return NewParserWithRules(Rules(), opts)
}

// NewParserWithRules creates a parser over a custom rule table.
func NewParserWithRules(rules *RuleTable, opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Parser{rules: rules, opts: opts}
}

// Parse parses src. It never fails: input the grammar cannot match is
// wrapped in ERROR nodes and reported in Tree.Diagnostics. src must not
// be modified while the tree is in use.
func (p *Parser) Parse(src []byte) *Tree {
	s := &session{
		src:   src,
		lines: splitLines(src),
		rules: p.rules,
		opts:  p.opts,
		log:   p.opts.Logger,
	}
	s.lx = newLexer(src, s.lines, p.rules)

	root := s.document()
	sort.SliceStable(s.diags, func(i, j int) bool {
		return s.diags[i].Start < s.diags[j].Start
	})
	return &Tree{Source: src, Root: root, Diagnostics: s.diags, starts: lineStarts(s.lines)}
}

// Parse parses src with DefaultOptions.
func Parse(src []byte) *Tree {
	return NewParser(DefaultOptions()).Parse(src)
}

// session holds the state of one parse.
type session struct {
	src   []byte
	lines []line
	rules *RuleTable
	opts  Options
	lx    *lexer
	log   *zap.Logger
	diags []Diagnostic
}

func (s *session) document() *Node {
	root := &Node{Kind: KindDocument, Start: 0, End: len(s.src)}
	if bytes.HasPrefix(s.src, utf8BOM) {
		root.Children = append(root.Children, leaf(KindByteOrderMark, 0, len(utf8BOM)))
		if len(s.lines) > 0 {
			s.lines[0].start = len(utf8BOM)
		}
	}
	root.Children, _, _ = s.blocks(root.Children, 0, false)
	return root
}

func (s *session) report(kind ErrorKind, start, end int, msg string) {
	s.diags = append(s.diags, Diagnostic{Kind: kind, Start: start, End: end, Message: msg})
	s.log.Debug("recovered",
		zap.Stringer("kind", kind),
		zap.Int("start", start),
		zap.Int("end", end),
		zap.String("reason", msg),
	)
}

// errorLeaf wraps [start, end) in an ERROR node and reports it.
func (s *session) errorLeaf(kind ErrorKind, start, end int, msg string) *Node {
	s.report(kind, start, end, msg)
	return &Node{Kind: KindError, Error: kind, Start: start, End: end}
}

// errorLine wraps line i, its terminator included.
func (s *session) errorLine(kind ErrorKind, i int, msg string) *Node {
	l := s.lines[i]
	return s.errorLeaf(kind, l.start, l.next, msg)
}

// errorToEOF wraps everything from line i to the end of input.
func (s *session) errorToEOF(kind ErrorKind, i int, msg string) *Node {
	return s.errorLeaf(kind, s.lines[i].start, len(s.src), msg)
}

// degrade reports an attribute list that was kept as text.
func (s *session) degrade(start, end int, msg string) {
	s.report(ErrorAttribute, start, end, msg)
}
