// Package parser reads Quarto, R Markdown and Markdown files into syntax
// trees.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/roboco-io/qmdtree/internal/ir"
	"github.com/roboco-io/qmdtree/internal/syntax"
)

// ErrBinaryInput is returned for input that is not text.
var ErrBinaryInput = errors.New("input is not a text document")

// Parser is the interface for document parsers.
type Parser interface {
	// Parse reads the document and returns its tree.
	Parse() (*Result, error)

	// Close releases any resources held by the parser.
	Close() error
}

// Result is a parsed document.
type Result struct {
	Path     string
	Format   Format
	Tree     *syntax.Tree
	Document *ir.Document
	Elapsed  time.Duration
}

// Format represents a document format.
type Format int

const (
	FormatUnknown Format = iota
	FormatQuarto
	FormatRMarkdown
	FormatMarkdown
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatQuarto:
		return "quarto"
	case FormatRMarkdown:
		return "rmarkdown"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// DetectFormat detects the document format from the file path.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".qmd":
		return FormatQuarto
	case ".rmd":
		return FormatRMarkdown
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatUnknown
	}
}

// sniffLen is how much of a file DetectFormatFromReader inspects.
const sniffLen = 512

// DetectFormatFromReader inspects the start of r. Input containing NUL
// bytes or invalid UTF-8 is rejected with ErrBinaryInput. Text that opens
// an executable cell is Quarto; other text is Markdown.
func DetectFormatFromReader(r io.ReaderAt) (Format, error) {
	buf := make([]byte, sniffLen)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return sniff(buf[:n], n == sniffLen)
}

func sniff(buf []byte, truncated bool) (Format, error) {
	for _, b := range buf {
		if b == 0 {
			return FormatUnknown, ErrBinaryInput
		}
	}
	if truncated {
		// The buffer may end inside a multi-byte rune.
		for i := 0; i < utf8.UTFMax-1 && len(buf) > 0 && !utf8.Valid(buf); i++ {
			buf = buf[:len(buf)-1]
		}
	}
	if !utf8.Valid(buf) {
		return FormatUnknown, ErrBinaryInput
	}
	if strings.Contains(string(buf), "```{") {
		return FormatQuarto, nil
	}
	return FormatMarkdown, nil
}

// Options contains parser configuration options.
type Options struct {
	FrontMatter      bool // recognize YAML front matter at the document start
	PandocExtensions bool // strikethrough, highlight, sub/superscript, inline footnotes
	IR               ir.Options
	Logger           *zap.Logger
}

// DefaultOptions returns default parser options.
func DefaultOptions() Options {
	return Options{
		FrontMatter:      true,
		PandocExtensions: true,
		Logger:           zap.NewNop(),
	}
}

func (o Options) syntaxOptions() syntax.Options {
	return syntax.Options{
		FrontMatter:      o.FrontMatter,
		PandocExtensions: o.PandocExtensions,
		Logger:           o.Logger,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// fileParser parses one file from disk.
type fileParser struct {
	path string
	file *os.File
	opts Options
}

// New opens path for parsing.
func New(path string, opts Options) (Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &fileParser{path: path, file: f, opts: opts}, nil
}

// Parse reads the file and parses it.
func (p *fileParser) Parse() (*Result, error) {
	format, err := DetectFormatFromReader(p.file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.path, err)
	}
	if ext := DetectFormat(p.path); ext != FormatUnknown {
		format = ext
	}

	// ReadAt leaves the file offset at the start.
	data, err := io.ReadAll(p.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parse(p.path, format, data, p.opts), nil
}

// Close closes the underlying file.
func (p *fileParser) Close() error {
	return p.file.Close()
}

// bytesParser parses an in-memory document.
type bytesParser struct {
	name string
	data []byte
	opts Options
}

// NewFromBytes returns a parser over data. name is used for format
// detection and reporting only.
func NewFromBytes(name string, data []byte, opts Options) Parser {
	return &bytesParser{name: name, data: data, opts: opts}
}

// Parse parses the buffer.
func (p *bytesParser) Parse() (*Result, error) {
	n := len(p.data)
	if n > sniffLen {
		n = sniffLen
	}
	format, err := sniff(p.data[:n], n < len(p.data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	if ext := DetectFormat(p.name); ext != FormatUnknown {
		format = ext
	}
	return parse(p.name, format, p.data, p.opts), nil
}

// Close is a no-op.
func (p *bytesParser) Close() error {
	return nil
}

func parse(name string, format Format, data []byte, opts Options) *Result {
	log := opts.logger()
	start := time.Now()
	tree := syntax.NewParser(opts.syntaxOptions()).Parse(data)
	elapsed := time.Since(start)

	doc := ir.FromTree(tree, opts.IR)
	doc.Metadata.Source = name
	doc.Metadata.Format = format.String()

	log.Debug("parsed",
		zap.String("path", name),
		zap.Stringer("format", format),
		zap.Int("bytes", len(data)),
		zap.Int("errors", doc.Metadata.Errors),
		zap.Duration("elapsed", elapsed),
	)
	return &Result{
		Path:     name,
		Format:   format,
		Tree:     tree,
		Document: doc,
		Elapsed:  elapsed,
	}
}

// ParseFile opens, parses and closes path.
func ParseFile(path string, opts Options) (*Result, error) {
	p, err := New(path, opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Parse()
}
