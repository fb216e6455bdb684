package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected Format
	}{
		{
			name:     "qmd extension",
			path:     "report.qmd",
			expected: FormatQuarto,
		},
		{
			name:     "QMD uppercase",
			path:     "REPORT.QMD",
			expected: FormatQuarto,
		},
		{
			name:     "rmd extension",
			path:     "analysis.Rmd",
			expected: FormatRMarkdown,
		},
		{
			name:     "md extension",
			path:     "README.md",
			expected: FormatMarkdown,
		},
		{
			name:     "markdown extension",
			path:     "notes.markdown",
			expected: FormatMarkdown,
		},
		{
			name:     "unknown extension",
			path:     "document.docx",
			expected: FormatUnknown,
		},
		{
			name:     "no extension",
			path:     "document",
			expected: FormatUnknown,
		},
		{
			name:     "path with directory",
			path:     "/path/to/chapter.qmd",
			expected: FormatQuarto,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectFormat(tc.path)
			if got != tc.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tc.path, got, tc.expected)
			}
		})
	}
}

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format   Format
		expected string
	}{
		{FormatQuarto, "quarto"},
		{FormatRMarkdown, "rmarkdown"},
		{FormatMarkdown, "markdown"},
		{FormatUnknown, "unknown"},
		{Format(999), "unknown"},
	}

	for _, tc := range tests {
		got := tc.format.String()
		if got != tc.expected {
			t.Errorf("Format(%d).String() = %q, want %q", int(tc.format), got, tc.expected)
		}
	}
}

func TestDetectFormatFromReader(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
		wantErr  error
	}{
		{
			name:     "executable cell",
			data:     []byte("# T\n\n```{r}\n1\n```\n"),
			expected: FormatQuarto,
		},
		{
			name:     "plain markdown",
			data:     []byte("# T\n\ntext\n"),
			expected: FormatMarkdown,
		},
		{
			name:     "empty",
			data:     nil,
			expected: FormatMarkdown,
		},
		{
			name:     "byte order mark",
			data:     []byte("\xEF\xBB\xBF# T\n"),
			expected: FormatMarkdown,
		},
		{
			name:    "zip header",
			data:    []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00},
			wantErr: ErrBinaryInput,
		},
		{
			name:    "invalid utf-8",
			data:    []byte("abc\xff\xfedef"),
			wantErr: ErrBinaryInput,
		},
		{
			name:     "multi-byte rune cut at the sniff boundary",
			data:     []byte(strings.Repeat("a", sniffLen-1) + "한글"),
			expected: FormatMarkdown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectFormatFromReader(bytes.NewReader(tc.data))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("DetectFormatFromReader() = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.FrontMatter {
		t.Error("expected FrontMatter to be true by default")
	}
	if !opts.PandocExtensions {
		t.Error("expected PandocExtensions to be true by default")
	}
	if opts.Logger == nil {
		t.Error("expected a logger by default")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.qmd")
	content := "---\ntitle: T\n---\n\n```{python}\n#| label: fig-a\nplot()\n```\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	res, err := ParseFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if res.Format != FormatQuarto {
		t.Errorf("expected quarto, got %v", res.Format)
	}
	if string(res.Tree.Source) != content {
		t.Error("expected the whole file to be read")
	}
	if res.Tree.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Tree.Diagnostics)
	}
	if res.Document.Metadata.Source != path {
		t.Errorf("expected source %s, got %s", path, res.Document.Metadata.Source)
	}
	if res.Document.Metadata.Format != "quarto" {
		t.Errorf("expected format quarto, got %s", res.Document.Metadata.Format)
	}
	if len(res.Document.Find("executable_code_cell")) != 1 {
		t.Error("expected one executable cell in the document")
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.qmd"), DefaultOptions())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseFile_Binary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0, 0x00}, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := ParseFile(path, DefaultOptions())
	if !errors.Is(err, ErrBinaryInput) {
		t.Errorf("expected ErrBinaryInput, got %v", err)
	}
}

func TestNewFromBytes(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		opts       Options
		wantFormat Format
		wantFront  int
	}{
		{
			name:       "chapter.md",
			data:       "---\na: 1\n---\n",
			opts:       DefaultOptions(),
			wantFormat: FormatMarkdown,
			wantFront:  1,
		},
		{
			name:       "stdin",
			data:       "---\na: 1\n---\n",
			opts:       Options{},
			wantFormat: FormatMarkdown,
			wantFront:  0,
		},
		{
			name:       "stdin",
			data:       "```{r}\n1\n```\n",
			opts:       DefaultOptions(),
			wantFormat: FormatQuarto,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewFromBytes(tc.name, []byte(tc.data), tc.opts)
			defer p.Close()

			res, err := p.Parse()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Format != tc.wantFormat {
				t.Errorf("expected format %v, got %v", tc.wantFormat, res.Format)
			}
			if got := len(res.Document.Find("yaml_front_matter")); got != tc.wantFront {
				t.Errorf("expected %d front matter nodes, got %d", tc.wantFront, got)
			}
		})
	}
}
