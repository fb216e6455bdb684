package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexerFor(src string) *lexer {
	b := []byte(src)
	return newLexer(b, splitLines(b), Rules())
}

func TestTableStart(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"| a | b |\n|---|:--:|\n", true},
		{"| a | b\n| --- | --- \n", true},
		{"| a |\n|:-|\n", true},
		{"| a |\n| b |\n", false},
		{"| a |\n|---|x|\n", false},
		{"a | b\n|---|\n", false},
		{"| a |\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			lx := lexerFor(tt.src)
			tok := lx.Scan(0)
			assert.Equal(t, tt.want, tok.Type == TokenTableStart)
			assert.Equal(t, tok.Start, tok.End, "table start is zero width")
			assert.Equal(t, ModeDefault, lx.Mode())
		})
	}
}

func TestCellModes(t *testing.T) {
	src := "#| echo: false\n#|   - a\n#| bad line\nprint(1)\n#| no: option\n````\n"
	lx := lexerFor(src)
	lx.enterCell('`', 3)
	require.Equal(t, ModeCellOptions, lx.Mode())

	assert.Equal(t, TokenChunkOptionMarker, lx.Scan(0).Type)
	assert.Equal(t, TokenChunkOptionMarker, lx.Scan(1).Type)

	// A line that is neither an option nor a continuation ends the options.
	tok := lx.Scan(2)
	assert.Equal(t, TokenCellBoundary, tok.Type)
	assert.Equal(t, tok.Start, tok.End)
	assert.Equal(t, ModeCellBody, lx.Mode())

	assert.Equal(t, TokenNone, lx.Scan(2).Type)
	assert.Equal(t, TokenNone, lx.Scan(3).Type)
	assert.Equal(t, TokenNone, lx.Scan(4).Type, "option markers are code in the body")

	tok = lx.Scan(5)
	assert.Equal(t, TokenCellBoundary, tok.Type)
	assert.Equal(t, 4, tok.End-tok.Start)
	assert.Equal(t, ModeDefault, lx.Mode())
}

func TestContinuationNeedsOption(t *testing.T) {
	lx := lexerFor("#|   indented\n")
	lx.enterCell('`', 3)

	assert.Equal(t, TokenCellBoundary, lx.Scan(0).Type)
}

func TestLeaveCell(t *testing.T) {
	lx := lexerFor("x\n")
	lx.enterCell('`', 3)
	lx.leaveCell()
	assert.Equal(t, ModeDefault, lx.Mode())

	lx.leaveCell()
	assert.Equal(t, ModeDefault, lx.Mode(), "the default frame is never popped")
}

func TestScanPastEnd(t *testing.T) {
	lx := lexerFor("a\n")
	assert.False(t, lx.Scan(5).Valid())
}
