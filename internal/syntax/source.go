package syntax

// line is one source line. end excludes the line terminator; next is the
// offset of the following line.
type line struct {
	start, end, next int
}

// splitLines splits src at LF, CRLF and lone CR terminators.
func splitLines(src []byte) []line {
	var lines []line
	start := 0
	for i := 0; i < len(src); i++ {
		next := i + 1
		switch {
		case src[i] == '\n':
		case src[i] == '\r' && next < len(src) && src[next] == '\n':
			next++
		case src[i] == '\r':
		default:
			continue
		}
		lines = append(lines, line{start: start, end: i, next: next})
		start = next
		i = next - 1
	}
	if start < len(src) {
		lines = append(lines, line{start: start, end: len(src), next: len(src)})
	}
	return lines
}

// lineStarts returns the offset of every line start, including the empty
// line after a final terminator.
func lineStarts(lines []line) []int {
	starts := []int{0}
	for _, l := range lines {
		if l.next > l.end {
			starts = append(starts, l.next)
		}
	}
	return starts
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// isNameChar matches the tail of identifiers, classes and keys.
func isNameChar(b byte) bool {
	return isAlnum(b) || b == '_' || b == '-'
}

func isASCIIPunct(b byte) bool {
	switch {
	case b >= '!' && b <= '/', b >= ':' && b <= '@', b >= '[' && b <= '`', b >= '{' && b <= '~':
		return true
	}
	return false
}

func skipSpaces(src []byte, pos, end int) int {
	for pos < end && isSpace(src[pos]) {
		pos++
	}
	return pos
}

// trimTrailingSpaces returns the end of [start, end) with trailing spaces
// removed.
func trimTrailingSpaces(src []byte, start, end int) int {
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return end
}

// scanName scans an identifier starting with a letter.
func scanName(src []byte, pos, end int) int {
	if pos >= end || !isAlpha(src[pos]) {
		return pos
	}
	pos++
	for pos < end && isNameChar(src[pos]) {
		pos++
	}
	return pos
}

// runLength counts repeats of c starting at pos.
func runLength(src []byte, pos, end int, c byte) int {
	n := 0
	for pos+n < end && src[pos+n] == c {
		n++
	}
	return n
}

func isBlank(src []byte, start, end int) bool {
	return skipSpaces(src, start, end) == end
}
