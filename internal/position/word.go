package position

import (
	"strings"
	"unicode"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// Word is a span of text captured around a cursor position
type Word struct {
	Text  string
	Range protocol.Range
}

// ExpressionAt returns the run of letters, digits and underscores around pos.
// It returns false when the cursor sits on any other character or at the end
// of the line.
func ExpressionAt(text string, pos protocol.Position) (Word, bool) {
	return wordAt(text, pos, isExpressionRune, false)
}

// IdentifierAt is the strict variant of ExpressionAt: only letters and
// underscores are captured and the result must start with a letter.
func IdentifierAt(text string, pos protocol.Position) (Word, bool) {
	return wordAt(text, pos, isIdentifierRune, true)
}

// LineAt returns the zero-based line of text without its line terminator
func LineAt(text string, line int) (string, bool) {
	if line < 0 {
		return "", false
	}
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[line], "\r"), true
}

func wordAt(text string, pos protocol.Position, match func(rune) bool, mustStartWithLetter bool) (Word, bool) {
	line, ok := LineAt(text, pos.Line)
	if !ok {
		return Word{}, false
	}

	chars := []rune(line)
	col := pos.Character
	if col < 0 || col >= len(chars) || !match(chars[col]) {
		return Word{}, false
	}

	start := col
	for start > 0 && match(chars[start-1]) {
		start--
	}
	end := col
	for end < len(chars) && match(chars[end]) {
		end++
	}

	if start == end {
		return Word{}, false
	}
	if mustStartWithLetter && !unicode.IsLetter(chars[start]) {
		return Word{}, false
	}

	return Word{
		Text: string(chars[start:end]),
		Range: protocol.Range{
			Start: protocol.Position{Line: pos.Line, Character: start},
			End:   protocol.Position{Line: pos.Line, Character: end},
		},
	}, true
}

func isExpressionRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}
