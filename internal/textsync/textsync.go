// Package textsync applies editor content changes to an in-memory document.
//
// Ranges are protocol ranges: zero-based lines and character columns, end
// exclusive. Offsets are computed on the decoded characters of each line so a
// splice never lands inside a multi-byte UTF-8 sequence.
package textsync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
)

// ErrInvalidRange is returned when a change range ends before it starts
var ErrInvalidRange = errors.New("range end is before range start")

// Change is a single content change. A nil Range replaces the whole document.
type Change struct {
	Range *protocol.Range
	Text  string
}

// BoundsError reports a change range that does not fit the current buffer.
// The buffer is never modified when this error is returned.
// LineLength is -1 when the lines themselves are out of bounds.
type BoundsError struct {
	LineCount  int
	StartLine  int
	EndLine    int
	Column     int
	LineLength int
}

func (e *BoundsError) Error() string {
	if e.LineLength >= 0 {
		return fmt.Sprintf("start column %d is beyond line %d which has %d characters", e.Column, e.StartLine, e.LineLength)
	}
	return fmt.Sprintf("range lines %d-%d out of bounds for buffer with %d lines", e.StartLine, e.EndLine, e.LineCount)
}

// FromEvents converts protocol change events into changes
func FromEvents(events []protocol.TextDocumentContentChangeEvent) []Change {
	changes := make([]Change, len(events))
	for i, event := range events {
		changes[i] = Change{Range: event.Range, Text: event.Text}
	}
	return changes
}

// Apply applies a single change to text and returns the new text.
// On error the original text is returned unchanged.
func Apply(text string, change Change) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}

	start, end, err := Offsets(text, *change.Range)
	if err != nil {
		return text, err
	}

	var b strings.Builder
	b.Grow(len(text) - (end - start) + len(change.Text))
	b.WriteString(text[:start])
	b.WriteString(change.Text)
	b.WriteString(text[end:])
	return b.String(), nil
}

// ApplyAll applies changes in order, each against the result of the previous
// one. It stops at the first failing change and returns the text produced by
// the changes before it together with the error.
func ApplyAll(text string, changes []Change) (string, error) {
	for i, change := range changes {
		next, err := Apply(text, change)
		if err != nil {
			return text, fmt.Errorf("change %d: %w", i, err)
		}
		text = next
	}
	return text, nil
}

// Offsets returns the byte offsets of rng within text.
// The end column is clamped to the length of its line.
func Offsets(text string, rng protocol.Range) (int, int, error) {
	lines := strings.Split(text, "\n")

	if rng.Start.Line < 0 || rng.Start.Line >= len(lines) || rng.End.Line < 0 || rng.End.Line >= len(lines) {
		return 0, 0, &BoundsError{
			LineCount:  len(lines),
			StartLine:  rng.Start.Line,
			EndLine:    rng.End.Line,
			Column:     rng.Start.Character,
			LineLength: -1,
		}
	}

	if rng.End.Before(rng.Start) {
		return 0, 0, fmt.Errorf("%w: %d:%d-%d:%d", ErrInvalidRange, rng.Start.Line, rng.Start.Character, rng.End.Line, rng.End.Character)
	}

	startLine := lines[rng.Start.Line]
	if lineLength := position.RuneCount(startLine); rng.Start.Character < 0 || rng.Start.Character > lineLength {
		return 0, 0, &BoundsError{
			LineCount:  len(lines),
			StartLine:  rng.Start.Line,
			EndLine:    rng.End.Line,
			Column:     rng.Start.Character,
			LineLength: lineLength,
		}
	}

	start := lineOffset(lines, rng.Start.Line) + position.ByteOffset(startLine, rng.Start.Character)
	end := lineOffset(lines, rng.End.Line) + position.ByteOffset(lines[rng.End.Line], rng.End.Character)

	return start, end, nil
}

// lineOffset returns the byte offset at which line begins. Every line before
// it contributes its length plus one newline byte.
func lineOffset(lines []string, line int) int {
	offset := 0
	for i := 0; i < line; i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}
