// Package diagnostic turns the free-text output of the noolang tool into
// structured diagnostics. Extraction is best effort: lines are matched against
// an ordered list of location patterns and output that matches none of them
// still yields one diagnostic.
package diagnostic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
)

// Severity uses the protocol numbering
type Severity int

const (
	Error       Severity = 1
	Warning     Severity = 2
	Information Severity = 3
	Hint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Information:
		return "information"
	case Hint:
		return "hint"
	default:
		return "error"
	}
}

// Diagnostic is a problem reported by the tool. Line and Column are one-based.
type Diagnostic struct {
	Line     int
	Column   int
	Message  string
	Severity Severity
}

// Range converts the diagnostic to a protocol range on lineText. The range
// covers the identifier at the reported position, or a single character when
// there is none.
func (d Diagnostic) Range(lineText string) protocol.Range {
	start := position.ToProtocol(position.TreePos{Line: d.Line, Column: d.Column})

	if word, ok := position.IdentifierAt(lineText, protocol.Position{Character: start.Character}); ok && word.Range.Start.Character == start.Character {
		return protocol.Range{
			Start: start,
			End:   protocol.Position{Line: start.Line, Character: word.Range.End.Character},
		}
	}

	return protocol.Range{
		Start: start,
		End:   protocol.Position{Line: start.Line, Character: start.Character + 1},
	}
}

// ToProtocol converts the diagnostic for publishing
func (d Diagnostic) ToProtocol(lineText string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    d.Range(lineText),
		Severity: protocol.DiagnosticSeverity(d.Severity),
		Source:   "noolang",
		Message:  d.Message,
	}
}

var (
	triggers = []string{"Error", "TypeError", "Parse error"}
	keywords = []string{"Error:", "TypeError:", "Parse error:"}

	lineColumnRe     = regexp.MustCompile(`line (\d+), column (\d+)`)
	tokenRe          = regexp.MustCompile(`^\D*(\d+):(\d+)`)
	atLineRe         = regexp.MustCompile(`at line (\d+)`)
	bareLineRe       = regexp.MustCompile(`line (\d+)`)
	trailingLocation = regexp.MustCompile(`\s+at line \d+(, column \d+)?\s*$`)
	warningRe        = regexp.MustCompile(`(?i)\bwarning\b`)
	infoRe           = regexp.MustCompile(`(?i)\binfo(rmation)?\b`)
)

// locator extracts a one-based line and column from a triggered line
type locator func(line string) (int, int, bool)

var locators = []locator{
	func(line string) (int, int, bool) {
		return submatchPair(lineColumnRe.FindStringSubmatch(line))
	},
	func(line string) (int, int, bool) {
		for _, field := range strings.Fields(line) {
			if l, c, ok := submatchPair(tokenRe.FindStringSubmatch(field)); ok {
				return l, c, true
			}
		}
		return 0, 0, false
	},
	func(line string) (int, int, bool) {
		if !strings.Contains(line, "Parse error") {
			return 0, 0, false
		}
		m := atLineRe.FindStringSubmatch(line)
		if m == nil {
			m = bareLineRe.FindStringSubmatch(line)
		}
		if m == nil {
			return 0, 0, false
		}
		l, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, 0, false
		}
		return l, 1, true
	},
}

func submatchPair(m []string) (int, int, bool) {
	if m == nil {
		return 0, 0, false
	}
	l, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	c, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return l, c, true
}

// triggered reports whether line contains one of the error markers
func triggered(line string) bool {
	for _, t := range triggers {
		if strings.Contains(line, t) {
			return true
		}
	}
	return false
}

// ExtractLine parses a single output line. It returns false when the line does
// not contain an error marker.
func ExtractLine(line string) (Diagnostic, bool) {
	line = strings.TrimRight(line, "\r")
	if !triggered(line) {
		return Diagnostic{}, false
	}

	d := Diagnostic{Line: 1, Column: 1, Severity: Error}
	for _, locate := range locators {
		if l, c, ok := locate(line); ok {
			d.Line, d.Column = l, c
			break
		}
	}

	d.Message = message(line)

	switch {
	case warningRe.MatchString(line):
		d.Severity = Warning
	case infoRe.MatchString(line):
		d.Severity = Information
	}

	return d, true
}

func message(line string) string {
	start := -1
	for _, k := range keywords {
		if i := strings.Index(line, k); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return strings.TrimSpace(line)
	}

	return strings.TrimSpace(trailingLocation.ReplaceAllString(line[start:], ""))
}

// Extract scans the output of one tool invocation. Stderr is scanned first.
// Stdout is scanned only when the invocation failed and stdout carries an
// error marker. When nothing matches, a single Error at 1:1 wraps the trimmed
// stderr, or the trimmed stdout of a failed run with a blank stderr.
func Extract(stderr, stdout string, failed bool) []Diagnostic {
	scanned := []string{stderr}
	if failed && triggered(stdout) {
		scanned = append(scanned, stdout)
	}

	var diagnostics []Diagnostic
	for _, text := range scanned {
		for _, line := range strings.Split(text, "\n") {
			if d, ok := ExtractLine(line); ok {
				diagnostics = append(diagnostics, d)
			}
		}
	}

	if len(diagnostics) > 0 {
		return diagnostics
	}

	whole := strings.TrimSpace(stderr)
	if whole == "" && failed {
		whole = strings.TrimSpace(stdout)
	}
	if whole == "" {
		return nil
	}

	return []Diagnostic{{Line: 1, Column: 1, Message: whole, Severity: Error}}
}
