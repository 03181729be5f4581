package diagnostic

import (
	"testing"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Diagnostic
	}{
		{
			name: "line and column keywords",
			line: "TypeError: mismatch at line 3, column 7",
			want: Diagnostic{Line: 3, Column: 7, Message: "TypeError: mismatch", Severity: Error},
		},
		{
			name: "colon separated token with prefix",
			line: "main.noo:3:14 TypeError: cannot unify Int with String",
			want: Diagnostic{Line: 3, Column: 14, Message: "TypeError: cannot unify Int with String", Severity: Error},
		},
		{
			name: "parse error at line",
			line: "Parse error: unexpected token at line 5",
			want: Diagnostic{Line: 5, Column: 1, Message: "Parse error: unexpected token", Severity: Error},
		},
		{
			name: "parse error bare line without keyword colon",
			line: "Parse error on line 4",
			want: Diagnostic{Line: 4, Column: 1, Message: "Parse error on line 4", Severity: Error},
		},
		{
			name: "no location defaults to first position",
			line: "Error: something broke",
			want: Diagnostic{Line: 1, Column: 1, Message: "Error: something broke", Severity: Error},
		},
		{
			name: "message starts at earliest keyword",
			line: "[checker] Error: bad thing",
			want: Diagnostic{Line: 1, Column: 1, Message: "Error: bad thing", Severity: Error},
		},
		{
			name: "warning downgrade",
			line: "Error: unused binding (warning) at line 2, column 1",
			want: Diagnostic{Line: 2, Column: 1, Message: "Error: unused binding (warning)", Severity: Warning},
		},
		{
			name: "information downgrade",
			line: "INFO Error: shadowed name",
			want: Diagnostic{Line: 1, Column: 1, Message: "Error: shadowed name", Severity: Information},
		},
		{
			name: "carriage return",
			line: "Error: windows at line 9, column 2\r",
			want: Diagnostic{Line: 9, Column: 2, Message: "Error: windows", Severity: Error},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLineIgnoresUntriggeredLines(t *testing.T) {
	for _, line := range []string{"", "all good", "error: lowercase is not a marker", "Types:"} {
		_, ok := ExtractLine(line)
		assert.False(t, ok, line)
	}
}

func TestExtract(t *testing.T) {
	stderr := "compiling main.noo\nTypeError: mismatch at line 3, column 7\nParse error: eof at line 8\n"

	diagnostics := Extract(stderr, "", true)
	require.Len(t, diagnostics, 2)
	assert.Equal(t, 3, diagnostics[0].Line)
	assert.Equal(t, 8, diagnostics[1].Line)
}

func TestExtractStdoutOnlyWhenFailed(t *testing.T) {
	stdout := "Error: from stdout at line 2, column 4"

	diagnostics := Extract("Error: from stderr", stdout, true)
	require.Len(t, diagnostics, 2)
	assert.Equal(t, "Error: from stderr", diagnostics[0].Message)
	assert.Equal(t, "Error: from stdout", diagnostics[1].Message)

	diagnostics = Extract("Error: from stderr", stdout, false)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "Error: from stderr", diagnostics[0].Message)
}

func TestExtractFailedRunFallsBackToStdout(t *testing.T) {
	diagnostics := Extract("", "Unexpected token ')' at 3:4\n", true)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, Diagnostic{
		Line:     1,
		Column:   1,
		Message:  "Unexpected token ')' at 3:4",
		Severity: Error,
	}, diagnostics[0])

	// stderr still wins when it has text
	diagnostics = Extract("killed", "Unexpected token", true)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "killed", diagnostics[0].Message)
}

func TestExtractSuccessfulRunIgnoresStdout(t *testing.T) {
	assert.Empty(t, Extract("", "Types:\nx: Int\n", false))
}

func TestExtractLineTrimsMessage(t *testing.T) {
	d, ok := ExtractLine("Error: unbound name   ")
	require.True(t, ok)
	assert.Equal(t, "Error: unbound name", d.Message)

	d, ok = ExtractLine("TypeError: mismatch  at line 3, column 7")
	require.True(t, ok)
	assert.Equal(t, "TypeError: mismatch", d.Message)
}

func TestExtractFallback(t *testing.T) {
	diagnostics := Extract("\n  Segmentation fault  \n(core dumped)\n", "", true)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, Diagnostic{
		Line:     1,
		Column:   1,
		Message:  "Segmentation fault  \n(core dumped)",
		Severity: Error,
	}, diagnostics[0])
}

func TestExtractEmptyOutput(t *testing.T) {
	assert.Nil(t, Extract("", "", false))
	assert.Nil(t, Extract("  \n\t", "", true))
}

func TestDiagnosticRange(t *testing.T) {
	line := "result = value + 1"

	d := Diagnostic{Line: 3, Column: 10}
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 9},
		End:   protocol.Position{Line: 2, Character: 14},
	}, d.Range(line))

	d = Diagnostic{Line: 3, Column: 8}
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 7},
		End:   protocol.Position{Line: 2, Character: 8},
	}, d.Range(line))

	// position in the middle of an identifier only covers the tail
	d = Diagnostic{Line: 1, Column: 12}
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 11},
		End:   protocol.Position{Line: 0, Character: 12},
	}, d.Range(line))
}

func TestToProtocol(t *testing.T) {
	d := Diagnostic{Line: 1, Column: 1, Message: "Error: x", Severity: Warning}
	p := d.ToProtocol("x = 1")

	assert.Equal(t, protocol.DiagnosticSeverityWarning, p.Severity)
	assert.Equal(t, "noolang", p.Source)
	assert.Equal(t, "Error: x", p.Message)
	assert.Equal(t, 1, p.Range.End.Character)
}
