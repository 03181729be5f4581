// Package toolchain runs the external noolang tool that parses and type checks
// source files. Every invocation is a separate process bounded by a timeout.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/noolang/noolang-lsp/internal/syntax"
)

const DefaultTimeout = 5 * time.Second

// Result is the raw output of one invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the tool exited with a non-zero status
func (r *Result) Failed() bool {
	return r.ExitCode != 0
}

// Runner invokes the tool as Command followed by Args and the mode arguments
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
	// Dir is the working directory of the tool, empty for the current one
	Dir string
}

func NewRunner(command string, args []string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		Command: command,
		Args:    args,
		Timeout: timeout,
	}
}

// Run executes the tool with the given mode arguments. A non-zero exit is not
// an error: it is reported through Result. Errors are returned only when the
// tool could not be run, timed out or wrote invalid UTF-8.
func (r *Runner) Run(ctx context.Context, modeArgs ...string) (*Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, r.Args...), modeArgs...)

	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Args: modeArgs, Timeout: timeout}
	}

	result := &Result{}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", r.Command, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if !utf8.Valid(stdout.Bytes()) {
		return nil, &EncodingError{Stream: "stdout"}
	}
	if !utf8.Valid(stderr.Bytes()) {
		return nil, &EncodingError{Stream: "stderr"}
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	return result, nil
}

// FileTree returns the syntax tree of the file at path
func (r *Runner) FileTree(ctx context.Context, path string) (*syntax.Tree, error) {
	return r.tree(ctx, path, "--ast-file", path)
}

// ExpressionTree returns the syntax tree of a single expression
func (r *Runner) ExpressionTree(ctx context.Context, expr string) (*syntax.Tree, error) {
	return r.tree(ctx, expr, "--ast", expr)
}

func (r *Runner) tree(ctx context.Context, subject string, modeArgs ...string) (*syntax.Tree, error) {
	result, err := r.Run(ctx, modeArgs...)
	if err != nil {
		return nil, &AstUnavailableError{Path: subject, Err: err}
	}

	if result.Failed() {
		return nil, &AstUnavailableError{
			Path:   subject,
			Stderr: result.Stderr,
			Err:    fmt.Errorf("exit status %d", result.ExitCode),
		}
	}

	payload, ok := ExtractJSON(result.Stdout)
	if !ok {
		return nil, &AstUnavailableError{Path: subject, Stderr: result.Stderr, Err: ErrNoPayload}
	}

	tree, err := syntax.Decode([]byte(payload))
	if err != nil {
		return nil, &AstUnavailableError{Path: subject, Stderr: result.Stderr, Err: err}
	}

	return tree, nil
}

// FileTypes returns the types the tool reports for the top-level names of a file
func (r *Runner) FileTypes(ctx context.Context, path string) ([]TypeEntry, error) {
	result, err := r.query(ctx, "--types-file", path)
	if err != nil {
		return nil, err
	}

	entries := ParseTypes(result.Stdout)
	if len(entries) == 0 {
		return nil, ErrNoType
	}
	return entries, nil
}

// ExpressionType returns the type of a standalone expression
func (r *Runner) ExpressionType(ctx context.Context, expr string) (string, error) {
	result, err := r.query(ctx, "--types", expr)
	if err != nil {
		return "", err
	}

	if t, ok := parseType(result.Stdout); ok {
		return t, nil
	}
	return "", ErrNoType
}

// SymbolType returns the type of the top-level symbol name in the file at path
func (r *Runner) SymbolType(ctx context.Context, path, name string) (string, error) {
	result, err := r.query(ctx, "--symbol-type", path, name)
	if err != nil {
		return "", err
	}

	for _, entry := range ParseTypes(result.Stdout) {
		if entry.Name == name {
			return entry.Type, nil
		}
	}

	if t, ok := parseType(result.Stdout); ok {
		return t, nil
	}
	return "", ErrNoType
}

// Check type checks the file at path and returns the raw output for
// diagnostic extraction
func (r *Runner) Check(ctx context.Context, path string) (*Result, error) {
	return r.Run(ctx, "--types-file", path)
}

func (r *Runner) query(ctx context.Context, modeArgs ...string) (*Result, error) {
	result, err := r.Run(ctx, modeArgs...)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		return nil, &ExitError{Args: modeArgs, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	return result, nil
}
