package toolchain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout matches every *TimeoutError
	ErrTimeout = errors.New("noolang tool timed out")
	// ErrNoType is returned when a types query produced no type
	ErrNoType = errors.New("no type reported")
	// ErrNoPayload is returned when the tool output has no JSON object
	ErrNoPayload = errors.New("no JSON payload in tool output")
)

// AstUnavailableError reports that no syntax tree could be produced for Path,
// either because the tool failed or because its output was not a tree.
// Stderr carries whatever the tool printed for diagnosis.
type AstUnavailableError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *AstUnavailableError) Error() string {
	msg := fmt.Sprintf("syntax tree unavailable for %s: %v", e.Path, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *AstUnavailableError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a tool invocation that was killed after Timeout
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("noolang tool %s did not finish within %s", strings.Join(e.Args, " "), e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// EncodingError reports tool output that is not valid UTF-8
type EncodingError struct {
	Stream string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("noolang tool wrote invalid UTF-8 to %s", e.Stream)
}

// ExitError reports a non-zero exit from a types query
type ExitError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("noolang tool %s exited with status %d: %s", strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}
