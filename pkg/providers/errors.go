package providers

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	ErrorKindContextOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindContextOverflow:
		return "context_overflow"
	default:
		return "other"
	}
}

// GenerationError is returned by sessions when the model call itself fails.
type GenerationError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" ")
	}
	b.WriteString("generation failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status=%d", e.StatusCode)
	}
	if e.Kind == ErrorKindContextOverflow {
		b.WriteString(" (context window exceeded)")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// StructuredOutputError means the model replied but the reply did not match
// the requested schema. Raw carries the reply text for plain-text fallback.
type StructuredOutputError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("structured output for %s rejected: %v", e.Schema, e.Err)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Err
}

var contextOverflowCodes = []string{
	"context_length_exceeded",
	"string_above_max_length",
}

var contextOverflowPhrases = []string{
	"maximum context length",
	"context length exceeded",
	"context window",
	"prompt is too long",
	"input is too long",
	"too many tokens",
	"exceeds the context",
	"reduce the length of the messages",
}

// ClassifyError maps a provider error code and message to an ErrorKind.
func ClassifyError(code, message string) ErrorKind {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, c := range contextOverflowCodes {
		if code == c {
			return ErrorKindContextOverflow
		}
	}
	lower := strings.ToLower(message)
	for _, phrase := range contextOverflowPhrases {
		if strings.Contains(lower, phrase) {
			return ErrorKindContextOverflow
		}
	}
	return ErrorKindOther
}

// IsContextOverflow reports whether err means the session can no longer accept input.
func IsContextOverflow(err error) bool {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind == ErrorKindContextOverflow
	}
	return false
}
