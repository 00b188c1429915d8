package agent

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dotsetgreg/notemind/pkg/memory"
	"github.com/dotsetgreg/notemind/pkg/providers"
)

type promptKind string

const (
	kindChat        promptKind = "chat"
	kindTitle       promptKind = "title"
	kindSummary     promptKind = "summary"
	kindExtraction  promptKind = "extraction"
	kindCompress    promptKind = "compress"
	kindMinCompress promptKind = "min_compress"
	kindUnknown     promptKind = "unknown"
)

func classifyPrompt(prompt string) promptKind {
	switch {
	case strings.HasPrefix(prompt, chatInstructions):
		return kindChat
	case strings.HasPrefix(prompt, titleInstructions):
		return kindTitle
	case strings.HasPrefix(prompt, summaryUpdateInstructions):
		return kindSummary
	case strings.HasPrefix(prompt, "You extract action items"):
		return kindExtraction
	case strings.HasPrefix(prompt, compressionInstructions):
		return kindCompress
	case strings.HasPrefix(prompt, minimalCompressionInstructions):
		return kindMinCompress
	default:
		return kindUnknown
	}
}

type fakeCall struct {
	Kind       promptKind
	Prompt     string
	Session    int
	Structured bool
}

// fakeModel scripts replies per prompt kind and records every call.
type fakeModel struct {
	mu       sync.Mutex
	calls    []fakeCall
	sessions int
	// attempts counts calls per kind, starting at 1 for the first call.
	attempts map[promptKind]int
	reply    func(call fakeCall, attempt int) (string, error)
}

func newFakeModel(reply func(call fakeCall, attempt int) (string, error)) *fakeModel {
	return &fakeModel{attempts: map[promptKind]int{}, reply: reply}
}

func (m *fakeModel) factory() providers.SessionFactory {
	return func(instructions string) (providers.Session, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.sessions++
		return &fakeSession{model: m, id: m.sessions}, nil
	}
}

func (m *fakeModel) next(call fakeCall) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.attempts[call.Kind]++
	attempt := m.attempts[call.Kind]
	m.mu.Unlock()
	return m.reply(call, attempt)
}

func (m *fakeModel) recorded() []fakeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fakeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *fakeModel) callsOf(kind promptKind) []fakeCall {
	var out []fakeCall
	for _, c := range m.recorded() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeSession struct {
	model      *fakeModel
	id         int
	transcript []providers.Message
}

func (s *fakeSession) Respond(ctx context.Context, prompt string) (*providers.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := s.model.next(fakeCall{Kind: classifyPrompt(prompt), Prompt: prompt, Session: s.id})
	if err != nil {
		return nil, err
	}
	s.record(prompt, text)
	return &providers.Response{Text: text, FinishReason: "stop"}, nil
}

func (s *fakeSession) RespondStructured(ctx context.Context, prompt string, schema *providers.Schema) (*providers.StructuredResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := s.model.next(fakeCall{Kind: classifyPrompt(prompt), Prompt: prompt, Session: s.id, Structured: true})
	if err != nil {
		return nil, err
	}
	s.record(prompt, text)
	fields, perr := schema.Parse(text)
	if perr != nil {
		return nil, &providers.StructuredOutputError{Schema: schema.Name, Raw: text, Err: perr}
	}
	return &providers.StructuredResponse{Raw: text, Fields: fields}, nil
}

func (s *fakeSession) record(prompt, reply string) {
	s.transcript = append(s.transcript,
		providers.Message{Role: "user", Content: prompt},
		providers.Message{Role: "assistant", Content: reply})
}

func (s *fakeSession) Transcript() []providers.Message {
	return append([]providers.Message(nil), s.transcript...)
}

func overflowError() error {
	return &providers.GenerationError{
		Kind:       providers.ErrorKindContextOverflow,
		Provider:   "fake",
		StatusCode: 400,
		Code:       "context_length_exceeded",
		Message:    "This model's maximum context length is 8192 tokens",
	}
}

func serverError() error {
	return &providers.GenerationError{
		Kind:       providers.ErrorKindOther,
		Provider:   "fake",
		StatusCode: 500,
		Message:    "upstream unavailable",
	}
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC) }

func newTestController(t *testing.T, model *fakeModel, opts Options) *Controller {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	c, err := NewController(context.Background(), model.factory(), opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func countRole(chunks []memory.Chunk, role memory.Role) int {
	n := 0
	for _, ch := range chunks {
		if ch.Role == role {
			n++
		}
	}
	return n
}
