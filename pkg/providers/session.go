package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type completionRequest struct {
	Model        string
	Instructions string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	Schema       *Schema
}

type completionResult struct {
	Text         string
	FinishReason string
	Usage        *UsageInfo
}

// backend performs one stateless completion call against a provider API.
type backend interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, req completionRequest) (*completionResult, error)
}

// conversationSession keeps the running transcript and replays it on every call.
type conversationSession struct {
	mu           sync.Mutex
	backend      backend
	opts         GenerationOptions
	instructions string
	history      []Message
}

func newConversationSession(b backend, opts GenerationOptions, instructions string) *conversationSession {
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = b.DefaultModel()
	}
	return &conversationSession{
		backend:      b,
		opts:         opts,
		instructions: strings.TrimSpace(instructions),
	}
}

func (s *conversationSession) Respond(ctx context.Context, prompt string) (*Response, error) {
	result, err := s.exchange(ctx, prompt, nil)
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:         result.Text,
		FinishReason: result.FinishReason,
		Usage:        result.Usage,
	}, nil
}

func (s *conversationSession) RespondStructured(ctx context.Context, prompt string, schema *Schema) (*StructuredResponse, error) {
	if schema == nil {
		return nil, fmt.Errorf("structured request requires a schema")
	}
	result, err := s.exchange(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}
	fields, err := schema.Parse(result.Text)
	if err != nil {
		return nil, &StructuredOutputError{Schema: schema.Name, Raw: result.Text, Err: err}
	}
	return &StructuredResponse{Raw: result.Text, Fields: fields, Usage: result.Usage}, nil
}

func (s *conversationSession) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *conversationSession) exchange(ctx context.Context, prompt string, schema *Schema) (*completionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user := Message{Role: "user", Content: prompt}
	messages := make([]Message, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	messages = append(messages, user)

	result, err := s.backend.Complete(ctx, completionRequest{
		Model:        s.opts.Model,
		Instructions: s.instructions,
		Messages:     messages,
		MaxTokens:    s.opts.MaxTokens,
		Temperature:  s.opts.Temperature,
		Schema:       schema,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}
	s.history = append(s.history, user, Message{Role: "assistant", Content: result.Text})
	return result, nil
}
