package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dotsetgreg/notemind/pkg/logger"
	"github.com/dotsetgreg/notemind/pkg/providers"
)

// sessionHolder is the single owner of the live model session. Callers fetch
// the session per call and never keep it, so a reset replaces it for everyone.
type sessionHolder struct {
	mu           sync.Mutex
	factory      providers.SessionFactory
	instructions string
	callTimeout  time.Duration
	current      providers.Session
	resets       int
}

func newSessionHolder(factory providers.SessionFactory, instructions string, callTimeout time.Duration) (*sessionHolder, error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	session, err := factory(instructions)
	if err != nil {
		return nil, fmt.Errorf("open model session: %w", err)
	}
	return &sessionHolder{
		factory:      factory,
		instructions: instructions,
		callTimeout:  callTimeout,
		current:      session,
	}, nil
}

func (h *sessionHolder) session() providers.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// reset discards the current session and opens a fresh one.
func (h *sessionHolder) reset() error {
	session, err := h.factory(h.instructions)
	if err != nil {
		return fmt.Errorf("reopen model session: %w", err)
	}
	h.mu.Lock()
	h.current = session
	h.resets++
	resets := h.resets
	h.mu.Unlock()

	logger.InfoCF("session", "Model session replaced", map[string]interface{}{"resets": resets})
	return nil
}

func (h *sessionHolder) resetCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resets
}

func (h *sessionHolder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.callTimeout)
}

func (h *sessionHolder) respond(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := h.withTimeout(ctx)
	defer cancel()
	resp, err := h.session().Respond(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// modelReply is a reply after structured decoding or raw-text fallback.
type modelReply struct {
	Text       string
	Items      []string
	Structured bool
}

// respondStructured tries schema-constrained output first. A reply that fails
// schema validation is used as raw text instead of being retried.
func (h *sessionHolder) respondStructured(ctx context.Context, prompt string, schema *providers.Schema) (modelReply, error) {
	callCtx, cancel := h.withTimeout(ctx)
	defer cancel()
	resp, err := h.session().RespondStructured(callCtx, prompt, schema)
	if err == nil {
		return modelReply{
			Text:       cleanReply(resp.String("message")),
			Items:      resp.Strings("items"),
			Structured: true,
		}, nil
	}
	var structErr *providers.StructuredOutputError
	if errors.As(err, &structErr) {
		logger.DebugCF("session", "Structured reply rejected, using raw text",
			map[string]interface{}{
				"schema": schema.Name,
				"error":  structErr.Error(),
			})
		return modelReply{Text: cleanReply(structErr.Raw)}, nil
	}
	return modelReply{}, err
}

const replyQuotes = "\"'`“”‘’«»"

// cleanReply trims whitespace and surrounding quote characters.
func cleanReply(s string) string {
	prev := ""
	s = strings.TrimSpace(s)
	for s != prev {
		prev = s
		s = strings.TrimSpace(strings.Trim(s, replyQuotes))
	}
	return s
}
