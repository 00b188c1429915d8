package providers

import "context"

// Message is one entry of a session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a plain-text model reply.
type Response struct {
	Text         string
	FinishReason string
	Usage        *UsageInfo
}

// StructuredResponse is a schema-validated reply. Raw keeps the text as received.
type StructuredResponse struct {
	Raw    string
	Fields map[string]interface{}
	Usage  *UsageInfo
}

// String returns a string field of a structured reply, or "".
func (r *StructuredResponse) String(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	s, _ := r.Fields[key].(string)
	return s
}

// Strings returns a string-array field of a structured reply, skipping non-string items.
func (r *StructuredResponse) Strings(key string) []string {
	if r == nil || r.Fields == nil {
		return nil
	}
	items, _ := r.Fields[key].([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Session is a stateful conversation with a language model. Every accepted
// turn stays in the transcript, so a long-lived session eventually overflows
// the model context and must be replaced.
type Session interface {
	Respond(ctx context.Context, prompt string) (*Response, error)
	RespondStructured(ctx context.Context, prompt string, schema *Schema) (*StructuredResponse, error)
	Transcript() []Message
}

// SessionFactory opens a fresh session seeded with standing instructions.
type SessionFactory func(instructions string) (Session, error)

// GenerationOptions are applied to every call a session makes.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
