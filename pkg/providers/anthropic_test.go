package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dotsetgreg/notemind/pkg/config"
)

func newAnthropicTestConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.Provider = ProviderAnthropic
	cfg.Providers.Anthropic.APIKey = "sk-ant-test"
	cfg.Providers.Anthropic.APIBase = baseURL + "/"
	return cfg
}

func TestAnthropicSession_Respond(t *testing.T) {
	var seenKey, seenPath string
	var seenBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = r.Header.Get("X-Api-Key")
		seenPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&seenBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Budget is over."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	factory, err := CreateSessionFactory(newAnthropicTestConfig(server.URL))
	if err != nil {
		t.Fatalf("create session factory: %v", err)
	}
	session, _ := factory("Use the note.")
	resp, err := session.Respond(context.Background(), "How is the budget?")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if resp.Text != "Budget is over." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 24 {
		t.Fatalf("unexpected usage %#v", resp.Usage)
	}
	if seenKey != "sk-ant-test" {
		t.Fatalf("expected api key header, got %q", seenKey)
	}
	if seenPath != "/v1/messages" {
		t.Fatalf("expected /v1/messages, got %q", seenPath)
	}
	if got := seenBody["model"]; got != defaultAnthropicModel {
		t.Fatalf("expected default model, got %v", got)
	}
	system, _ := json.Marshal(seenBody["system"])
	if !strings.Contains(string(system), "Use the note.") {
		t.Fatalf("expected instructions in system blocks, got %s", system)
	}
}

func TestAnthropicSession_PromptTooLongIsOverflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long: 210000 tokens > 200000 maximum"}}`))
	}))
	defer server.Close()

	factory, err := CreateSessionFactory(newAnthropicTestConfig(server.URL))
	if err != nil {
		t.Fatalf("create session factory: %v", err)
	}
	session, _ := factory("")
	_, err = session.Respond(context.Background(), "hello")
	if !IsContextOverflow(err) {
		t.Fatalf("expected overflow classification, got %v", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status on generation error, got %#v", err)
	}
}

func TestAnthropicSession_StructuredAddsSchemaInstruction(t *testing.T) {
	var lastUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if n := len(body.Messages); n > 0 && len(body.Messages[n-1].Content) > 0 {
			lastUser = body.Messages[n-1].Content[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"{\"items\":[\"Book venue\"]}"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer server.Close()

	factory, _ := CreateSessionFactory(newAnthropicTestConfig(server.URL))
	session, _ := factory("")
	schema := MustSchema("checklist", "tasks", `{"type":"object","properties":{"items":{"type":"array","items":{"type":"string"}}},"required":["items"],"additionalProperties":false}`)

	got, err := session.RespondStructured(context.Background(), "List the tasks.", schema)
	if err != nil {
		t.Fatalf("structured respond: %v", err)
	}
	if items := got.Strings("items"); len(items) != 1 || items[0] != "Book venue" {
		t.Fatalf("unexpected items %#v", items)
	}
	if !strings.Contains(lastUser, "JSON Schema") {
		t.Fatalf("expected schema instruction appended to the prompt, got %q", lastUser)
	}
}
