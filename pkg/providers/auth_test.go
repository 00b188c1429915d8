package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticTokenSource_RejectsPlaceholderToken(t *testing.T) {
	src := NewStaticTokenSource("<OPENROUTER_API_KEY>", "providers.openrouter.api_key")
	if _, err := src.Token(context.Background()); err == nil {
		t.Fatalf("expected placeholder token to be rejected")
	}
}

func TestStaticTokenSource_RejectsEnvReferenceToken(t *testing.T) {
	src := NewStaticTokenSource("${OPENAI_API_KEY}", "providers.openai.api_key")
	if _, err := src.Token(context.Background()); err == nil {
		t.Fatalf("expected env reference token to be rejected")
	}
}

func TestFileTokenSource_PlainTokenFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.txt")
	if err := os.WriteFile(tokenFile, []byte("oauth-token-123"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	src := NewFileTokenSource(tokenFile)
	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got != "oauth-token-123" {
		t.Fatalf("expected plain token, got %q", got)
	}
}

func TestFileTokenSource_NestedAccessTokenJSON(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "auth.json")
	payload := `{"auth_mode":"oauth","tokens":{"access_token":"oauth-from-json"}}`
	if err := os.WriteFile(tokenFile, []byte(payload), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	src := NewFileTokenSource(tokenFile)
	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got != "oauth-from-json" {
		t.Fatalf("expected nested access token, got %q", got)
	}
}

func TestFileTokenSource_JSONMissingAccessToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "auth.json")
	payload := `{"tokens":{"refresh_token":"rt_123"}}`
	if err := os.WriteFile(tokenFile, []byte(payload), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	src := NewFileTokenSource(tokenFile)
	_, err := src.Token(context.Background())
	if err == nil {
		t.Fatalf("expected missing access token error")
	}
	if !strings.Contains(err.Error(), "missing access_token") {
		t.Fatalf("expected missing access_token message, got %v", err)
	}
}

func TestFileTokenSource_TopLevelAccessTokenJSON(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"at-top"}`), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	got, err := NewFileTokenSource(tokenFile).Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got != "at-top" {
		t.Fatalf("expected top-level access token, got %q", got)
	}
}
