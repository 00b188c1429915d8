package providers

import (
	"strings"
	"testing"
)

func TestAugmentProviderError_OpenAIScopeHint(t *testing.T) {
	msg := augmentProviderError(ProviderOpenAI, "You have insufficient permissions for this operation. Missing scopes: model.request.")
	if !strings.Contains(msg, "model.request access") {
		t.Fatalf("expected scope guidance in hint, got %q", msg)
	}
}

func TestAugmentProviderError_OpenAIIncorrectAPIKeyHint(t *testing.T) {
	msg := augmentProviderError(ProviderOpenAI, "Incorrect API key provided")
	if !strings.Contains(msg, "Platform API credential") {
		t.Fatalf("expected platform credential hint, got %q", msg)
	}
}

func TestAugmentProviderError_OpenAIStructuredOutputHint(t *testing.T) {
	msg := augmentProviderError(ProviderOpenAI, "Invalid parameter: 'response_format' of type 'json_schema' is not supported with this model.")
	if !strings.Contains(msg, "structured outputs") {
		t.Fatalf("expected structured output hint, got %q", msg)
	}
}

func TestAugmentProviderError_OpenRouterUnknownModelHint(t *testing.T) {
	msg := augmentProviderError(ProviderOpenRouter, "No endpoints found for acme/unknown-model.")
	if !strings.Contains(msg, "agent.model") {
		t.Fatalf("expected model hint, got %q", msg)
	}
}

func TestAugmentProviderError_LeavesOtherMessagesAlone(t *testing.T) {
	if got := augmentProviderError(ProviderAnthropic, "  overloaded  "); got != "overloaded" {
		t.Fatalf("expected trimmed message unchanged, got %q", got)
	}
}
