package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dotsetgreg/notemind/pkg/config"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5"
	defaultAnthropicMaxTokens = 2048
)

func init() {
	registerFactory(ProviderAnthropic, newAnthropicBackendFromConfig, validateAnthropicConfig, anthropicCredentialStatus)
}

type anthropicBackend struct {
	client       anthropic.Client
	defaultModel string
}

func validateAnthropicConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(cfg.Providers.Anthropic.APIKey) == "" {
		return fmt.Errorf("Anthropic API key is required (set providers.anthropic.api_key or NOTEMIND_PROVIDERS_ANTHROPIC_API_KEY)")
	}
	return nil
}

func anthropicCredentialStatus(cfg *config.Config) (bool, string) {
	if validateAnthropicConfig(cfg) != nil {
		return false, ""
	}
	return true, authModeAPIKey
}

func newAnthropicBackendFromConfig(cfg *config.Config) (backend, error) {
	if err := validateAnthropicConfig(cfg); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.Providers.Anthropic.APIKey))}
	if base := strings.TrimSpace(cfg.Providers.Anthropic.APIBase); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &anthropicBackend{
		client:       anthropic.NewClient(opts...),
		defaultModel: defaultAnthropicModel,
	}, nil
}

func (p *anthropicBackend) Name() string {
	return ProviderAnthropic
}

func (p *anthropicBackend) DefaultModel() string {
	return p.defaultModel
}

func (p *anthropicBackend) Complete(ctx context.Context, req completionRequest) (*completionResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for i, msg := range req.Messages {
		content := msg.Content
		if req.Schema != nil && i == len(req.Messages)-1 {
			content = content + "\n\n" + schemaInstruction(req.Schema)
		}
		switch msg.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &completionResult{
		Text:         text.String(),
		FinishReason: string(msg.StopReason),
		Usage: &UsageInfo{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code, msg := extractAPIError([]byte(apiErr.RawJSON()))
		kind := ClassifyError(code, msg)
		if kind == ErrorKindOther {
			kind = ClassifyError("", err.Error())
		}
		return &GenerationError{
			Kind:       kind,
			Provider:   ProviderAnthropic,
			StatusCode: apiErr.StatusCode,
			Code:       code,
			Message:    msg,
			Err:        err,
		}
	}
	return &GenerationError{Kind: ErrorKindOther, Provider: ProviderAnthropic, Err: err}
}

// schemaInstruction asks for JSON when the API has no native schema mode.
func schemaInstruction(schema *Schema) string {
	return "Reply with a single JSON object and nothing else. It must validate against this JSON Schema:\n" + schema.Source()
}
