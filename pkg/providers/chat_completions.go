package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 300 * time.Second

type chatCompletionsBackend struct {
	providerName string
	apiBase      string
	defaultModel string
	auth         AuthStrategy
	httpClient   *http.Client
	extraHeaders map[string]string
}

func newChatCompletionsBackend(providerName, apiBase, defaultModel, proxy string, auth AuthStrategy, extraHeaders map[string]string) (*chatCompletionsBackend, error) {
	providerName = strings.TrimSpace(strings.ToLower(providerName))
	if providerName == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("%s API base not configured", providerName)
	}
	if auth == nil {
		return nil, fmt.Errorf("%s auth is not configured", providerName)
	}

	client := &http.Client{Timeout: defaultHTTPTimeout}
	proxy = strings.TrimSpace(proxy)
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse %s proxy: %w", providerName, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	cleanHeaders := map[string]string{}
	for k, v := range extraHeaders {
		name := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if name == "" || value == "" {
			continue
		}
		cleanHeaders[name] = value
	}

	return &chatCompletionsBackend{
		providerName: providerName,
		apiBase:      apiBase,
		defaultModel: strings.TrimSpace(defaultModel),
		auth:         auth,
		httpClient:   client,
		extraHeaders: cleanHeaders,
	}, nil
}

func (p *chatCompletionsBackend) Name() string {
	return p.providerName
}

func (p *chatCompletionsBackend) DefaultModel() string {
	if p == nil {
		return ""
	}
	return p.defaultModel
}

func (p *chatCompletionsBackend) Complete(ctx context.Context, req completionRequest) (*completionResult, error) {
	if p == nil {
		return nil, fmt.Errorf("provider not initialized")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.DefaultModel()
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, Message{Role: "system", Content: req.Instructions})
	}
	messages = append(messages, req.Messages...)

	requestBody := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		requestBody["temperature"] = req.Temperature
	}
	if req.Schema != nil {
		requestBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":        req.Schema.Name,
				"description": req.Schema.Description,
				"schema":      req.Schema.Document(),
				"strict":      true,
			},
		}
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.providerName, err)
	}

	endpoint := p.apiBase + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", p.providerName, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.auth.Apply(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("apply %s auth: %w", p.providerName, err)
	}
	for name, value := range p.extraHeaders {
		httpReq.Header.Set(name, value)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GenerationError{Kind: ErrorKindOther, Provider: p.providerName, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.providerName, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		code, msg := extractAPIError(body)
		return nil, &GenerationError{
			Kind:       ClassifyError(code, msg),
			Provider:   p.providerName,
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    augmentProviderError(p.providerName, msg),
		}
	}

	result, err := parseChatCompletionsResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.providerName, err)
	}
	if result.FinishReason == "length" && strings.TrimSpace(result.Text) == "" {
		return nil, &GenerationError{
			Kind:     ErrorKindContextOverflow,
			Provider: p.providerName,
			Message:  "reply truncated before any content was produced",
		}
	}
	return result, nil
}

func parseChatCompletionsResponse(body []byte) (*completionResult, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content interface{} `json:"content"`
				Refusal string      `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *UsageInfo `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, err
	}

	if len(apiResponse.Choices) == 0 {
		return &completionResult{Text: "", FinishReason: "stop", Usage: apiResponse.Usage}, nil
	}

	choice := apiResponse.Choices[0]
	text := flattenMessageContent(choice.Message.Content)
	if text == "" && choice.Message.Refusal != "" {
		text = choice.Message.Refusal
	}
	return &completionResult{
		Text:         text,
		FinishReason: choice.FinishReason,
		Usage:        apiResponse.Usage,
	}, nil
}

func flattenMessageContent(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				parts = append(parts, text)
				continue
			}
			if content, ok := m["content"].(string); ok {
				parts = append(parts, content)
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

func extractAPIError(body []byte) (code string, message string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", "empty response body"
	}

	var payload struct {
		Error struct {
			Message string      `json:"message"`
			Type    string      `json:"type"`
			Code    interface{} `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch c := payload.Error.Code.(type) {
		case string:
			code = c
		case float64:
			code = fmt.Sprintf("%d", int(c))
		}
		if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
			return code, msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return code, msg
		}
	}

	if len(trimmed) > 2000 {
		return code, trimmed[:2000] + "..."
	}
	return code, trimmed
}
