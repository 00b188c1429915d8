package providers

import "strings"

func augmentProviderError(providerName, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return msg
	}

	lower := strings.ToLower(msg)
	providerName = NormalizeProviderName(providerName)

	switch providerName {
	case ProviderOpenAI:
		if strings.Contains(lower, "missing scopes: model.request") ||
			strings.Contains(lower, "insufficient permissions for this operation") {
			return msg + " Hint: OpenAI API calls require model.request access for this project."
		}
		if strings.Contains(lower, "incorrect api key provided") {
			return msg + " Hint: provider openai expects a Platform API credential."
		}
		if strings.Contains(lower, "response_format") && strings.Contains(lower, "json_schema") {
			return msg + " Hint: the configured model does not support structured outputs; pick a model that does."
		}
	case ProviderOpenRouter:
		if strings.Contains(lower, "no endpoints found") {
			return msg + " Hint: the model id may be misspelled or unavailable on OpenRouter; check agent.model."
		}
	}

	return msg
}
