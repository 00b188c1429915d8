package providers

import (
	"fmt"
	"strings"

	"github.com/dotsetgreg/notemind/pkg/config"
)

const (
	defaultOpenAIAPIBase = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-5-mini"
)

func init() {
	registerFactory(ProviderOpenAI, newOpenAIBackendFromConfig, validateOpenAIConfig, openAICredentialStatus)
}

func validateOpenAIConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	cred, err := resolveOpenAICredential(cfg)
	if err != nil {
		return err
	}
	return cred.checkTokenFile("OpenAI")
}

func openAICredentialStatus(cfg *config.Config) (bool, string) {
	if cfg == nil {
		return false, ""
	}
	cred, err := resolveOpenAICredential(cfg)
	if err != nil {
		return false, ""
	}
	switch cred.mode {
	case "api_key":
		return true, authModeAPIKey
	case credentialModeTokenFile:
		return true, cred.mode
	default:
		return false, ""
	}
}

func newOpenAIBackendFromConfig(cfg *config.Config) (backend, error) {
	if err := validateOpenAIConfig(cfg); err != nil {
		return nil, err
	}
	auth, err := resolveOpenAIAuthStrategy(cfg)
	if err != nil {
		return nil, err
	}

	apiBase := strings.TrimSpace(cfg.Providers.OpenAI.APIBase)
	if apiBase == "" {
		apiBase = defaultOpenAIAPIBase
	}
	extraHeaders := map[string]string{}
	if org := strings.TrimSpace(cfg.Providers.OpenAI.Organization); org != "" {
		extraHeaders["OpenAI-Organization"] = org
	}
	if project := strings.TrimSpace(cfg.Providers.OpenAI.Project); project != "" {
		extraHeaders["OpenAI-Project"] = project
	}

	return newChatCompletionsBackend(
		ProviderOpenAI,
		apiBase,
		defaultOpenAIModel,
		strings.TrimSpace(cfg.Providers.OpenAI.Proxy),
		auth,
		extraHeaders,
	)
}

func resolveOpenAIAuthStrategy(cfg *config.Config) (AuthStrategy, error) {
	cred, err := resolveOpenAICredential(cfg)
	if err != nil {
		return nil, err
	}
	switch cred.mode {
	case "api_key":
		return NewAPIKeyAuth(NewStaticTokenSource(cred.value, cred.field)), nil
	case credentialModeTokenFile:
		return NewBearerTokenAuth(NewFileTokenSource(cred.value)), nil
	default:
		return nil, fmt.Errorf("unsupported OpenAI auth mode %q", cred.mode)
	}
}

func resolveOpenAICredential(cfg *config.Config) (credential, error) {
	if cfg == nil {
		return credential{}, fmt.Errorf("config is required")
	}
	creds := newCredentialSet("OpenAI")
	creds.add("api_key", "providers.openai.api_key", cfg.Providers.OpenAI.APIKey)
	creds.add(credentialModeTokenFile, "providers.openai.oauth_token_file", cfg.Providers.OpenAI.OAuthTokenFile)
	return creds.single()
}
