package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

const credentialModeTokenFile = "oauth_token_file"

// credential is one configured way to authenticate against a provider.
type credential struct {
	mode  string
	value string
	field string
}

// credentialSet collects the non-empty credential fields of a provider section.
type credentialSet struct {
	provider string
	items    []credential
}

func newCredentialSet(provider string) *credentialSet {
	return &credentialSet{provider: provider}
}

func (s *credentialSet) add(mode, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	s.items = append(s.items, credential{mode: mode, value: value, field: field})
}

// single returns the only configured credential. Zero or several is a config error.
func (s *credentialSet) single() (credential, error) {
	switch len(s.items) {
	case 0:
		return credential{}, fmt.Errorf("%s credentials are required (set %s)", s.provider, strings.Join(s.expectedFields(), " or "))
	case 1:
		return s.items[0], nil
	default:
		fields := make([]string, 0, len(s.items))
		for _, item := range s.items {
			fields = append(fields, item.field)
		}
		sort.Strings(fields)
		return credential{}, fmt.Errorf("multiple %s credential sources configured (%s); set exactly one", s.provider, strings.Join(fields, ", "))
	}
}

func (s *credentialSet) expectedFields() []string {
	key := "providers." + strings.ToLower(s.provider)
	return []string{key + ".api_key", key + "." + credentialModeTokenFile}
}

// checkTokenFile fails early when a token file credential points nowhere.
func (c credential) checkTokenFile(provider string) error {
	if c.mode != credentialModeTokenFile {
		return nil
	}
	resolved := expandHome(c.value)
	if _, err := os.Stat(resolved); err != nil {
		return fmt.Errorf("%s OAuth token file not accessible at %s: %w", provider, resolved, err)
	}
	return nil
}
