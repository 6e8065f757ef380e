package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProviderName is the provider name for environment lookups.
const EnvProviderName = "env"

// EnvProvider resolves references as environment variable names.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider backed by os.LookupEnv.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string {
	return EnvProviderName
}

// Resolve returns the value of the environment variable named ref.
// A variable that is unset is an error; one set to "" is returned as is.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	name := strings.TrimSpace(ref)
	if name == "" {
		return "", fmt.Errorf("env secret ref is empty")
	}
	value, ok := p.lookup(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", name)
	}
	return value, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error {
	return nil
}

var _ Provider = (*EnvProvider)(nil)
