package action

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Input names as declared in action.yml.
const (
	InputAPIKey    = "api-key"
	InputHost      = "geodesic-host"
	InputAPIKeyRef = "api-key-ref"
	InputHostRef   = "geodesic-host-ref"
)

// Inputs are the step inputs. The runner passes input <name> as INPUT_<NAME>.
//
// APIKey and Host are used verbatim. The *Ref inputs take a
// secretref:<provider>:<ref> that is resolved before use; each may be set
// instead of, never together with, its plain counterpart.
type Inputs struct {
	APIKey    string `env:"INPUT_API-KEY"`
	Host      string `env:"INPUT_GEODESIC-HOST"`
	APIKeyRef string `env:"INPUT_API-KEY-REF"`
	HostRef   string `env:"INPUT_GEODESIC-HOST-REF"`
}

// Runner is the part of the runner context this step uses.
type Runner struct {
	// EnvFile is the file later steps read exported variables from.
	EnvFile string `env:"GITHUB_ENV"`

	// DebugFlag is "1" when step debug logging is enabled.
	DebugFlag string `env:"RUNNER_DEBUG"`
}

// Debug reports whether step debug logging is enabled.
func (r Runner) Debug() bool {
	return r.DebugFlag == "1"
}

// Environment is everything read from the process environment.
type Environment struct {
	Inputs
	Runner
}

// LoadEnvironment parses the runner environment. When environ is nil the
// process environment is used. Input values are trimmed like the toolkit's
// getInput does.
func LoadEnvironment(environ map[string]string) (Environment, error) {
	var e Environment
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return Environment{}, fmt.Errorf("parse env: %w", err)
	}

	e.APIKey = strings.TrimSpace(e.APIKey)
	e.Host = strings.TrimSpace(e.Host)
	e.APIKeyRef = strings.TrimSpace(e.APIKeyRef)
	e.HostRef = strings.TrimSpace(e.HostRef)
	return e, nil
}
