package auth

import "time"

// Names of the values exported to later workflow steps.
const (
	EnvAPIKey = "GEODESIC_API_KEY"
	EnvHost   = "GEODESIC_HOST"
)

// Credentials is the validated state produced by a successful authentication.
type Credentials struct {
	// APIKey is the key exactly as supplied by the caller.
	APIKey string

	// Host is the resolved Geodesic base host (without the Krampus path).
	Host string

	// TokenExpiresAt is the exp claim of the issued token when it is a JWT.
	// Zero for opaque tokens. Informational only; the token is not exported.
	TokenExpiresAt time.Time
}

// Export is a single named value to publish.
type Export struct {
	Name  string
	Value string
}

// Exports returns the values to publish, API key first.
func (c *Credentials) Exports() []Export {
	return []Export{
		{Name: EnvAPIKey, Value: c.APIKey},
		{Name: EnvHost, Value: c.Host},
	}
}
