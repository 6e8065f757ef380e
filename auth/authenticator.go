package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seerai/krampus-auth/observe"
)

const (
	// DefaultHost is the production Geodesic host used when no override is given.
	DefaultHost = "https://api.geodesic.seerai.space"

	// DefaultServicePath is where Krampus is mounted under the Geodesic host.
	DefaultServicePath = "/krampus"

	// TokenPath is the token exchange endpoint relative to the Krampus host.
	TokenPath = "/api/v1/auth/token"

	// APIKeyHeader carries the API key on the token request.
	APIKeyHeader = "Api-Key"
)

// Config configures the Authenticator.
type Config struct {
	// DefaultHost replaces an empty host override.
	// Default: DefaultHost
	DefaultHost string

	// ServicePath is appended to the base host to reach Krampus.
	// Default: DefaultServicePath
	ServicePath string

	// HTTPClient is the client used for the token request.
	// If nil, http.DefaultClient is used and its transport defaults apply.
	HTTPClient *http.Client

	// Logger receives the debug diagnostics. If nil, nothing is logged.
	Logger observe.Logger
}

// Authenticator validates API keys against the Krampus token service.
//
// Contract:
// - Concurrency: safe for concurrent use; calls share no state.
// - Context: Authenticate honors cancellation through the HTTP request.
// - Errors: every failure is a single *Error; nothing is retried.
type Authenticator struct {
	config     Config
	httpClient *http.Client
	logger     observe.Logger
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(config Config) *Authenticator {
	// Apply defaults
	if config.DefaultHost == "" {
		config.DefaultHost = DefaultHost
	}
	if config.ServicePath == "" {
		config.ServicePath = DefaultServicePath
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NewNoopLogger()
	}

	return &Authenticator{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ResolveHost returns the effective base host: the override verbatim, or the
// configured default when the override is empty.
func (a *Authenticator) ResolveHost(override string) string {
	if override == "" {
		return a.config.DefaultHost
	}
	return override
}

// ServiceHost returns the Krampus host under the given base host.
func (a *Authenticator) ServiceHost(host string) string {
	return host + a.config.ServicePath
}

// Endpoint returns the token exchange URL under the given base host.
func (a *Authenticator) Endpoint(host string) string {
	return a.ServiceHost(host) + TokenPath
}

// Authenticate exchanges apiKey for an access token against the resolved host.
// On success the returned Credentials carry the original key and the resolved
// base host. On failure the error is an *Error describing the first problem.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey, hostOverride string) (*Credentials, error) {
	host := a.ResolveHost(hostOverride)
	serviceHost := a.ServiceHost(host)
	endpoint := a.Endpoint(host)

	a.logger.Debug(ctx, "Authenticating with Krampus at "+serviceHost,
		observe.Field{Key: "endpoint", Value: endpoint},
	)

	resp, err := a.exchange(ctx, apiKey, endpoint)
	if err != nil {
		if authErr, ok := err.(*Error); ok {
			authErr.Host = serviceHost
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusInternalServerError {
		a.logger.Debug(ctx, "Failed to authenticate with Krampus: "+string(resp.Body))
	}

	tokenResp, err := Classify(*resp)
	if err != nil {
		if authErr, ok := err.(*Error); ok {
			authErr.Host = serviceHost
		}
		return nil, err
	}

	creds := &Credentials{
		APIKey: apiKey,
		Host:   host,
	}
	if exp, ok := tokenExpiry(tokenResp.AccessToken); ok {
		creds.TokenExpiresAt = exp
		a.logger.Debug(ctx, "Krampus token expires at "+exp.UTC().Format(time.RFC3339))
	}

	a.logger.Debug(ctx, "Successfully authenticated with Krampus")
	return creds, nil
}

// exchange performs the single token request and reads the full reply.
func (a *Authenticator) exchange(ctx context.Context, apiKey, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{
			Kind:   KindInvalidHost,
			Status: "malformed endpoint",
			Err:    fmt.Errorf("%w: %v", ErrMalformedEndpoint, err),
		}
	}
	req.Header.Set(APIKeyHeader, apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Kind:   KindInvalidHost,
			Status: "unreachable",
			Err:    fmt.Errorf("token request: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Kind:       KindUnexpectedService,
			StatusCode: resp.StatusCode,
			Status:     "could not read response",
			Err:        fmt.Errorf("read token response: %w", err),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Body:       body,
	}, nil
}
