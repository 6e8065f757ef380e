package action

import (
	"context"
	"fmt"
	"net/http"

	"github.com/seerai/krampus-auth/auth"
	"github.com/seerai/krampus-auth/observe"
	"github.com/seerai/krampus-auth/secret"
)

// Exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Deps are the collaborators of Run. Only Commands is required.
type Deps struct {
	// Commands is the runner command channel. Failures are reported here.
	Commands *Commands

	// Logger receives diagnostics. Default: NewCommandLogger(Commands).
	Logger observe.Logger

	// Middleware instruments the token exchange. Default: no-op telemetry.
	Middleware *observe.Middleware

	// Resolver resolves the api-key-ref and geodesic-host-ref inputs.
	// Default: secret.NewDefaultResolver.
	Resolver *secret.Resolver

	// HTTPClient is used for the token request. Default: http.DefaultClient.
	HTTPClient *http.Client
}

var authenticateOp = observe.Operation{Service: "krampus", Name: "authenticate"}

// Run authenticates with the given inputs and publishes the result.
// It returns ExitSuccess after exporting both variables, or ExitFailure after
// reporting exactly one error. It never panics.
func Run(ctx context.Context, in Inputs, deps Deps) (code int) {
	cmds := deps.Commands

	defer func() {
		if r := recover(); r != nil {
			cmds.Error(fmt.Sprintf("Failed to authenticate with Krampus: %v", r))
			code = ExitFailure
		}
	}()

	creds, err := run(ctx, in, deps)
	if err != nil {
		cmds.Error(err.Error())
		return ExitFailure
	}

	if err := cmds.ExportVariables(creds.Exports()...); err != nil {
		cmds.Error(err.Error())
		return ExitFailure
	}
	return ExitSuccess
}

func run(ctx context.Context, in Inputs, deps Deps) (*auth.Credentials, error) {
	logger := deps.Logger
	if logger == nil {
		logger = NewCommandLogger(deps.Commands)
	}

	apiKey, host, err := resolveInputs(ctx, in, deps.Resolver)
	if err != nil {
		return nil, err
	}

	deps.Commands.Mask(apiKey)

	authenticator := auth.NewAuthenticator(auth.Config{
		HTTPClient: deps.HTTPClient,
		Logger:     logger,
	})

	mw := deps.Middleware
	if mw == nil {
		mw = observe.NewMiddleware(observe.NewNoopTracer(), observe.NewNoopMetrics(), observe.NewNoopLogger())
	}

	op := authenticateOp
	op.Endpoint = authenticator.Endpoint(authenticator.ResolveHost(host))

	exec := mw.Wrap(func(ctx context.Context, _ observe.Operation, _ any) (any, error) {
		return authenticator.Authenticate(ctx, apiKey, host)
	})

	result, err := exec(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	return result.(*auth.Credentials), nil
}

// resolveInputs returns the key and host to use. Plain inputs are returned
// untouched; only the *Ref inputs go through the secret resolver.
func resolveInputs(ctx context.Context, in Inputs, resolver *secret.Resolver) (apiKey, host string, err error) {
	apiKey, host = in.APIKey, in.Host

	refs := make(map[string]string, 2)
	if in.APIKeyRef != "" {
		if in.APIKey != "" {
			return "", "", fmt.Errorf("Invalid %s input: set only one of %s and %s", InputAPIKeyRef, InputAPIKey, InputAPIKeyRef)
		}
		refs[InputAPIKeyRef] = in.APIKeyRef
	}
	if in.HostRef != "" {
		if in.Host != "" {
			return "", "", fmt.Errorf("Invalid %s input: set only one of %s and %s", InputHostRef, InputHost, InputHostRef)
		}
		refs[InputHostRef] = in.HostRef
	}
	if len(refs) == 0 {
		return apiKey, host, nil
	}

	if resolver == nil {
		r, err := secret.NewDefaultResolver(true)
		if err != nil {
			return "", "", err
		}
		defer func() { _ = r.Close() }()
		resolver = r
	}

	resolved, err := resolver.ResolveMap(ctx, refs)
	if err != nil {
		return "", "", fmt.Errorf("Invalid secret reference input: %w", err)
	}
	if v, ok := resolved[InputAPIKeyRef]; ok {
		apiKey = v
	}
	if v, ok := resolved[InputHostRef]; ok {
		host = v
	}
	return apiKey, host, nil
}
