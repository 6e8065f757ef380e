package secret

import "context"

// Provider resolves the <ref> part of secretref:<provider>:<ref>.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a missing secret is an error; values must never be logged.
type Provider interface {
	// Name is the <provider> part of a reference.
	Name() string

	Resolve(ctx context.Context, ref string) (string, error)

	Close() error
}
