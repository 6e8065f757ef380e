// Package action runs the Krampus authentication as a GitHub Actions step.
//
// It reads the step inputs from the runner environment, talks to the runner
// through workflow commands on stdout and the GITHUB_ENV file, and maps the
// outcome of auth.Authenticator to an exit code. A failed step reports exactly
// one ::error:: message and exports nothing.
//
// The api-key and geodesic-host inputs are used verbatim. The optional
// api-key-ref and geodesic-host-ref inputs take a secretref instead.
package action
