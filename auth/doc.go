// Package auth exchanges a Krampus API key for an access token.
//
// A single Authenticate call resolves the Geodesic host, issues one GET to the
// Krampus token endpoint with the key in the Api-Key header, and classifies the
// reply into success or exactly one of four error kinds. The package never
// touches process state: on success it returns Credentials, and the caller
// decides where the exported values go.
package auth
