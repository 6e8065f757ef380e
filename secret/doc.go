// Package secret resolves secret references in workflow inputs.
//
// A reference has the form
//
//	secretref:<provider>:<ref>
//
// and is replaced by what the named Provider returns for ref. Only values
// handed to Resolver.Resolve or Resolver.ResolveMap are resolved, and those
// must be references. The action passes its api-key-ref and geodesic-host-ref
// inputs here; plain api-key and geodesic-host values never are.
//
// The built-in "env" provider reads a variable from the process environment:
//
//	secretref:env:GEODESIC_API_KEY
package secret
