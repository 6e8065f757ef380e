// Command krampus-auth validates a Geodesic API key against Krampus and
// exports GEODESIC_API_KEY and GEODESIC_HOST for later workflow steps.
package main

import (
	"os"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:]))
}
