// planctl is the operator CLI for StorePilot: it previews, applies and
// reverts plans through a running server, and manages the mirror database.
package main

import (
	"os"

	"storepilot/cmd/planctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
