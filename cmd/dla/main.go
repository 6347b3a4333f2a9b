// Command dla grows diffusion-limited aggregates headless, serves job lists
// to remote workers, and runs as such a worker.
package main

import (
	"os"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
