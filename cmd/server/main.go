/*
main.go - Application entry point

PURPOSE:
  Starts the society store HTTP server and exposes the bulk store
  operations (export, import, generate, reset, seed) as subcommands.

COMMANDS:
  serve       Run the HTTP API (default when no command is given)
  export      Write a snapshot document to --out or stdout
  import      Read a snapshot document and apply it (--mode replace|merge)
  generate    Bill every occupied house for the current month
  reset       Clear the five entity collections (requires --yes)
  seed        Write demo data into empty collections

GLOBAL FLAGS:
  --config    YAML config file
  --env-file  .env file loaded before SOCIETY_* variables (default .env)
  --driver    sqlite | postgres | s3 | memory
  --db        SQLite database path, ":memory:" allowed
  --log-level debug | info | warn | error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM serve stops accepting connections, waits up to 30s for
  active requests, stops the billing scheduler and closes the medium.

EXAMPLES:
  # Run with file database
  ./server serve --db ./data/society.db

  # Nightly backup
  ./server export --out backup.json

  # Restore into a fresh database without touching existing records
  ./server import --mode merge backup.json

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/open.go: Storage driver selection
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
