// Command docquery loads a JSON document dump into an in-memory collection,
// builds the declared indexes and runs queries against it.
//
// Logging:
//   - The logger is built once from --log-level and --log-format
//   - It is passed to the collection with docquery.WithLogger
//   - Log output goes to stderr, results to stdout
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
