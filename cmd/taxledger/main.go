// Command taxledger runs the sales tax ledger: an HTTP server plus
// one-shot commands for recording events and querying the tax position.
package main

import (
	"context"
	"os"

	"github.com/roach88/taxledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
