// Command stockwatch serves the stock lookup and watchlist API and offers
// one-shot lookups from the shell.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
