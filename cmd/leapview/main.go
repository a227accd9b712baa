// Package main provides the leapview CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapview/internal/cli"

	// Register database adapters.
	_ "github.com/leapstack-labs/leapview/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
