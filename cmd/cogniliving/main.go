// Package main is the entrypoint for the cogni-living analytics daemon.
package main

import "github.com/obodeldog/cogni-living-daemon/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
