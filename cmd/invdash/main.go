// Inventory Dashboard - terminal client for the inventory reporting service
package main

import (
	"os"

	"github.com/invdash/invdash/internal/cli"
	"github.com/invdash/invdash/internal/version"
)

// Version information, set by -ldflags at release build time
var (
	Version   = "v0.4.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
