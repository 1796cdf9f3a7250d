package main

import (
	"fmt"

	"github.com/tclab/scalegrid/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.SetVersion(fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit))
	cli.Execute()
}
