// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for hostwarden.
//
// Usage:
//
//	go run . [command] [flags]
//	./hostwarden [command] [flags]
//
// See --help for the command tree.
package main

import (
	"os"

	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		code := cli.ExitCode(err)
		// Failures with a rendered result were already printed on stdout.
		if code == cli.ExitUsage {
			logging.Errorf("%v", err)
		}
		os.Exit(code)
	}
}
