// ABOUTME: Entrypoint for the siteview static site server.
// ABOUTME: All behavior lives in the cobra command tree under cmd/siteview/cmd.
package main

import (
	"os"

	"github.com/2389-research/siteview/cmd/siteview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
