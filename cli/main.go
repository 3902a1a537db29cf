// ABOUTME: Entry point for the acreditaciones CLI
// ABOUTME: Command-line tool for checking the accreditation API and a running portal

package main

import (
	"fmt"
	"os"

	"github.com/markalston/acreditaciones-portal/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
