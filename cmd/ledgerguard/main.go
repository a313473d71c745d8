// Command ledgerguard audits care-provider invoices.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ledgerguard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
