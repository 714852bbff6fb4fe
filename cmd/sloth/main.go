// Command sloth runs the sloth concatenative language: a file runner, a
// REPL, and a dictionary browser, layered over pkg/vm the way
// oisee-psil/cmd/psil/main.go layers a REPL over pkg/interpreter, but
// restructured onto a github.com/spf13/cobra command tree per
// CWBudde-go-dws/cmd/dwscript's convention.
package main

import (
	"os"

	"github.com/autocorr/sloth/cmd/sloth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
