package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autocorr/sloth/pkg/vmerrors"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive sloth session",
	RunE: func(cmd *cobra.Command, args []string) error {
		runREPL()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// runREPL mirrors original_source/sloth/repl.py's repl(): import the
// standard library, then loop reading one line at a time, running it, and
// reverting the VM to its pre-line snapshot on any runtime error (the
// line-level backup/revert contract ReadInput/MakeBackup implement).
// oisee-psil/cmd/psil/main.go's runREPL is the structural template for the
// bufio.Scanner read loop and banner/prompt shape; prompt_toolkit's
// history/completion/toolbar features have no Go analog in the pack and
// are not reproduced.
func runREPL() {
	fmt.Println(`Sloth 0.1, type "help <word>" for help.`)
	fmt.Println(`Hit CTRL+D or type "bye" to quit.`)

	machine, err := newVM()
	if err != nil {
		exitWithError("%v", err)
	}
	if err := machine.Import("std"); err != nil {
		fmt.Println(color.YellowString("Warning:"), "could not load standard library:", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("sloth> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":dump":
			fmt.Println(machine.DumpState())
			continue
		}

		machine.ReadInput(line + "\n")
		if err := machine.Run(); err != nil {
			if errors.Is(err, vmerrors.ErrBye{}) {
				break
			}
			fmt.Println(color.RedString("Error:"), err)
			fmt.Println(color.RedString("State reverted"))
			machine.Revert()
		}
	}
}
