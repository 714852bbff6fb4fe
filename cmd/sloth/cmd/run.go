package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autocorr/sloth/pkg/vmerrors"
)

var runCmd = &cobra.Command{
	Use:   "run <file>...",
	Short: "Run one or more sloth source files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, err := newVM()
		if err != nil {
			return err
		}
		for _, filename := range args {
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("reading %s: %w", filename, err)
			}
			machine.ReadInput(string(data))
			if err := machine.Run(); err != nil {
				if errors.Is(err, vmerrors.ErrBye{}) {
					os.Exit(0)
				}
				return fmt.Errorf("running %s: %w", filename, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
