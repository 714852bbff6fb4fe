package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autocorr/sloth/internal/config"
	"github.com/autocorr/sloth/pkg/builtins"
	"github.com/autocorr/sloth/pkg/module"
	"github.com/autocorr/sloth/pkg/vm"
)

var (
	flagNoWarnings bool
	flagLibDir     string
	flagSlothDir   string
)

var rootCmd = &cobra.Command{
	Use:   "sloth",
	Short: "The sloth concatenative language",
	Long: `sloth is a small stack-based, concatenative language in the Forth
tradition: words operate on a shared data stack, new words are defined
with : ... ;, and the interpreter toggles between immediate execution and
compilation one symbol at a time.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoWarnings, "no-warnings", false,
		"suppress dictionary-redefinition warnings")
	rootCmd.PersistentFlags().StringVar(&flagLibDir, "lib-dir", "",
		"override the configured library subdirectory")
	rootCmd.PersistentFlags().StringVar(&flagSlothDir, "sloth-dir", "",
		"override the configured sloth home directory")
}

// newVM wires config, the module loader, and a fresh VirtualMachine
// together, the construction every subcommand needs before it can run or
// read any sloth source.
func newVM() (*vm.VirtualMachine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if flagSlothDir != "" {
		cfg.SlothDir = flagSlothDir
	}
	if flagLibDir != "" {
		cfg.LibDir = flagLibDir
	}

	primitives := builtins.Primitives()
	loader, err := module.New(cfg, primitives)
	if err != nil {
		return nil, fmt.Errorf("building module loader: %w", err)
	}
	loader.Warn = !flagNoWarnings

	machine := vm.New(primitives)
	machine.Warn = !flagNoWarnings
	machine.Dict().Warn = !flagNoWarnings
	machine.ModuleLoader = loader.Load
	return machine, nil
}

func exitWithError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
