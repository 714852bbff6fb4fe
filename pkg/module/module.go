// Package module implements import_module (spec.md section 4.6): locating
// a named .sloth file on a search path, running it to completion in a
// fresh sub-VM, and handing the result back so the importing VM can merge
// its public (non-hidden) words. Grounded on
// original_source/sloth/core.py's import_module, which the teacher
// (oisee-psil) has no equivalent of at all — PSIL is a single-dictionary
// REPL with no module system.
package module

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/autocorr/sloth/internal/config"
	"github.com/autocorr/sloth/pkg/dictionary"
	"github.com/autocorr/sloth/pkg/vm"
	"github.com/autocorr/sloth/pkg/vmerrors"
)

// Loader resolves module names to run-to-completion sub-VMs. It is wired
// into every VirtualMachine it constructs (including modules it loads, so
// a module can itself `import` another module); cmd/sloth wires its Load
// into the top-level VM.
type Loader struct {
	// SearchPath lists directories checked in order, ahead of the
	// packaged lib/ directory, mirroring
	// original_source/sloth/core.py's system_path tuple:
	// (cwd, sloth_dir/lib_dir, <package>/lib).
	SearchPath []string
	// PackagedLib is the final fallback directory, the sloth.config-free
	// lib/ shipped alongside the binary.
	PackagedLib string
	// Primitives is the shared builtin template each sub-VM is seeded
	// with (pkg/builtins.Primitives(), passed in rather than imported
	// directly so tests can substitute a smaller table).
	Primitives map[string]dictionary.Word
	// Warn mirrors the importing VM's redefinition-warning setting.
	Warn bool
}

// New builds a Loader from a loaded configuration, rooted at the current
// working directory.
func New(cfg *config.Config, primitives map[string]dictionary.Word) (*Loader, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("module: getwd: %w", err)
	}
	exe, err := os.Executable()
	packagedLib := "lib"
	if err == nil {
		packagedLib = filepath.Join(filepath.Dir(exe), "..", "lib")
	}
	return &Loader{
		// cwd/lib is not in the original's search list (its cwd entry
		// means "import a module from the script's own directory"), but
		// this repo ships its standard library at <repo root>/lib rather
		// than packaged alongside the compiled binary, so it is added as
		// a third entry, ahead of PackagedLib, for `sloth run`/`repl`
		// invoked from a source checkout.
		SearchPath:  []string{cwd, cfg.LibPath(), filepath.Join(cwd, "lib")},
		PackagedLib: packagedLib,
		Primitives:  primitives,
		Warn:        true,
	}, nil
}

// Load finds name+".sloth" on the search path, runs it in a fresh VM, and
// returns that VM for the caller to merge non-hidden words from
// (dictionary.Dictionary.Merge, invoked by VirtualMachine.ImportModule).
func (l *Loader) Load(name string) (*vm.VirtualMachine, error) {
	filename := name + ".sloth"
	dirs := append(append([]string{}, l.SearchPath...), l.PackagedLib)
	var path string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, vmerrors.ModuleNotFound{Name: name}
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("module: reading %s: %w", path, err)
	}

	sub := vm.New(l.Primitives)
	sub.Warn = l.Warn
	sub.Dict().Warn = l.Warn
	sub.ModuleLoader = l.Load
	sub.ReadInput(string(text))
	if err := sub.Run(); err != nil {
		return nil, fmt.Errorf("module: running %s: %w", path, err)
	}
	return sub, nil
}
