package module_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocorr/sloth/pkg/builtins"
	"github.com/autocorr/sloth/pkg/module"
	"github.com/autocorr/sloth/pkg/value"
	"github.com/autocorr/sloth/pkg/vm"
	"github.com/autocorr/sloth/pkg/vmerrors"
)

func writeSloth(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".sloth"), []byte(body), 0o644))
}

func TestLoadRunsTheModuleAndReturnsItsVM(t *testing.T) {
	dir := t.TempDir()
	writeSloth(t, dir, "greet", ": twice dup + ;")

	l := &module.Loader{
		SearchPath:  []string{dir},
		PackagedLib: filepath.Join(dir, "nonexistent-packaged-lib"),
		Primitives:  builtins.Primitives(),
	}
	sub, err := l.Load("greet")
	require.NoError(t, err)
	_, ok := sub.Dict().Lookup("twice")
	assert.True(t, ok)
}

func TestLoadReturnsModuleNotFoundWhenMissingEverywhere(t *testing.T) {
	l := &module.Loader{
		SearchPath:  []string{t.TempDir()},
		PackagedLib: t.TempDir(),
		Primitives:  builtins.Primitives(),
	}
	_, err := l.Load("nope")
	var notFound vmerrors.ModuleNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLoadSearchesEarlierDirsBeforeLater(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeSloth(t, first, "pick", ": which 1 ;")
	writeSloth(t, second, "pick", ": which 2 ;")

	l := &module.Loader{
		SearchPath:  []string{first, second},
		PackagedLib: t.TempDir(),
		Primitives:  builtins.Primitives(),
	}
	sub, err := l.Load("pick")
	require.NoError(t, err)
	sub.ReadInput("which")
	require.NoError(t, sub.Run())
	assert.Equal(t, []value.Value{value.Integer(1)}, sub.DataItems())
}

func TestImportMergesOnlyNonHiddenWordsIntoTheImportingVM(t *testing.T) {
	dir := t.TempDir()
	writeSloth(t, dir, "priv", ": secret 1 ; hidden : public 2 ;")

	l := &module.Loader{
		SearchPath:  []string{dir},
		PackagedLib: t.TempDir(),
		Primitives:  builtins.Primitives(),
	}
	m := vm.New(builtins.Primitives())
	m.ModuleLoader = l.Load
	m.ReadInput("import priv")
	require.NoError(t, m.Run())

	_, ok := m.Dict().Lookup("public")
	assert.True(t, ok)
	_, ok = m.Dict().Lookup("secret")
	assert.False(t, ok, "hidden words must not leak into the importing VM")
}

// TestLoadRunsTheRealShippedStdLibrary loads the actual lib/std.sloth that
// ships with the repo (not a synthetic fixture), the same file `sloth
// repl` imports on every startup via machine.Import("std"). A typo like
// calling a nonexistent word anywhere in that file aborts the whole
// import (module.go's Load propagates any error from sub.Run()), so this
// is the regression test for exactly that failure mode.
func TestLoadRunsTheRealShippedStdLibrary(t *testing.T) {
	l := &module.Loader{
		SearchPath:  []string{filepath.Join("..", "..", "lib")},
		PackagedLib: t.TempDir(),
		Primitives:  builtins.Primitives(),
	}
	sub, err := l.Load("std")
	require.NoError(t, err)

	for _, name := range []string{"square", "cube", "2dup", "2drop", "abs?", "negate-if", "if", "else", "then", "begin", "until"} {
		_, ok := sub.Dict().Lookup(name)
		assert.True(t, ok, "std.sloth should define %q", name)
	}

	sub.ReadInput("-5 square")
	require.NoError(t, sub.Run())
	assert.Equal(t, []value.Value{value.Integer(25)}, sub.DataItems())

	// negate-if is the word that previously called a nonexistent "negate"
	// instead of the registered "neg" primitive.
	sub.ReadInput("5 True negate-if")
	require.NoError(t, sub.Run())
	assert.Equal(t, []value.Value{value.Integer(25), value.Integer(-5)}, sub.DataItems())
}

func TestLoadPropagatesErrorsFromRunningTheModule(t *testing.T) {
	dir := t.TempDir()
	writeSloth(t, dir, "broken", "undefined-word-here")

	l := &module.Loader{
		SearchPath:  []string{dir},
		PackagedLib: t.TempDir(),
		Primitives:  builtins.Primitives(),
	}
	_, err := l.Load("broken")
	assert.Error(t, err)
}
