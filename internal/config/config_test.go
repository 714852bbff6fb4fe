package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocorr/sloth/pkg/vmerrors"
)

func TestFromFileAppliesDefaultsWhenKeysAreAbsent(t *testing.T) {
	cfg, err := parseBytes([]byte("[Paths]\n"))
	require.NoError(t, err)
	assert.Equal(t, "lib", cfg.LibDir)
	assert.Contains(t, cfg.SlothDir, ".sloth")
}

func TestFromFileHonorsExplicitKeys(t *testing.T) {
	cfg, err := parseBytes([]byte("[Paths]\nsloth_dir = /opt/sloth\nlib_dir = stdlib\n"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/sloth", cfg.SlothDir)
	assert.Equal(t, "stdlib", cfg.LibDir)
}

func TestExpandHomeExpandsLeadingTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/.sloth")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sloth"), got)

	got, err = expandHome("/already/absolute")
	require.NoError(t, err)
	assert.Equal(t, "/already/absolute", got)
}

func TestLibPathJoinsSlothDirAndLibDir(t *testing.T) {
	cfg := &Config{SlothDir: "/opt/sloth", LibDir: "stdlib"}
	assert.Equal(t, filepath.Join("/opt/sloth", "stdlib"), cfg.LibPath())
}

func TestParseReadsSectionFromAnActualFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sloth.config")
	require.NoError(t, os.WriteFile(path, []byte("[Paths]\nsloth_dir = /srv/sloth\nlib_dir = vendor-lib\n"), 0o644))

	cfg, err := parse(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/sloth", cfg.SlothDir)
	assert.Equal(t, "vendor-lib", cfg.LibDir)
	assert.Equal(t, path, cfg.File)
}

func TestLoadFallsBackToThePackagedDefaultConfigWhenNoUserConfigFileExists(t *testing.T) {
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldwd)

	t.Setenv("HOME", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "(packaged default_config)", cfg.File)
	assert.Equal(t, "lib", cfg.LibDir)
}

func TestLoadPrefersACwdConfigFileOverThePackagedDefault(t *testing.T) {
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldwd)

	t.Setenv("HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sloth.config"), []byte("[Paths]\nlib_dir = custom-lib\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "custom-lib", cfg.LibDir)
	assert.Equal(t, "sloth.config", cfg.File)
}

func TestLoadFailsFatallyWhenNoUserConfigOrPackagedDefaultIsAvailable(t *testing.T) {
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldwd)

	t.Setenv("HOME", dir)

	saved := packagedDefaultConfig
	packagedDefaultConfig = nil
	defer func() { packagedDefaultConfig = saved }()

	_, err = Load()
	var notFound vmerrors.ConfigNotFound
	assert.ErrorAs(t, err, &notFound)
}
