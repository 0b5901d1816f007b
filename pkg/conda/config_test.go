package conda

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	require.Equal(t, "/tmp/qca_conda_build", cfg.BuildDir)
	require.Equal(t, "qcarchive", cfg.User)
	require.Equal(t, "next", cfg.Label)
	require.Equal(t, []string{"conda-forge"}, cfg.Channels)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Log.JSON)
	require.NoError(t, cfg.Validate())
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("BUILDDIR", "/data/conda-out")
	t.Setenv("CFUSER", "someuser")
	t.Setenv("CFLABEL", "main")

	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	require.Equal(t, "/data/conda-out", cfg.BuildDir)
	require.Equal(t, "someuser", cfg.User)
	require.Equal(t, "main", cfg.Label)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig("/tmp/qca_conda_build")
	require.NoError(t, cfg.Validate())

	cfg.BuildDir = ""
	require.Error(t, cfg.Validate())

	cfg.BuildDir = "/"
	require.Error(t, cfg.Validate())

	// paths that only clean down to the root must be caught too
	cfg.BuildDir = "//"
	require.Error(t, cfg.Validate())

	cfg.BuildDir = "/tmp/.."
	require.Error(t, cfg.Validate())

	cfg = testConfig("/tmp/qca_conda_build/extra/..")
	require.NoError(t, cfg.Validate())
	require.Equal(t, "/tmp/qca_conda_build", cfg.BuildDir)

	cfg = testConfig("/tmp/qca_conda_build")
	cfg.Log.Level = "verbose"
	require.Error(t, cfg.Validate())
}
