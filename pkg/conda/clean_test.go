package conda

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanRemovesBuildDir(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "noarch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "noarch", "qcportal-0.56.0-py_0.tar.bz2"), []byte("pkg"), 0o600))

	err := Clean(context.Background(), testConfig(buildDir))
	require.NoError(t, err)
	require.NoDirExists(t, buildDir)
}

func TestCleanIsIdempotent(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))

	cfg := testConfig(buildDir)
	require.NoError(t, Clean(context.Background(), cfg))
	require.NoError(t, Clean(context.Background(), cfg))
}
