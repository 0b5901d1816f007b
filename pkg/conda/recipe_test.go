package conda

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRecipe(t *testing.T, root, name, meta string) {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte(meta), 0o600))
}

func TestReadMeta(t *testing.T) {
	root := t.TempDir()
	writeRecipe(t, root, "qcportal", `package:
  name: qcportal
  version: 0.56.0

build:
  number: 0
`)

	meta := ReadMeta(filepath.Join(root, "qcportal"))
	require.Equal(t, "qcportal", meta.Name)
	require.Equal(t, "0.56.0", meta.Version)
}

func TestReadMetaStripsJinja(t *testing.T) {
	root := t.TempDir()
	writeRecipe(t, root, "qcfractal", `{% set version = "0.56.0" %}

package:
  name: qcfractal
  version: {{ version }}
`)

	meta := ReadMeta(filepath.Join(root, "qcfractal"))
	require.Equal(t, "qcfractal", meta.Name)
	// the templated version is unknowable without jinja, it degrades to empty
	require.Empty(t, meta.Version)
}

func TestReadMetaMissingFile(t *testing.T) {
	meta := ReadMeta(filepath.Join(t.TempDir(), "nope"))
	require.Empty(t, meta.Name)
	require.Empty(t, meta.Version)
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeRecipe(t, root, TaskPortal, "package:\n  name: qcportal\n")

	nested := filepath.Join(root, TaskPortal)
	found, err := FindRoot(nested)
	require.NoError(t, err)
	require.Equal(t, root, found)

	found, err = FindRoot(root)
	require.NoError(t, err)
	require.Equal(t, root, found)
}

func TestFindRootNotFound(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no directory containing")
}
