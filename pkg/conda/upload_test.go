package conda

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, buildDir, name string) string {
	t.Helper()

	noarch := filepath.Join(buildDir, "noarch")
	require.NoError(t, os.MkdirAll(noarch, 0o755))

	path := filepath.Join(noarch, name)
	require.NoError(t, os.WriteFile(path, []byte("pkg"), 0o600))
	return path
}

// stubAnaconda puts a fake anaconda binary on PATH that appends its
// arguments to a log file and exits with the given status.
func stubAnaconda(t *testing.T, exitCode int) string {
	t.Helper()

	binDir := t.TempDir()
	logFile := filepath.Join(binDir, "calls.log")
	script := "#!/bin/sh\necho \"$@\" >> \"" + logFile + "\"\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "anaconda"), []byte(script), 0o755))

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("CI", "true")
	return logFile
}

func TestArtifacts(t *testing.T) {
	buildDir := t.TempDir()
	first := writeArtifact(t, buildDir, "qcfractal-0.56.0-py_0.tar.bz2")
	second := writeArtifact(t, buildDir, "qcportal-0.56.0-py_0.conda")
	writeArtifact(t, buildDir, "index.json")

	files, err := Artifacts(buildDir)
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, files)
}

func TestUploadReportsZeroMatches(t *testing.T) {
	err := Upload(context.Background(), testConfig(t.TempDir()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no built packages found")
}

func TestUploadInvokesAnaconda(t *testing.T) {
	logFile := stubAnaconda(t, 0)

	buildDir := t.TempDir()
	first := writeArtifact(t, buildDir, "qcfractal-0.56.0-py_0.tar.bz2")
	second := writeArtifact(t, buildDir, "qcportal-0.56.0-py_0.tar.bz2")

	err := Upload(context.Background(), testConfig(buildDir))
	require.NoError(t, err)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Equal(t, []string{
		"-u qcarchive upload -l next " + first,
		"-u qcarchive upload -l next " + second,
	}, lines)
}

func TestUploadFailureSurfacesExitStatus(t *testing.T) {
	stubAnaconda(t, 2)

	buildDir := t.TempDir()
	writeArtifact(t, buildDir, "qcportal-0.56.0-py_0.tar.bz2")

	err := Upload(context.Background(), testConfig(buildDir))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exited with status 2")
}
