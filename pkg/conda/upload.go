package conda

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/QuChem/QCFractal/pkg/buildsys"
)

// artifact patterns relative to the build output directory; conda build
// writes noarch packages in both the classic and the .conda format
// depending on its version.
var artifactPatterns = []string{
	filepath.Join("noarch", "*.tar.bz2"),
	filepath.Join("noarch", "*.conda"),
}

// Artifacts returns the built packages below the given build directory,
// sorted for a stable upload order.
func Artifacts(buildDir string) ([]string, error) {
	files := make([]string, 0)
	for _, pattern := range artifactPatterns {
		matches, err := filepath.Glob(filepath.Join(buildDir, pattern))
		if err != nil {
			return nil, eris.Wrapf(err, "failed to glob %s", pattern)
		}

		files = append(files, matches...)
	}

	sort.Strings(files)
	return files, nil
}

// Upload passes every built package to anaconda upload. Zero built
// packages is an error; a build has to run first.
func Upload(ctx context.Context, cfg *Config) error {
	files, err := Artifacts(cfg.BuildDir)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return eris.Errorf("no built packages found under %s, run a build first", cfg.BuildDir)
	}

	bar := uploadProgressBar(len(files))
	for _, file := range files {
		buildsys.Logger(ctx).Info().
			Str("task", TaskUpload).
			Msgf("uploading %s", filepath.Base(file))

		output := bytes.Buffer{}
		cmd := exec.CommandContext(ctx, "anaconda", "-u", cfg.User, "upload", "-l", cfg.Label, file)
		cmd.Stdout = &output
		cmd.Stderr = &output

		err = cmd.Run()
		if err != nil {
			var exitErr *exec.ExitError
			if eris.As(err, &exitErr) {
				return eris.Errorf("anaconda upload exited with status %d for %s:\n%s",
					exitErr.ExitCode(), filepath.Base(file), output.String())
			}
			return eris.Wrapf(err, "failed to run anaconda upload for %s", filepath.Base(file))
		}

		// bar errors only mean the terminal output got garbled
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	buildsys.Logger(ctx).Info().
		Str("task", TaskUpload).
		Msgf("uploaded %d packages to %s with label %s", len(files), cfg.User, cfg.Label)
	return nil
}

func uploadProgressBar(length int) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.Default(int64(length), "uploading")
}
