package conda

import (
	"context"
	"os"

	"github.com/rotisserie/eris"

	"github.com/QuChem/QCFractal/pkg/buildsys"
)

// Clean removes the build output directory recursively. A directory
// that doesn't exist counts as success, so clean is idempotent.
func Clean(ctx context.Context, cfg *Config) error {
	_, err := os.Stat(cfg.BuildDir)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			buildsys.Logger(ctx).Debug().Msgf("%s does not exist, nothing to clean", cfg.BuildDir)
			return nil
		}

		return eris.Wrapf(err, "failed to check %s", cfg.BuildDir)
	}

	err = os.RemoveAll(cfg.BuildDir)
	if err != nil {
		return eris.Wrapf(err, "failed to remove %s", cfg.BuildDir)
	}

	buildsys.Logger(ctx).Info().Msgf("removed %s", cfg.BuildDir)
	return nil
}
