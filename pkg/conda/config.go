// Package conda defines the QCArchive packaging pipeline: the conda
// build tasks for qcportal, qcfractalcompute and qcfractal, the upload
// to anaconda.org and the clean task for the build output directory.
package conda

import (
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	BuildDir string   `default:"/tmp/qca_conda_build" env:"BUILDDIR" usage:"Directory the built packages are collected in"`
	User     string   `default:"qcarchive" env:"CFUSER" usage:"anaconda.org account the packages are uploaded to"`
	Label    string   `default:"next" env:"CFLABEL" usage:"anaconda.org label the packages are uploaded with"`
	Channels []string `default:"conda-forge" usage:"Channels passed to conda build"`
	Log      struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output raw JSON instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader
// for this object. Values come from defaults, an optional qcabuild.toml
// and the environment (BUILDDIR, CFUSER, CFLABEL); flags are handled by
// cobra instead.
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		Files:     []string{"qcabuild.toml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Validate normalizes BuildDir and verifies that all config fields
// have valid values
func (cfg *Config) Validate() error {
	if cfg.BuildDir == "" {
		return eris.New("invalid value for builddir: must not be empty")
	}

	cfg.BuildDir = filepath.Clean(cfg.BuildDir)
	if cfg.BuildDir == "/" || cfg.BuildDir == filepath.VolumeName(cfg.BuildDir)+string(filepath.Separator) {
		return eris.New("invalid value for builddir: refusing to use the filesystem root")
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf("invalid value for log.level: %s", cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
