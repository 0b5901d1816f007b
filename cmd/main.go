// Package cmd implements the qcabuild CLI
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/QuChem/QCFractal/pkg/buildsys"
	"github.com/QuChem/QCFractal/pkg/conda"
)

var rootCmd = &cobra.Command{
	Use:   "qcabuild [flags] [task...] [option=value...]",
	Short: "Conda packaging tasks for QCArchive",
	Long: `qcabuild builds the qcportal, qcfractalcompute and qcfractal conda
packages in dependency order and can upload the results to anaconda.org.
Task names are passed as positional arguments; without any, the available
tasks are listed. key=value arguments are passed as options to an optional
tasks.star script next to the recipes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		taskArgs := make([]string, 0)
		options := make(map[string]string)
		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				taskArgs = append(taskArgs, part)
			}
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		cfg, loader := conda.Loader()
		if err := loader.Load(); err != nil {
			return eris.Wrap(err, "failed to load configuration")
		}

		applyFlagOverrides(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return err
		}

		var logger zerolog.Logger
		if cfg.Log.JSON {
			logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(NewConsoleWriter())
		}
		zerolog.SetGlobalLevel(cfg.LogLevel())

		ctx := buildsys.WithLogger(context.Background(), &logger)

		root, err := cmd.Flags().GetString("root")
		if err != nil {
			return err
		}
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return eris.Wrap(err, "failed to retrieve the current working directory")
			}

			root, err = conda.FindRoot(wd)
			if err != nil {
				return err
			}
		}

		taskList := conda.Tasks(cfg, root)

		scriptPath := filepath.Join(root, "tasks.star")
		_, err = os.Stat(scriptPath)
		if err == nil {
			scriptTasks, err := loadScriptTasks(ctx, scriptPath, root, options)
			if err != nil {
				return err
			}

			for name, task := range scriptTasks {
				taskList[name] = task
			}
		} else if !eris.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "failed to check %s", scriptPath)
		}

		if len(taskArgs) == 0 {
			printTaskList(taskList)
			return nil
		}

		for _, name := range taskArgs {
			if _, ok := taskList[name]; !ok {
				return eris.Errorf("task %s not found", name)
			}

			err = buildsys.RunTask(ctx, root, name, taskList, dryRun, force)
			if err != nil {
				logger.Fatal().Err(err).Msgf("Failed task %s", name)
			}
		}

		return nil
	},
}

func applyFlagOverrides(cmd *cobra.Command, cfg *conda.Config) {
	if cmd.Flags().Changed("build-dir") {
		cfg.BuildDir, _ = cmd.Flags().GetString("build-dir")
	}
	if cmd.Flags().Changed("user") {
		cfg.User, _ = cmd.Flags().GetString("user")
	}
	if cmd.Flags().Changed("label") {
		cfg.Label, _ = cmd.Flags().GetString("label")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}
}

// loadScriptTasks evaluates tasks.star, reusing the cached result when
// the script hasn't changed and was evaluated with the same options.
func loadScriptTasks(ctx context.Context, scriptPath, root string, options map[string]string) (buildsys.TaskList, error) {
	cachePath := filepath.Join(root, ".qcabuild.cache")

	cachedOptions, cached, err := buildsys.ReadCacheIfFresh(cachePath, scriptPath)
	if err == nil && sameOptions(cachedOptions, options) {
		return cached, nil
	}

	tasks, _, err := buildsys.RunScript(ctx, scriptPath, root, options, conda.ReservedNames())
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", scriptPath)
	}

	err = buildsys.WriteCache(cachePath, options, tasks)
	if err != nil {
		buildsys.Logger(ctx).Warn().Err(err).Msgf("failed to cache %s", scriptPath)
	}

	return tasks, nil
}

// sameOptions reports whether the cache was written with the option
// values the current invocation passed. Stale caches would otherwise
// replay tasks built from a previous run's key=value arguments.
func sameOptions(cached, current map[string]string) bool {
	if len(cached) != len(current) {
		return false
	}

	for key, value := range cached {
		if current[key] != value {
			return false
		}
	}

	return true
}

func printTaskList(taskList buildsys.TaskList) {
	fmt.Println("Available tasks:")

	maxNameLen := 0
	sortedNames := make([]string, 0, len(taskList))
	for _, task := range taskList {
		if task.Hidden {
			continue
		}

		if len(task.Short) > maxNameLen {
			maxNameLen = len(task.Short)
		}

		sortedNames = append(sortedNames, task.Short)
	}

	sort.Strings(sortedNames)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Printf(lineFmt, name+":", taskList[name].Desc)
	}
}

func init() {
	rootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	rootCmd.Flags().BoolP("force", "f", false, "force run; skip the up-to-date checks of script tasks")
	rootCmd.Flags().String("root", "", "directory containing the conda recipes (default: discovered from the working directory)")
	rootCmd.Flags().String("build-dir", "", "override the build output directory (BUILDDIR)")
	rootCmd.Flags().String("user", "", "override the upload account (CFUSER)")
	rootCmd.Flags().String("label", "", "override the upload label (CFLABEL)")
	rootCmd.Flags().String("log-level", "", "override the log level")
	rootCmd.Flags().Bool("log-json", false, "output raw JSON log events")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
