package conda

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/QuChem/QCFractal/pkg/buildsys"
)

// Task names of the built-in pipeline. The three build tasks form a
// chain: qcfractal is built last because its recipe is uploaded last,
// not because the package contents require it. That ordering is kept
// as-is from the original packaging setup.
const (
	TaskPortal  = "qcportal"
	TaskCompute = "qcfractalcompute"
	TaskFractal = "qcfractal"
	TaskAll     = "all"
	TaskClean   = "clean"
	TaskUpload  = "upload"
)

// ReservedNames returns the task names claimed by the built-in pipeline.
// A tasks.star script can't redefine these.
func ReservedNames() []string {
	return []string{TaskPortal, TaskCompute, TaskFractal, TaskAll, TaskClean, TaskUpload}
}

// Tasks assembles the built-in task list for the recipes under root.
func Tasks(cfg *Config, root string) buildsys.TaskList {
	tasks := buildsys.TaskList{}

	for _, step := range []struct {
		name string
		deps []string
	}{
		{TaskPortal, nil},
		{TaskCompute, []string{TaskPortal}},
		{TaskFractal, []string{TaskCompute}},
	} {
		tasks[step.name] = buildTask(cfg, root, step.name, step.deps)
	}

	tasks[TaskAll] = &buildsys.Task{
		Short: TaskAll,
		Desc:  "Builds all three packages",
		Base:  root,
		Deps:  []string{TaskPortal, TaskCompute, TaskFractal},
	}

	tasks[TaskClean] = &buildsys.Task{
		Short: TaskClean,
		Desc:  "Deletes the build output directory",
		Base:  root,
		Cmds: []buildsys.TaskCmd{buildsys.FuncCmd{
			Desc: "rm -rf " + cfg.BuildDir,
			Run: func(ctx context.Context) error {
				return Clean(ctx, cfg)
			},
		}},
	}

	tasks[TaskUpload] = &buildsys.Task{
		Short: TaskUpload,
		Desc:  fmt.Sprintf("Uploads built packages to anaconda.org/%s (label %s)", cfg.User, cfg.Label),
		Base:  root,
		Cmds: []buildsys.TaskCmd{buildsys.FuncCmd{
			Desc: fmt.Sprintf("anaconda -u %s upload -l %s %s", cfg.User, cfg.Label, filepath.Join(cfg.BuildDir, "noarch", "*")),
			Run: func(ctx context.Context) error {
				return Upload(ctx, cfg)
			},
		}},
	}

	return tasks
}

func buildTask(cfg *Config, root, name string, deps []string) *buildsys.Task {
	desc := fmt.Sprintf("Builds the %s package", name)
	meta := ReadMeta(filepath.Join(root, name))
	if meta.Version != "" {
		desc = fmt.Sprintf("Builds the %s %s package", name, meta.Version)
	}

	return &buildsys.Task{
		Short: name,
		Desc:  desc,
		Base:  root,
		Deps:  deps,
		Cmds: []buildsys.TaskCmd{buildsys.ShellCmd{
			TaskName: name,
			Content:  buildCommand(cfg, name),
		}},
	}
}

func buildCommand(cfg *Config, recipe string) string {
	parts := []string{"conda", "build", "--output-folder", shQuote(cfg.BuildDir)}
	for _, channel := range cfg.Channels {
		parts = append(parts, "-c", shQuote(channel))
	}
	parts = append(parts, shQuote(recipe))

	return strings.Join(parts, " ")
}

func shQuote(value string) string {
	if value != "" && !strings.ContainsAny(value, " \t'\"$&|;<>()`\\*?[]#~") {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
