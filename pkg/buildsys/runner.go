package buildsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		runTasks    map[string]bool
		projectRoot string
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

func taskEnviron(task *Task) expand.Environ {
	envVars := os.Environ()

	for name, value := range task.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

func resolvePatternLists(ctx context.Context, base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir:  shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()
	pathCtx := &scriptCtx{
		filepath:    "invalid",
		projectRoot: getRuntimeCtx(ctx).projectRoot,
	}

	for _, item := range patterns {
		item = normalizePath(pathCtx, base, item)
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse pattern %s", item)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// an unmatched pattern is returned verbatim, skip those
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}
	return result, nil
}

// RunTask executes the given task after running all of its transitive
// dependencies, each exactly once per invocation. The first failing
// command aborts the remaining sequence.
func RunTask(ctx context.Context, projectRoot, name string, tasks TaskList, dryRun, force bool) error {
	rctx := runtimeCtx{
		projectRoot: projectRoot,
		runTasks:    make(map[string]bool),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	task, found := tasks[name]
	if !found {
		return eris.Errorf("task %s not found", name)
	}

	return runTaskInternal(ctx, task, tasks, dryRun, force, true)
}

func runTaskInternal(ctx context.Context, task *Task, tasks TaskList, dryRun, force, canSkip bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rctx := getRuntimeCtx(ctx)
	done, seen := rctx.runTasks[task.Short]
	if seen {
		if done {
			log(ctx).Debug().Msgf("Task %s already run", task.Short)
			return nil
		}

		return eris.Errorf("task %s depends on itself (dependency cycle)", task.Short)
	}

	rctx.runTasks[task.Short] = false

	for _, dep := range task.Deps {
		if rctx.runTasks[dep] {
			continue
		}

		depTask, ok := tasks[dep]
		if !ok {
			return eris.Errorf("task %s not found", dep)
		}

		err := runTaskInternal(ctx, depTask, tasks, dryRun, false, true)
		if err != nil {
			return eris.Wrapf(err, "task %s failed due to its dependency %s", task.Short, dep)
		}
	}

	if canSkip && !force {
		skip, err := checkSkipConditions(ctx, task)
		if err != nil {
			return err
		}

		if skip {
			rctx.runTasks[task.Short] = true
			return nil
		}
	}

	err := runTaskCmds(ctx, task, tasks, dryRun, force)
	if err != nil {
		return err
	}

	if task.Short != "" {
		rctx.runTasks[task.Short] = true
	}
	return nil
}

// checkSkipConditions implements the skip_if_exists and input/output
// freshness checks for tasks that declare them. The built-in conda tasks
// declare neither and always rebuild.
func checkSkipConditions(ctx context.Context, task *Task) (bool, error) {
	if len(task.SkipIfExists) > 0 {
		skipList, err := resolvePatternLists(ctx, task.Base, task.SkipIfExists)
		if err != nil {
			return false, eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return false, eris.Wrapf(err, "failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			log(ctx).Info().
				Str("task", task.Short).
				Msg("skipped because all skip files exist")
			return true, nil
		}
	}

	if len(task.Inputs) == 0 {
		return false, nil
	}

	inputList, err := resolvePatternLists(ctx, task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := resolvePatternLists(ctx, task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve outputs")
	}

	var newestInput time.Time
	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "failed to check input %s", item)
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	var newestOutput time.Time
	for _, item := range outputList {
		info, err := os.Stat(item)
		if err != nil {
			if !eris.Is(err, os.ErrNotExist) {
				return false, eris.Wrapf(err, "failed to check output %s", item)
			}
			continue
		}

		if info.ModTime().After(newestOutput) {
			newestOutput = info.ModTime()
		}
	}

	if newestOutput.After(newestInput) {
		log(ctx).Info().
			Str("task", task.Short).
			Msgf("nothing to do (output is %.0f seconds newer)", newestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}

func runTaskCmds(ctx context.Context, task *Task, tasks TaskList, dryRun, force bool) error {
	base := task.Base
	if base == "" {
		base = getRuntimeCtx(ctx).projectRoot
	}

	runner, err := interp.New(
		interp.Dir(base),
		interp.Env(taskEnviron(task)),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize shell runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for _, item := range task.Cmds {
		switch cmd := item.(type) {
		case ShellCmd:
			stmts, err := cmd.parse(parser)
			if err != nil {
				return err
			}

			for _, stmt := range stmts {
				strBuffer.Reset()
				err = printer.Print(&strBuffer, stmt)
				if err != nil {
					return eris.Wrap(err, "failed to print command")
				}
				cmdText := strBuffer.String()

				log(ctx).Info().
					Str("task", task.Short).
					Bool("command", true).
					Msg(cmdText)

				if dryRun {
					continue
				}

				err = runner.Run(ctx, stmt)
				if err != nil {
					if status, ok := interp.IsExitStatus(err); ok {
						return eris.Errorf("command %q exited with status %d", cmdText, status)
					}
					return eris.Wrapf(err, "command %q failed", cmdText)
				}

				if runner.Exited() {
					return nil
				}
			}
		case TaskRef:
			if cmd.Task == nil {
				return eris.Errorf("task %s contains an empty task reference", task.Short)
			}

			err = runTaskInternal(ctx, cmd.Task, tasks, dryRun, force, true)
			if err != nil {
				return err
			}
		case FuncCmd:
			log(ctx).Info().
				Str("task", task.Short).
				Bool("command", true).
				Msg(cmd.Desc)

			if !dryRun {
				err = cmd.Run(ctx)
				if err != nil {
					return err
				}
			}
		default:
			return eris.Errorf("unexpected task command %+v", item)
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
