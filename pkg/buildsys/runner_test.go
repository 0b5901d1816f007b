package buildsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func recordTask(name string, deps []string, order *[]string) *Task {
	return &Task{
		Short: name,
		Deps:  deps,
		Cmds: []TaskCmd{FuncCmd{
			Desc: name,
			Run: func(ctx context.Context) error {
				*order = append(*order, name)
				return nil
			},
		}},
	}
}

func TestRunTaskDependencyOrder(t *testing.T) {
	order := []string{}
	tasks := TaskList{
		"qcportal":         recordTask("qcportal", nil, &order),
		"qcfractalcompute": recordTask("qcfractalcompute", []string{"qcportal"}, &order),
		"qcfractal":        recordTask("qcfractal", []string{"qcfractalcompute"}, &order),
	}

	err := RunTask(context.Background(), t.TempDir(), "qcfractal", tasks, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"qcportal", "qcfractalcompute", "qcfractal"}, order)
}

func TestRunTaskRunsEachTaskOnce(t *testing.T) {
	order := []string{}
	tasks := TaskList{
		"base":  recordTask("base", nil, &order),
		"left":  recordTask("left", []string{"base"}, &order),
		"right": recordTask("right", []string{"base"}, &order),
		"top":   recordTask("top", []string{"left", "right"}, &order),
	}

	err := RunTask(context.Background(), t.TempDir(), "top", tasks, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"base", "left", "right", "top"}, order)
}

func TestRunTaskUnknownTask(t *testing.T) {
	err := RunTask(context.Background(), t.TempDir(), "nope", TaskList{}, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "task nope not found")
}

func TestRunTaskUnknownDependency(t *testing.T) {
	order := []string{}
	tasks := TaskList{
		"top": recordTask("top", []string{"missing"}, &order),
	}

	err := RunTask(context.Background(), t.TempDir(), "top", tasks, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "task missing not found")
	require.Empty(t, order)
}

func TestRunTaskDetectsCycle(t *testing.T) {
	order := []string{}
	tasks := TaskList{
		"a": recordTask("a", []string{"b"}, &order),
		"b": recordTask("b", []string{"a"}, &order),
	}

	err := RunTask(context.Background(), t.TempDir(), "a", tasks, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dependency cycle")
}

func TestRunTaskShellCommand(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"write": {
			Short: "write",
			Base:  base,
			Cmds:  []TaskCmd{ShellCmd{TaskName: "write", Content: "echo hello > out.txt"}},
		},
	}

	err := RunTask(context.Background(), base, "write", tasks, false, false)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(base, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))
}

func TestRunTaskFailFast(t *testing.T) {
	base := t.TempDir()
	order := []string{}
	top := recordTask("top", []string{"broken"}, &order)
	tasks := TaskList{
		"broken": {
			Short: "broken",
			Base:  base,
			Cmds:  []TaskCmd{ShellCmd{TaskName: "broken", Content: "exit 3"}},
		},
		"top": top,
	}

	err := RunTask(context.Background(), base, "top", tasks, false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exited with status 3")
	require.Empty(t, order)
}

func TestRunTaskDryRun(t *testing.T) {
	base := t.TempDir()
	order := []string{}
	tasks := TaskList{
		"write": {
			Short: "write",
			Base:  base,
			Deps:  []string{"record"},
			Cmds:  []TaskCmd{ShellCmd{TaskName: "write", Content: "echo hello > out.txt"}},
		},
		"record": recordTask("record", nil, &order),
	}

	err := RunTask(context.Background(), base, "write", tasks, true, false)
	require.NoError(t, err)
	require.Empty(t, order)
	require.NoFileExists(t, filepath.Join(base, "out.txt"))
}

func TestRunTaskSkipIfExists(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "done.txt"), []byte("x"), 0o600))

	order := []string{}
	tasks := TaskList{
		"skipme": {
			Short:        "skipme",
			Base:         base,
			SkipIfExists: []string{"done.txt"},
			Cmds: []TaskCmd{FuncCmd{Desc: "skipme", Run: func(ctx context.Context) error {
				order = append(order, "skipme")
				return nil
			}}},
		},
	}

	err := RunTask(context.Background(), base, "skipme", tasks, false, false)
	require.NoError(t, err)
	require.Empty(t, order)

	err = RunTask(context.Background(), base, "skipme", tasks, false, true)
	require.NoError(t, err)
	require.Equal(t, []string{"skipme"}, order)
}

func TestRunTaskRefCommand(t *testing.T) {
	order := []string{}
	helper := recordTask("helper", nil, &order)
	helper.Hidden = true

	tasks := TaskList{
		"top": {
			Short: "top",
			Cmds:  []TaskCmd{TaskRef{Task: helper}},
		},
	}

	err := RunTask(context.Background(), t.TempDir(), "top", tasks, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"helper"}, order)
}
