package buildsys

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"
	"mvdan.cc/sh/v3/syntax"
)

// TaskCmd is one step of a task. The concrete types are ShellCmd,
// TaskRef and FuncCmd; the runner switches on them.
type TaskCmd interface {
	taskCmd()
}

// ShellCmd is a shell snippet executed through the embedded shell
// interpreter with -e semantics.
type ShellCmd struct {
	TaskName string
	Content  string
	Index    int
}

func (ShellCmd) taskCmd() {}

func (c ShellCmd) parse(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	result, err := parser.Parse(strings.NewReader(c.Content), fmt.Sprintf("%s:%d", c.TaskName, c.Index))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", c.Content)
	}

	return result.Stmts, nil
}

// TaskRef runs another task in place of a command.
type TaskRef struct {
	Task *Task
}

func (TaskRef) taskCmd() {}

// FuncCmd is a task step implemented in Go. Desc is what the runner
// prints in place of a command line. Tasks built from a FuncCmd can't be
// cached since functions aren't serializable.
type FuncCmd struct {
	Desc string
	Run  func(ctx context.Context) error
}

func (FuncCmd) taskCmd() {}

// Task contains the processed values for a single task, either built
// into the conda pipeline or declared by task() in a tasks.star script.
type Task struct {
	Env          map[string]string
	Short        string
	Desc         string
	Base         string
	Deps         []string
	Inputs       []string
	Outputs      []string
	SkipIfExists []string
	Cmds         []TaskCmd
	Hidden       bool
}

// TaskList maps short names to each relevant task
type TaskList map[string]*Task

// ScriptOption describes an option() declared by a task script.
type ScriptOption struct {
	DefaultValue starlark.String
	Help         string
}

func (o ScriptOption) Default() string {
	return o.DefaultValue.GoString()
}

// Implement starlark.Value for *Task so task() results can be passed to
// other tasks' cmds lists.

func (t *Task) String() string {
	return fmt.Sprintf("<Task %s: %s>", t.Short, t.Desc)
}

func (t *Task) Type() string {
	return "task"
}

// Freeze doesn't do anything since tasks are immutable anyway
func (t *Task) Freeze() {}

// Truth always returns true since a task can't be nil or None
func (t *Task) Truth() starlark.Bool {
	return starlark.True
}

func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}

// ScriptPath is the starlark value returned by resolve_path().
type ScriptPath string

func (p ScriptPath) String() string {
	return starlark.String(p).String()
}

func (p ScriptPath) Type() string {
	return "path"
}

func (p ScriptPath) Freeze() {}

func (p ScriptPath) Truth() starlark.Bool {
	return p != ""
}

func (p ScriptPath) Hash() (uint32, error) {
	return starlark.String(p).Hash()
}

func (p ScriptPath) CompareSameType(op starsyntax.Token, other starlark.Value, depth int) (bool, error) {
	y := other.(ScriptPath)

	switch op {
	case starsyntax.EQL:
		return p == y, nil
	case starsyntax.NEQ:
		return p != y, nil
	case starsyntax.LT:
		return p < y, nil
	case starsyntax.LE:
		return p <= y, nil
	case starsyntax.GT:
		return p > y, nil
	case starsyntax.GE:
		return p >= y, nil
	}

	return false, eris.Errorf("unknown operator %v", op)
}

func (p ScriptPath) Index(i int) starlark.Value {
	return starlark.String(p[i])
}

func (p ScriptPath) Len() int {
	return len(p)
}

func (p ScriptPath) Slice(start, end, step int) starlark.Value {
	return starlark.String(p).Slice(start, end, step)
}
