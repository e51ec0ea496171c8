package cluster

import (
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// execCommand is a seam for tests to stub out process creation.
var execCommand = exec.Command

// Command represents a command that can be executed.
type Command interface {
	Output() ([]byte, error)
	CombinedOutput() ([]byte, error)
	Run() error
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	SetStdin(r io.Reader)
}

// Executor creates commands for execution.
type Executor interface {
	Command(name string, args []string, validators ...ExecValidator) (Command, error)
}

type realCommand struct {
	cmd *exec.Cmd
}

func (c *realCommand) Output() ([]byte, error)         { return c.cmd.Output() }
func (c *realCommand) CombinedOutput() ([]byte, error) { return c.cmd.CombinedOutput() }
func (c *realCommand) Run() error                      { return c.cmd.Run() }
func (c *realCommand) SetStdout(w io.Writer)           { c.cmd.Stdout = w }
func (c *realCommand) SetStderr(w io.Writer)           { c.cmd.Stderr = w }
func (c *realCommand) SetStdin(r io.Reader)            { c.cmd.Stdin = r }

type defaultExecutor struct{}

func (defaultExecutor) Command(name string, args []string, validators ...ExecValidator) (Command, error) {
	spec := ExecSpec{Name: name, Args: args}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	return &realCommand{cmd: execCommand(name, args...)}, nil
}

// DefaultExecutor runs real processes.
var DefaultExecutor Executor = defaultExecutor{}

// ExecSpec is the binary and argument list of a command about to be created.
type ExecSpec struct {
	Name string
	Args []string
}

// ExecValidator rejects a command before it is created.
type ExecValidator func(ExecSpec) error

// AllowlistBins only allows the named binaries.
func AllowlistBins(allowed ...string) ExecValidator {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return func(spec ExecSpec) error {
		if _, ok := set[spec.Name]; !ok {
			return errors.New("exec: binary not allowed")
		}
		return nil
	}
}

// NoControlChars rejects arguments carrying line breaks or tabs.
func NoControlChars() ExecValidator {
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "\r\n\t") {
				return errors.New("exec: control characters not allowed")
			}
		}
		return nil
	}
}

// PathUnder rejects arguments that resolve to a path outside root.
// The "-" argument (stdin) is always allowed.
func PathUnder(root string) ExecValidator {
	absRoot := root
	if abs, err := filepath.Abs(root); err == nil {
		absRoot = abs
	}
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if arg == "-" {
				continue
			}
			candidate := arg
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(absRoot, candidate)
			}
			candidate = filepath.Clean(candidate)
			rel, err := filepath.Rel(absRoot, candidate)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return errors.New("exec: path escapes root")
			}
		}
		return nil
	}
}
