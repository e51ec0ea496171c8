package cluster

import (
	"io"
	"strings"

	"go.uber.org/zap"
)

// MockCommand is a test double for Command. Run writes Stdout and Stderr to
// the configured writers and records whatever was piped to stdin.
type MockCommand struct {
	Spec       ExecSpec
	Stdout     string
	Stderr     string
	OutputData []byte
	OutputErr  error
	RunErr     error
	StdoutW    io.Writer
	StderrW    io.Writer
	StdinR     io.Reader
	Stdin      string
}

func (m *MockCommand) Output() ([]byte, error)         { return m.OutputData, m.OutputErr }
func (m *MockCommand) CombinedOutput() ([]byte, error) { return m.OutputData, m.OutputErr }
func (m *MockCommand) SetStdout(w io.Writer)           { m.StdoutW = w }
func (m *MockCommand) SetStderr(w io.Writer)           { m.StderrW = w }
func (m *MockCommand) SetStdin(r io.Reader)            { m.StdinR = r }

func (m *MockCommand) Run() error {
	if m.StdinR != nil {
		data, err := io.ReadAll(m.StdinR)
		if err != nil {
			return err
		}
		m.Stdin = string(data)
	}
	if m.StdoutW != nil && m.Stdout != "" {
		_, _ = io.WriteString(m.StdoutW, m.Stdout)
	}
	if m.StderrW != nil && m.Stderr != "" {
		_, _ = io.WriteString(m.StderrW, m.Stderr)
	}
	return m.RunErr
}

// MockExecutor is a test double for Executor.
type MockExecutor struct {
	// Commands records all commands that were created.
	Commands []ExecSpec
	// Created holds the mock commands handed out, in order.
	Created []*MockCommand
	// DefaultStdout is written by commands when CommandFunc is nil.
	DefaultStdout string
	// DefaultRunErr is the error returned by Run when CommandFunc is nil.
	DefaultRunErr error
	// CommandFunc allows custom behavior per command.
	CommandFunc func(spec ExecSpec) *MockCommand
}

func (m *MockExecutor) Command(name string, args []string, validators ...ExecValidator) (Command, error) {
	spec := ExecSpec{Name: name, Args: args}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	m.Commands = append(m.Commands, spec)

	var cmd *MockCommand
	if m.CommandFunc != nil {
		cmd = m.CommandFunc(spec)
		cmd.Spec = spec
	} else {
		cmd = &MockCommand{Spec: spec, Stdout: m.DefaultStdout, RunErr: m.DefaultRunErr}
	}
	m.Created = append(m.Created, cmd)
	return cmd, nil
}

// LastCommand returns the most recent command spec.
func (m *MockExecutor) LastCommand() ExecSpec {
	if len(m.Commands) == 0 {
		return ExecSpec{}
	}
	return m.Commands[len(m.Commands)-1]
}

// Reset clears recorded commands.
func (m *MockExecutor) Reset() {
	m.Commands = nil
	m.Created = nil
}

// HasCommand reports whether any recorded command starts with the given arguments.
func (m *MockExecutor) HasCommand(args ...string) bool {
	want := strings.Join(args, " ")
	for _, c := range m.Commands {
		if strings.HasPrefix(strings.Join(c.Args, " "), want) {
			return true
		}
	}
	return false
}

// NewMockKubectl returns a Kubectl client wired to exec without path validators.
func NewMockKubectl(exec *MockExecutor) *Kubectl {
	return &Kubectl{exec: exec, validators: []ExecValidator{NoControlChars()}, logger: zap.NewNop()}
}
