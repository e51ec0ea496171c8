package cluster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Kubectl implements Client by shelling out to kubectl.
type Kubectl struct {
	exec       Executor
	validators []ExecValidator
	logger     *zap.Logger
}

// NewKubectl creates a Kubectl client with the default argument validators.
func NewKubectl(exec Executor, logger *zap.Logger) (*Kubectl, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return &Kubectl{
		exec: exec,
		validators: []ExecValidator{
			AllowlistBins("kubectl"),
			NoControlChars(),
			PathUnder(root),
		},
		logger: logger,
	}, nil
}

// CommandArgs builds a kubectl command with the given arguments.
// Arguments are checked against the configured validators first.
func (k *Kubectl) CommandArgs(args []string) (Command, error) {
	return k.exec.Command("kubectl", args, k.validators...)
}

// Get implements Client.
func (k *Kubectl) Get(obj client.Object) error {
	gvk, err := kindOf(obj)
	if err != nil {
		return err
	}
	args := append([]string{"get", resourceArg(gvk), obj.GetName()}, namespaceArgs(obj.GetNamespace())...)
	args = append(args, "-o", "json")
	out, err := k.run(args, nil)
	if err != nil {
		return fmt.Errorf("get %s %s: %w", gvk.Kind, describe(obj), err)
	}
	if err := json.Unmarshal(out, obj); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrBackend, gvk.Kind, describe(obj), err)
	}
	return nil
}

// Apply implements Client.
func (k *Kubectl) Apply(obj client.Object, dryRun bool) error {
	gvk, err := kindOf(obj)
	if err != nil {
		return err
	}
	obj.GetObjectKind().SetGroupVersionKind(gvk)
	payload, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", gvk.Kind, describe(obj), err)
	}
	args := []string{"apply", "-f", "-"}
	if dryRun {
		args = append(args, "--dry-run=client")
	}
	k.logger.Debug("kubectl apply", zap.String("kind", gvk.Kind), zap.String("object", describe(obj)), zap.Bool("dryRun", dryRun))
	if _, err := k.run(args, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("apply %s %s: %w", gvk.Kind, describe(obj), err)
	}
	return nil
}

// Delete implements Client.
func (k *Kubectl) Delete(obj client.Object, ignoreNotFound bool) error {
	gvk, err := kindOf(obj)
	if err != nil {
		return err
	}
	args := append([]string{"delete", resourceArg(gvk), obj.GetName()}, namespaceArgs(obj.GetNamespace())...)
	if ignoreNotFound {
		args = append(args, "--ignore-not-found")
	}
	if _, err := k.run(args, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", gvk.Kind, describe(obj), err)
	}
	return nil
}

// List implements Client.
func (k *Kubectl) List(list client.ObjectList, opts ListOptions) error {
	gvk, err := kindOf(list)
	if err != nil {
		return err
	}
	gvk.Kind = strings.TrimSuffix(gvk.Kind, "List")
	args := []string{"get", resourceArg(gvk)}
	if opts.Selector != nil && !opts.Selector.Empty() {
		args = append(args, "-l", opts.Selector.String())
	}
	if opts.Namespace != "" {
		args = append(args, "-n", opts.Namespace)
	} else {
		args = append(args, "--all-namespaces")
	}
	args = append(args, "-o", "json")
	out, err := k.run(args, nil)
	if err != nil {
		return fmt.Errorf("list %s: %w", gvk.Kind, err)
	}
	if err := json.Unmarshal(out, list); err != nil {
		return fmt.Errorf("%w: decode %s list: %v", ErrBackend, gvk.Kind, err)
	}
	return nil
}

func (k *Kubectl) run(args []string, stdin io.Reader) ([]byte, error) {
	cmd, err := k.CommandArgs(args)
	if err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if stdin != nil {
		cmd.SetStdin(stdin)
	}
	if err := cmd.Run(); err != nil {
		return nil, classify(err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func classify(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if strings.Contains(detail, "(NotFound)") || strings.HasSuffix(detail, "not found") {
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	}
	if detail == "" {
		detail = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrBackend, detail)
}

// resourceArg renders a kind as kubectl's TYPE[.GROUP] argument.
func resourceArg(gvk schema.GroupVersionKind) string {
	resource := strings.ToLower(gvk.Kind)
	if gvk.Group != "" {
		resource += "." + gvk.Group
	}
	return resource
}

func namespaceArgs(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return []string{"-n", namespace}
}
