package cluster

import (
	"context"
	"fmt"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"
)

// APIClient implements Client on top of a controller-runtime client.
type APIClient struct {
	client client.Client
	logger *zap.Logger
}

// NewAPIClient wraps an existing controller-runtime client.
func NewAPIClient(c client.Client, logger *zap.Logger) *APIClient {
	return &APIClient{client: c, logger: logger}
}

// NewAPIClientFromKubeconfig builds an APIClient from a kubeconfig path, or
// from the default loading rules when kubeconfig is empty.
func NewAPIClientFromKubeconfig(kubeconfig string, logger *zap.Logger) (*APIClient, error) {
	ctrllog.SetLogger(zapr.NewLogger(logger))

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	c, err := client.New(restConfig, client.Options{Scheme: Scheme})
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	return NewAPIClient(c, logger), nil
}

// Get implements Client.
func (a *APIClient) Get(obj client.Object) error {
	if err := a.client.Get(context.TODO(), client.ObjectKeyFromObject(obj), obj); err != nil {
		return wrapAPIError("get", obj, err)
	}
	return nil
}

// Apply implements Client. It creates the object when missing and otherwise
// updates it in place, carrying over the live resourceVersion.
func (a *APIClient) Apply(obj client.Object, dryRun bool) error {
	var opts []client.CreateOption
	var updateOpts []client.UpdateOption
	if dryRun {
		opts = append(opts, client.DryRunAll)
		updateOpts = append(updateOpts, client.DryRunAll)
	}

	existing, ok := obj.DeepCopyObject().(client.Object)
	if !ok {
		return fmt.Errorf("%w: %T is not a client.Object", ErrBackend, obj)
	}
	err := a.client.Get(context.TODO(), client.ObjectKeyFromObject(obj), existing)
	switch {
	case apierrors.IsNotFound(err):
		a.logger.Debug("create", zap.String("object", describe(obj)))
		if err := a.client.Create(context.TODO(), obj, opts...); err != nil {
			return wrapAPIError("create", obj, err)
		}
		return nil
	case err != nil:
		return wrapAPIError("get", obj, err)
	}

	obj.SetResourceVersion(existing.GetResourceVersion())
	a.logger.Debug("update", zap.String("object", describe(obj)))
	if err := a.client.Update(context.TODO(), obj, updateOpts...); err != nil {
		return wrapAPIError("update", obj, err)
	}
	return nil
}

// Delete implements Client.
func (a *APIClient) Delete(obj client.Object, ignoreNotFound bool) error {
	err := a.client.Delete(context.TODO(), obj)
	if ignoreNotFound && apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return wrapAPIError("delete", obj, err)
	}
	return nil
}

// List implements Client.
func (a *APIClient) List(list client.ObjectList, opts ListOptions) error {
	var listOpts []client.ListOption
	if opts.Namespace != "" {
		listOpts = append(listOpts, client.InNamespace(opts.Namespace))
	}
	if opts.Selector != nil {
		listOpts = append(listOpts, client.MatchingLabelsSelector{Selector: opts.Selector})
	}
	if err := a.client.List(context.TODO(), list, listOpts...); err != nil {
		return fmt.Errorf("%w: list: %v", ErrBackend, err)
	}
	return nil
}

func wrapAPIError(verb string, obj client.Object, err error) error {
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w: %v", verb, describe(obj), ErrNotFound, err)
	}
	return fmt.Errorf("%s %s: %w: %v", verb, describe(obj), ErrBackend, err)
}
