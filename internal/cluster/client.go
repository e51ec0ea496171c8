// Package cluster is the cluster-object collaborator: get, apply, delete and
// label-selector listing of Kubernetes objects, either by shelling out to
// kubectl or through an in-process API client.
package cluster

import (
	"errors"
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// Sentinel errors for cluster operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrBackend indicates the underlying kubectl or API call failed.
	ErrBackend = errors.New("cluster backend failure")

	// ErrPollExhausted indicates a bounded poll ran out of attempts.
	ErrPollExhausted = errors.New("poll attempts exhausted")
)

// Client is the narrow set of object primitives the operator needs.
// Calls block until the backend answers; there is no cancellation hook.
type Client interface {
	// Get fills obj, whose name and namespace must be set. Returns ErrNotFound
	// when the object does not exist.
	Get(obj client.Object) error

	// Apply creates or updates obj. With dryRun the backend validates only.
	Apply(obj client.Object, dryRun bool) error

	// Delete removes obj. A missing object is ErrNotFound unless ignoreNotFound.
	Delete(obj client.Object, ignoreNotFound bool) error

	// List fills list with objects matching opts.
	List(list client.ObjectList, opts ListOptions) error
}

// ListOptions narrows a List call. An empty Namespace lists across all namespaces.
type ListOptions struct {
	Namespace string
	Selector  labels.Selector
}

// GetOptional is Get for callers that treat absence as a normal outcome.
func GetOptional(c Client, obj client.Object) (bool, error) {
	err := c.Get(obj)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Scheme knows every kind the operator reads or writes.
var Scheme = newScheme()

func newScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(s))
	utilruntime.Must(apiextensionsv1.AddToScheme(s))
	return s
}

// kindOf resolves the group/version/kind of obj, preferring what the object
// itself declares (unstructured custom resources) over the scheme.
func kindOf(obj runtime.Object) (schema.GroupVersionKind, error) {
	if gvk := obj.GetObjectKind().GroupVersionKind(); gvk.Kind != "" {
		return gvk, nil
	}
	gvk, err := apiutil.GVKForObject(obj, Scheme)
	if err != nil {
		return schema.GroupVersionKind{}, fmt.Errorf("resolve kind: %w", err)
	}
	return gvk, nil
}

func describe(obj client.Object) string {
	if ns := obj.GetNamespace(); ns != "" {
		return ns + "/" + obj.GetName()
	}
	return obj.GetName()
}
