package crds

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/saga"
)

// Instance is the resolved identity of one custom resource instance.
type Instance struct {
	Registration
	Name     string
	Resource string
	Labels   map[string]string
}

// Resolve derives the identity of instance of kind singular.
func (m *Manager) Resolve(singular, instance string) (Instance, error) {
	reg, err := m.Lookup(singular)
	if err != nil {
		return Instance{}, err
	}
	name, err := m.ResourceName(singular, instance, true)
	if err != nil {
		return Instance{}, err
	}
	lbls, err := m.ResourceLabels(singular, instance, nil)
	if err != nil {
		return Instance{}, err
	}
	return Instance{Registration: reg, Name: instance, Resource: name, Labels: lbls}, nil
}

// Object builds the custom resource for inst with the given spec.
func (m *Manager) Object(inst Instance, spec map[string]any) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{}}
	obj.SetGroupVersionKind(schema.GroupVersionKind{Group: m.group, Version: Version, Kind: inst.Kind})
	obj.SetName(inst.Resource)
	obj.SetNamespace(m.store.Namespace())
	obj.SetLabels(inst.Labels)
	if spec != nil {
		obj.Object["spec"] = spec
	}
	return obj
}

// Get fetches the live custom resource of an instance.
func (m *Manager) Get(singular, instance string) (*unstructured.Unstructured, error) {
	inst, err := m.Resolve(singular, instance)
	if err != nil {
		return nil, err
	}
	obj := m.Object(inst, nil)
	if err := m.client.Get(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (m *Manager) identityRef(inst Instance) config.Ref {
	return config.ConfigMap(inst.Resource, "")
}

// CreateInstance records the identity of an instance and applies its custom
// resource. If applying fails the identity record is removed again.
func (m *Manager) CreateInstance(singular, instance string, spec map[string]any) (saga.Result, error) {
	inst, err := m.Resolve(singular, instance)
	if err != nil {
		return saga.Result{}, err
	}
	obj := m.Object(inst, spec)
	ref := m.identityRef(inst)

	return m.runner.Run(saga.Saga{
		Name: "create-" + inst.Resource,
		Steps: []saga.Step{
			{
				Name: "record-identity",
				Do: func() error {
					_, err := m.store.Set(ref, config.SetRequest{
						Values: map[string]string{
							"singular": inst.Singular,
							"instance": inst.Name,
							"kind":     inst.Kind,
							"resource": inst.Resource,
						},
						ExtraLabels: inst.Labels,
					})
					return err
				},
				Compensate: func() error { return m.store.Delete(ref, true) },
			},
			{
				Name: "apply-resource",
				Do: func() error {
					if err := m.client.Apply(obj, false); err != nil {
						return fmt.Errorf("apply %s %s: %w", inst.Kind, inst.Resource, err)
					}
					return nil
				},
				Compensate: func() error { return m.client.Delete(m.Object(inst, nil), true) },
			},
		},
	})
}

// DeleteInstance removes the custom resource of an instance and every config
// object carrying its correlation labels. Missing pieces are not an error, so
// an interrupted deletion can be rerun.
func (m *Manager) DeleteInstance(singular, instance string) (saga.Result, error) {
	inst, err := m.Resolve(singular, instance)
	if err != nil {
		return saga.Result{}, err
	}
	return m.runner.Run(saga.Saga{
		Name: "delete-" + inst.Resource,
		Steps: []saga.Step{
			{
				Name: "delete-resource",
				Do:   func() error { return m.client.Delete(m.Object(inst, nil), true) },
			},
			{
				Name: "delete-config",
				Do: func() error {
					_, err := m.store.DeleteByExtraLabels(inst.Labels)
					return err
				},
			},
			{
				Name: "clear-create-journal",
				Do: func() error {
					ref, err := m.runner.JournalRef("create-" + inst.Resource)
					if err != nil {
						return err
					}
					return m.store.Delete(ref, true)
				},
			},
		},
	})
}
