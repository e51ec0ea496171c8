package config

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"ckan-cloud-operator/internal/cluster"
)

// backend is the physical storage for one Kind.
type backend interface {
	fetch(c cluster.Client, key Key) (Object, error)
	persist(c cluster.Client, obj Object) error
	remove(c cluster.Client, key Key, existsOK bool) error
	list(c cluster.Client, opts cluster.ListOptions) ([]Object, error)
}

func backendFor(kind Kind) backend {
	switch kind {
	case KindSecret:
		return secretBackend{}
	default:
		return configMapBackend{}
	}
}

func objectMeta(key Key, obj Object) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:        key.Name,
		Namespace:   key.Namespace,
		Labels:      obj.Labels,
		Annotations: obj.Annotations,
	}
}

func fromMeta(kind Kind, meta metav1.ObjectMeta, values map[string]string) Object {
	if values == nil {
		values = map[string]string{}
	}
	return Object{
		Key:         Key{Kind: kind, Namespace: meta.Namespace, Name: meta.Name},
		Labels:      meta.Labels,
		Annotations: meta.Annotations,
		Values:      values,
	}
}

type secretBackend struct{}

func (secretBackend) fetch(c cluster.Client, key Key) (Object, error) {
	s := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace}}
	if err := c.Get(s); err != nil {
		return Object{}, err
	}
	return fromMeta(KindSecret, s.ObjectMeta, decodeSecret(s)), nil
}

func (secretBackend) persist(c cluster.Client, obj Object) error {
	data := make(map[string][]byte, len(obj.Values))
	for k, v := range obj.Values {
		data[k] = []byte(v)
	}
	s := &corev1.Secret{
		ObjectMeta: objectMeta(obj.Key, obj),
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
	return c.Apply(s, false)
}

func (secretBackend) remove(c cluster.Client, key Key, existsOK bool) error {
	return c.Delete(&corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace}}, existsOK)
}

func (secretBackend) list(c cluster.Client, opts cluster.ListOptions) ([]Object, error) {
	var list corev1.SecretList
	if err := c.List(&list, opts); err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, fromMeta(KindSecret, list.Items[i].ObjectMeta, decodeSecret(&list.Items[i])))
	}
	return out, nil
}

// decodeSecret merges Data with StringData, which only appears on objects
// that were never round-tripped through the API server.
func decodeSecret(s *corev1.Secret) map[string]string {
	values := make(map[string]string, len(s.Data)+len(s.StringData))
	for k, v := range s.Data {
		values[k] = string(v)
	}
	for k, v := range s.StringData {
		values[k] = v
	}
	return values
}

type configMapBackend struct{}

func (configMapBackend) fetch(c cluster.Client, key Key) (Object, error) {
	cm := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace}}
	if err := c.Get(cm); err != nil {
		return Object{}, err
	}
	return fromMeta(KindConfigMap, cm.ObjectMeta, cm.Data), nil
}

func (configMapBackend) persist(c cluster.Client, obj Object) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: objectMeta(obj.Key, obj),
		Data:       obj.Values,
	}
	return c.Apply(cm, false)
}

func (configMapBackend) remove(c cluster.Client, key Key, existsOK bool) error {
	return c.Delete(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace}}, existsOK)
}

func (configMapBackend) list(c cluster.Client, opts cluster.ListOptions) ([]Object, error) {
	var list corev1.ConfigMapList
	if err := c.List(&list, opts); err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, fromMeta(KindConfigMap, list.Items[i].ObjectMeta, list.Items[i].Data))
	}
	return out, nil
}
