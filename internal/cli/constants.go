package cli

// Defaults for environment settings.
const (
	// DefaultNamespace is the operator namespace when CCO_NAMESPACE is unset.
	DefaultNamespace = "ckan-cloud"

	// DefaultCRDGroup is the API group of the operator's CRDs.
	DefaultCRDGroup = "stable.ckan.io"
)

// Cluster backends selectable with CCO_CLUSTER_BACKEND.
const (
	// BackendKubectl shells out to kubectl.
	BackendKubectl = "kubectl"

	// BackendAPI talks to the API server in-process.
	BackendAPI = "api"
)
