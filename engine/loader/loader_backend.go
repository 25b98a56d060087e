package loader

import (
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
)

// LoaderBackendType identifies the bundle format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loaderBackend decodes a fetched bundle into CPU-side model data.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Decode imports a model from the bundle bytes.
	//
	// Parameters:
	//   - name: the fallback model name
	//   - data: the bundle bytes
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if decoding fails
	Decode(name string, data []byte) (*model.ImportedModel, error)
}

// newLoaderBackend returns the backend for the given type.
func newLoaderBackend(t LoaderBackendType) loaderBackend {
	switch t {
	default:
		return newGLTFLoaderBackend()
	}
}
