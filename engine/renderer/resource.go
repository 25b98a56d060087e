package renderer

// Resource is a GPU object created through a Renderer. It has an explicit lifetime:
// the owner must call Release exactly once when done. Repeated calls are no-ops.
type Resource struct {
	owner      *renderer
	handle     Handle
	kind       ResourceKind
	label      string
	width      int
	height     int
	indexCount int
	released   bool // guarded by owner.mu
}

// Handle returns the backend handle of the resource.
func (r *Resource) Handle() Handle {
	if r == nil {
		return SurfaceHandle
	}
	return r.handle
}

// Kind returns the resource kind.
func (r *Resource) Kind() ResourceKind {
	return r.kind
}

// Label returns the debug label the resource was created with.
func (r *Resource) Label() string {
	return r.label
}

// Size returns the pixel size of a texture or render target. Meshes report 0, 0.
func (r *Resource) Size() (int, int) {
	return r.width, r.height
}

// IndexCount returns the number of indices of a mesh.
func (r *Resource) IndexCount() int {
	return r.indexCount
}

// Released reports whether Release has been called.
func (r *Resource) Released() bool {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	return r.released
}

// Release frees the underlying GPU object.
func (r *Resource) Release() {
	if r == nil {
		return
	}
	r.owner.releaseResource(r)
}
