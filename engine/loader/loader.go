package loader

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/animator"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// LoadRequest describes one actor to load.
type LoadRequest struct {
	// ActorID names the actor; the model's root node is named after it.
	ActorID string

	// AssetURL is the GLB bundle URL passed to the Fetcher.
	AssetURL string

	// InitialPosition is applied to the model's root node.
	InitialPosition mgl32.Vec3

	// InitialScale is applied uniformly to the model's root node. Zero means 1.
	InitialScale float32

	// ClipsToStart names ambient clips the caller starts once the actor is registered.
	ClipsToStart []string
}

// LoadResult is a successfully loaded actor. The caller owns ModelNode until it is
// attached to a scene; after that the scene disposes it.
type LoadResult struct {
	ActorID   string
	ModelNode *scene.Node
	Mixer     animator.Mixer

	// Model is the decoded CPU-side data the node tree was built from.
	Model *model.ImportedModel

	// ClipsToStart is copied from the request.
	ClipsToStart []string
}

// Release disposes the model node if it was never attached to a parent. It returns the
// number of GPU resources released.
func (r *LoadResult) Release() int {
	if r == nil || r.ModelNode == nil || r.ModelNode.Parent() != nil {
		return 0
	}
	if r.Mixer != nil {
		r.Mixer.ClearListeners()
	}
	return r.ModelNode.Dispose()
}

// assetLoader is the implementation of the AssetLoader interface.
type assetLoader struct {
	mu       *sync.Mutex
	logger   *zap.Logger
	renderer renderer.Renderer
	fetcher  Fetcher
	backend  loaderBackend

	backendType  LoaderBackendType
	looping      map[string]bool
	workers      int
	pool         worker.DynamicWorkerPool
	nextTaskID   int
	released     bool
	maxTextureDm uint32
}

// AssetLoader loads actor bundles into owned scene-graph subtrees with their animation mixers.
type AssetLoader interface {
	// Load fetches, decodes and uploads one actor. Progress is non-decreasing and reaches
	// TotalUnits only immediately before a successful return. On failure every GPU resource
	// created by the call is released first.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - req: the actor to load
	//   - onProgress: optional progress callback
	//
	// Returns:
	//   - *LoadResult: the loaded actor
	//   - error: an *AssetLoadError on failure
	Load(ctx context.Context, req LoadRequest, onProgress ProgressFunc) (*LoadResult, error)

	// LoadAll loads every request concurrently on the loader's worker pool and joins them
	// all-or-nothing. When any load fails, the successful results are released and the
	// returned error is the AssetLoadError of the first failing request in request order,
	// joined with the causes of any others.
	//
	// Parameters:
	//   - ctx: cancels every load
	//   - reqs: the actors to load
	//   - onProgress: optional progress callback; calls are serialized
	//
	// Returns:
	//   - []*LoadResult: results in request order
	//   - error: error if any load fails
	LoadAll(ctx context.Context, reqs []LoadRequest, onProgress ProgressFunc) ([]*LoadResult, error)

	// Release stops the worker pool. Loads started afterwards fail with ErrLoaderReleased.
	Release()
}

var _ AssetLoader = &assetLoader{}

// NewAssetLoader creates an AssetLoader that uploads through r and reads through f.
//
// Parameters:
//   - r: the renderer that owns uploaded meshes and textures
//   - f: the asset fetcher
//   - options: a variadic list of LoaderBuilderOption functions
//
// Returns:
//   - AssetLoader: the loader
//   - error: error if r or f is nil
func NewAssetLoader(r renderer.Renderer, f Fetcher, options ...LoaderBuilderOption) (AssetLoader, error) {
	if r == nil {
		return nil, errors.New("loader: renderer is required")
	}
	if f == nil {
		return nil, errors.New("loader: fetcher is required")
	}
	l := &assetLoader{
		mu:       &sync.Mutex{},
		logger:   zap.NewNop(),
		renderer: r,
		fetcher:  f,
		looping:  make(map[string]bool),
		workers:  min(2, runtime.NumCPU()),
	}
	for _, option := range options {
		option(l)
	}
	l.backend = newLoaderBackend(l.backendType)
	l.maxTextureDm = r.MaxTextureDimension()
	l.pool = worker.NewDynamicWorkerPool(max(1, l.workers), 16, 1*time.Second)
	return l, nil
}

func (l *assetLoader) Load(ctx context.Context, req LoadRequest, onProgress ProgressFunc) (*LoadResult, error) {
	l.mu.Lock()
	released := l.released
	l.mu.Unlock()
	if released {
		return nil, newAssetLoadError(req, ErrLoaderReleased)
	}

	log := l.logger.With(zap.String("actor", req.ActorID), zap.String("url", req.AssetURL))
	log.Debug("loading actor")

	res, err := l.load(ctx, req, newProgressReporter(req.ActorID, onProgress))
	if err != nil {
		log.Warn("actor load failed", zap.Error(err))
		return nil, newAssetLoadError(req, err)
	}
	log.Debug("actor loaded",
		zap.Int("nodes", len(res.Model.Nodes)),
		zap.Strings("clips", res.Mixer.Clips()),
	)
	return res, nil
}

func (l *assetLoader) load(ctx context.Context, req LoadRequest, rep *progressReporter) (*LoadResult, error) {
	rep.report(0)
	data, err := l.fetcher.Fetch(ctx, req.AssetURL, func(loaded, total int64) {
		rep.report(fetchProgress(loaded, total))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle: %w", err)
	}
	rep.report(fetchUnits)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imported, err := l.backend.Decode(req.ActorID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	rep.report(fetchUnits + decodeUnits)

	up := &uploader{renderer: l.renderer, maxTextureDim: l.maxTextureDm, actorID: req.ActorID}
	root, nodes, err := up.buildTree(ctx, imported, rep)
	if err != nil {
		up.releaseAll()
		return nil, err
	}

	root.SetPosition(req.InitialPosition)
	if req.InitialScale != 0 {
		root.SetUniformScale(req.InitialScale)
	}

	mixer, err := animator.NewMixer(l.clipsFor(imported), nodes, animator.WithLogger(l.logger))
	if err != nil {
		up.releaseAll()
		return nil, fmt.Errorf("failed to create mixer: %w", err)
	}

	if err := ctx.Err(); err != nil {
		up.releaseAll()
		return nil, err
	}

	rep.complete()
	return &LoadResult{
		ActorID:      req.ActorID,
		ModelNode:    root,
		Mixer:        mixer,
		Model:        imported,
		ClipsToStart: append([]string(nil), req.ClipsToStart...),
	}, nil
}

// clipsFor copies the imported clips, marking the configured looping ones.
func (l *assetLoader) clipsFor(m *model.ImportedModel) []*model.AnimationClip {
	clips := make([]*model.AnimationClip, 0, len(m.Animations))
	for _, c := range m.Animations {
		cp := *c
		cp.Loop = c.Loop || l.looping[c.Name]
		clips = append(clips, &cp)
	}
	return clips
}

func (l *assetLoader) LoadAll(ctx context.Context, reqs []LoadRequest, onProgress ProgressFunc) ([]*LoadResult, error) {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		if len(reqs) == 0 {
			return nil, ErrLoaderReleased
		}
		return nil, newAssetLoadError(reqs[0], ErrLoaderReleased)
	}
	baseID := l.nextTaskID
	l.nextTaskID += len(reqs)
	l.mu.Unlock()

	// Progress callbacks arrive from every worker; serialize them for the caller.
	var progressMu sync.Mutex
	serialized := func(actorID string, p Progress) {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		onProgress(actorID, p)
	}

	results := make([]*LoadResult, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		idx := i
		r := req
		l.pool.SubmitTask(worker.Task{
			ID:      baseID + idx,
			Payload: r.ActorID,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if p := recover(); p != nil {
						errs[idx] = newAssetLoadError(r, fmt.Errorf("panic during load: %v", p))
					}
				}()
				results[idx], errs[idx] = l.Load(ctx, r, serialized)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	var primary *AssetLoadError
	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if primary == nil {
			primary = newAssetLoadError(reqs[i], err)
		}
		failed = append(failed, err)
	}
	if primary == nil {
		return results, nil
	}

	for _, res := range results {
		res.Release()
	}
	if len(failed) > 1 {
		return nil, &AssetLoadError{
			URL:     primary.URL,
			ActorID: primary.ActorID,
			Cause:   errors.Join(primary.Cause, errors.Join(failed[1:]...)),
		}
	}
	return nil, primary
}

func (l *assetLoader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	l.pool.Stop()
}

// uploader creates GPU resources for one load and remembers them for cleanup.
type uploader struct {
	renderer      renderer.Renderer
	maxTextureDim uint32
	actorID       string
	created       []*renderer.Resource
	staging       map[int]*common.TextureStagingData
}

func (u *uploader) releaseAll() {
	for _, res := range u.created {
		res.Release()
	}
	u.created = nil
}

// buildTree creates one scene node per imported node under a root named after the actor.
// Each node gets its own mesh and texture upload so the subtree owns its resources outright.
func (u *uploader) buildTree(ctx context.Context, m *model.ImportedModel, rep *progressReporter) (*scene.Node, []*scene.Node, error) {
	total := 0
	for _, n := range m.Nodes {
		if n.MeshIndex >= 0 {
			total++
		}
	}
	done := 0

	nodes := make([]*scene.Node, len(m.Nodes))
	for i, in := range m.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		opts := []scene.NodeOption{scene.WithTransform(in.Transform)}
		if in.MeshIndex >= 0 {
			mesh := m.Meshes[in.MeshIndex]
			label := fmt.Sprintf("%s/%s/mesh", u.actorID, in.Name)
			res, err := u.renderer.CreateMesh(label, mesh)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to upload mesh %q: %w", mesh.Name, err)
			}
			u.created = append(u.created, res)
			opts = append(opts, scene.WithMesh(res, mesh.BoundingMin, mesh.BoundingMax))

			mat, err := u.material(m, in)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, scene.WithMaterial(mat))

			done++
			rep.report(uploadProgress(done, total))
		}
		nodes[i] = scene.NewNode(in.Name, opts...)
	}

	for i, in := range m.Nodes {
		for _, c := range in.Children {
			nodes[i].Add(nodes[c])
		}
	}

	root := scene.NewNode(u.actorID)
	for _, r := range m.Roots {
		root.Add(nodes[r])
	}
	return root, nodes, nil
}

// material builds the node's material, uploading its diffuse texture when it has one.
func (u *uploader) material(m *model.ImportedModel, in model.ImportedNode) (scene.Material, error) {
	mat := scene.Material{Color: common.White}
	if in.MaterialIndex < 0 {
		return mat, nil
	}
	src := m.Materials[in.MaterialIndex]
	mat.Color = src.BaseColor
	if src.DiffuseTexture == nil {
		return mat, nil
	}

	if u.staging == nil {
		u.staging = make(map[int]*common.TextureStagingData)
	}
	staging, ok := u.staging[in.MaterialIndex]
	if !ok {
		decoded, err := src.DiffuseTexture.Decode(u.maxTextureDim)
		if err != nil {
			return mat, fmt.Errorf("failed to decode texture of material %q: %w", src.Name, err)
		}
		staging = &decoded
		u.staging[in.MaterialIndex] = staging
	}

	res, err := u.renderer.CreateTexture(fmt.Sprintf("%s/%s/diffuse", u.actorID, in.Name), *staging)
	if err != nil {
		return mat, fmt.Errorf("failed to upload texture of material %q: %w", src.Name, err)
	}
	u.created = append(u.created, res)
	mat.Texture = res
	return mat, nil
}
