package environment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/camera"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Placement is where an actor stands in every environment.
type Placement struct {
	Position mgl32.Vec3
	Scale    float32
}

var (
	// WinnerPlacement puts the winner left of center.
	WinnerPlacement = Placement{Position: mgl32.Vec3{-1, 0, 0}, Scale: 0.5}

	// LoserPlacement puts the loser right of center.
	LoserPlacement = Placement{Position: mgl32.Vec3{1, 0, 0}, Scale: 0.5}
)

// Environment is a built location: a populated scene and the camera looking at it.
type Environment struct {
	// Location is the resolved location name, or the requested name when unknown.
	Location string

	// Known is false when the empty fallback scene was used.
	Known bool

	Scene  scene.Scene
	Camera camera.Camera
}

// builder is the implementation of the Builder interface.
type builder struct {
	logger   *zap.Logger
	renderer renderer.Renderer
	fetcher  loader.Fetcher
	resolver loader.AssetResolver
	catalog  *Catalog
	clear    common.Color
}

// Builder creates the scene and camera for a location.
type Builder interface {
	// Build creates the environment for a location. Unknown locations get an empty scene with
	// only the base rig. A background that cannot be fetched or decoded is logged and skipped.
	//
	// Parameters:
	//   - ctx: cancels the background fetch
	//   - location: the location name
	//
	// Returns:
	//   - *Environment: the environment; the caller owns its scene
	//   - error: error if a prop cannot be uploaded
	Build(ctx context.Context, location string) (*Environment, error)
}

var _ Builder = &builder{}

// NewBuilder creates a Builder that uploads props through r.
//
// Parameters:
//   - r: the renderer that owns the prop meshes and background
//   - options: a variadic list of BuilderOption functions
//
// Returns:
//   - Builder: the builder
func NewBuilder(r renderer.Renderer, options ...BuilderOption) Builder {
	b := &builder{
		logger:   zap.NewNop(),
		renderer: r,
		resolver: loader.DefaultAssetResolver(),
		catalog:  DefaultCatalog(),
		clear:    common.Black,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *builder) Build(ctx context.Context, location string) (*Environment, error) {
	if b.renderer == nil {
		return nil, errors.New("environment: renderer is required")
	}

	env := &Environment{Location: location}
	lights := []light.Light{baseLight()}
	var nodes []*scene.Node
	var background string

	loc, ok := b.catalog.Lookup(location)
	if ok {
		env.Location = loc.Name
		env.Known = true
		background = loc.Background

		if loc.Ambient != nil {
			color, _ := common.ParseHexColor(loc.Ambient.Color)
			lights = append(lights, light.NewLight(light.LightTypeAmbient,
				light.WithColor(color),
				light.WithIntensity(loc.Ambient.Intensity),
			))
		}
		for i, spec := range loc.Lights {
			l, err := spec.build()
			if err != nil {
				return nil, fmt.Errorf("location %q light %d: %w", loc.Name, i, err)
			}
			lights = append(lights, l)
		}

		var err error
		nodes, err = b.props(loc)
		if err != nil {
			return nil, err
		}
	} else {
		b.logger.Info("unknown location, using empty scene", zap.String("location", location))
	}

	s := scene.NewScene(
		scene.WithName(env.Location),
		scene.WithLights(lights...),
		scene.WithNodes(nodes...),
		scene.WithClearColor(b.clear),
		scene.WithLogger(b.logger),
	)
	if background != "" {
		b.loadBackground(ctx, s, background)
	}

	w, h := b.renderer.Size()
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 5}))
	cam.SetViewport(w, h)

	env.Scene = s
	env.Camera = cam
	b.logger.Debug("environment built",
		zap.String("location", env.Location),
		zap.Bool("known", env.Known),
		zap.Int("props", len(nodes)),
		zap.Int("lights", len(lights)),
	)
	return env, nil
}

// baseLight is the white key light every environment gets.
func baseLight() light.Light {
	return light.NewLight(light.LightTypePoint,
		light.WithColor(common.White),
		light.WithIntensity(0.8),
		light.WithPosition(10, 10, 10),
	)
}

// props uploads the location's props, releasing them all if one fails.
func (b *builder) props(loc *Location) ([]*scene.Node, error) {
	nodes := make([]*scene.Node, 0, len(loc.Props))
	for _, p := range loc.Props {
		mesh, color, err := p.mesh()
		if err == nil {
			var res *renderer.Resource
			res, err = b.renderer.CreateMesh(loc.Name+"/"+p.Name, mesh)
			if err == nil {
				n := scene.NewNode(p.Name,
					scene.WithMesh(res, mesh.BoundingMin, mesh.BoundingMax),
					scene.WithMaterial(scene.Material{Color: color, Unlit: true}),
				)
				n.SetPosition(mgl32.Vec3(p.Position))
				nodes = append(nodes, n)
				continue
			}
		}
		for _, n := range nodes {
			n.Dispose()
		}
		return nil, fmt.Errorf("failed to create prop %q: %w", p.Name, err)
	}
	return nodes, nil
}

// loadBackground fetches, scales and uploads the background image. Failures are logged.
func (b *builder) loadBackground(ctx context.Context, s scene.Scene, name string) {
	if b.fetcher == nil {
		return
	}
	url := b.resolver.BackgroundURL(name)
	log := b.logger.With(zap.String("url", url))

	data, err := b.fetcher.Fetch(ctx, url, nil)
	if err != nil {
		log.Warn("failed to fetch background", zap.Error(err))
		return
	}
	tex := &common.ImportedTexture{Name: name, Data: data}
	staging, err := tex.Decode(b.renderer.MaxTextureDimension())
	if err != nil {
		log.Warn("failed to decode background", zap.Error(err))
		return
	}
	res, err := b.renderer.CreateTexture("background/"+name, staging)
	if err != nil {
		log.Warn("failed to upload background", zap.Error(err))
		return
	}
	if err := s.SetBackground(res); err != nil {
		res.Release()
		log.Warn("failed to set background", zap.Error(err))
		return
	}
	log.Debug("background loaded", zap.Uint32("width", staging.Width), zap.Uint32("height", staging.Height))
}
