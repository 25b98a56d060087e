package effects

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
)

// basePass draws the scene background and meshes.
type basePass struct {
	targets *targetSet
}

var _ stage = &basePass{}

func (p *basePass) Kind() PassKind {
	return PassBase
}

func (p *basePass) Size() (int, int) {
	return p.targets.size()
}

// buffers returns an empty set. The base pass draws straight into the pipeline's
// color targets.
func (p *basePass) buffers() *targetSet {
	return p.targets
}

func (p *basePass) render(f *frame, _, dst *renderer.Resource) error {
	clearColor := f.scene.ClearColor()
	if bg := f.scene.Background(); bg != nil && !bg.Released() {
		if err := f.r.Blit(renderer.EffectCopy, []*renderer.Resource{bg}, dst, renderer.EffectParams{}); err != nil {
			return fmt.Errorf("failed to draw background: %w", err)
		}
		if err := f.r.BeginPass(dst, nil); err != nil {
			return err
		}
	} else if err := f.r.BeginPass(dst, &clearColor); err != nil {
		return err
	}
	defer f.r.EndPass()

	var err error
	f.scene.Walk(func(n *scene.Node) bool {
		if err != nil || !n.Visible() || n.Disposed() {
			return false
		}
		err = drawNode(f, n, func(n *scene.Node) renderer.DrawParams {
			mat := n.Material()
			return renderer.DrawParams{
				Model:          n.WorldMatrix(),
				ViewProjection: f.viewProj,
				Color:          mat.Color,
				Lighting:       f.lighting,
				Unlit:          mat.Unlit,
			}
		})
		return err == nil
	})
	return err
}

