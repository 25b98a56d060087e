package effects

import (
	"math"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
)

// highlightPass renders the selected nodes into a silhouette mask and outlines it.
type highlightPass struct {
	selected []*scene.Node
	params   HighlightParams
	targets  *targetSet
}

var _ HighlightPass = &highlightPass{}

func newHighlightPass(selected []*scene.Node, params HighlightParams) *highlightPass {
	return &highlightPass{
		selected: selected,
		params:   params,
		targets:  newTargetSet("highlight_mask"),
	}
}

func (p *highlightPass) Kind() PassKind {
	return PassHighlight
}

func (p *highlightPass) Size() (int, int) {
	return p.targets.size()
}

func (p *highlightPass) Selected() []*scene.Node {
	out := make([]*scene.Node, len(p.selected))
	copy(out, p.selected)
	return out
}

func (p *highlightPass) Params() HighlightParams {
	return p.params
}

func (p *highlightPass) buffers() *targetSet {
	return p.targets
}

func (p *highlightPass) render(f *frame, src, dst *renderer.Resource) error {
	mask := p.targets.get(0)
	if err := f.r.BeginPass(mask, &common.Color{0, 0, 0, 0}); err != nil {
		return err
	}
	for _, n := range p.selected {
		err := drawSubtree(f, n, func(n *scene.Node) renderer.DrawParams {
			return renderer.DrawParams{
				Model:          n.WorldMatrix(),
				ViewProjection: f.viewProj,
				Color:          common.White,
				Unlit:          true,
			}
		})
		if err != nil {
			f.r.EndPass()
			return err
		}
	}
	f.r.EndPass()

	return f.r.Blit(renderer.EffectOutline, []*renderer.Resource{src, mask}, dst, renderer.EffectParams{
		Strength:        p.pulse(f.elapsed),
		Thickness:       p.params.EdgeThickness,
		Glow:            p.params.EdgeGlow,
		EdgeColor:       p.params.VisibleEdgeColor,
		HiddenEdgeColor: p.params.HiddenEdgeColor,
	})
}

// pulse returns the edge strength at time t. A zero period disables pulsing.
func (p *highlightPass) pulse(t float32) float32 {
	if p.params.PulsePeriod <= 0 {
		return p.params.EdgeStrength
	}
	phase := 2 * math.Pi * float64(t) / float64(p.params.PulsePeriod)
	return p.params.EdgeStrength * float32(0.5+0.5*math.Cos(phase))
}

