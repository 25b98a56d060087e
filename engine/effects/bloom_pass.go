package effects

import (
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
)

// Target indices of the bloom chain.
const (
	bloomBright = iota
	bloomBlurH
	bloomBlurV
)

// bloomPass extracts bright texels, blurs them separably and adds them back.
type bloomPass struct {
	params  BloomParams
	targets *targetSet
}

var _ BloomPass = &bloomPass{}

func newBloomPass(params BloomParams) *bloomPass {
	return &bloomPass{
		params:  params,
		targets: newTargetSet("bloom_bright", "bloom_blur_h", "bloom_blur_v"),
	}
}

func (p *bloomPass) Kind() PassKind {
	return PassBloom
}

func (p *bloomPass) Size() (int, int) {
	return p.targets.size()
}

func (p *bloomPass) Params() BloomParams {
	return p.params
}

func (p *bloomPass) buffers() *targetSet {
	return p.targets
}

func (p *bloomPass) render(f *frame, src, dst *renderer.Resource) error {
	bright := p.targets.get(bloomBright)
	blurH := p.targets.get(bloomBlurH)
	blurV := p.targets.get(bloomBlurV)

	// Radius is a percentage of the shorter side; the blur kernel takes it in texels.
	w, h := p.targets.size()
	radius := p.params.Radius * float32(min(w, h)) / 100

	steps := []struct {
		effect renderer.Effect
		inputs []*renderer.Resource
		target *renderer.Resource
		params renderer.EffectParams
	}{
		{renderer.EffectThreshold, []*renderer.Resource{src}, bright, renderer.EffectParams{Threshold: p.params.Threshold}},
		{renderer.EffectBlur, []*renderer.Resource{bright}, blurH, renderer.EffectParams{Radius: radius, Direction: [2]float32{1, 0}}},
		{renderer.EffectBlur, []*renderer.Resource{blurH}, blurV, renderer.EffectParams{Radius: radius, Direction: [2]float32{0, 1}}},
		{renderer.EffectComposite, []*renderer.Resource{src, blurV}, dst, renderer.EffectParams{Strength: p.params.Strength}},
	}
	for _, s := range steps {
		if err := f.r.Blit(s.effect, s.inputs, s.target, s.params); err != nil {
			return err
		}
	}
	return nil
}

