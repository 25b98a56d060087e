package light

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/stretchr/testify/assert"
)

func TestSummarizeSumsAmbientAndPicksStrongestKey(t *testing.T) {
	lights := []Light{
		NewLight(LightTypeAmbient, WithColor(common.Color{1, 0, 0, 1}), WithIntensity(0.5)),
		NewLight(LightTypeAmbient, WithColor(common.Color{0, 1, 0, 1}), WithIntensity(0.25)),
		NewLight(LightTypePoint, WithPosition(0, 10, 0), WithIntensity(0.8)),
		NewLight(LightTypeDirectional, WithDirection(-1, 0, 0), WithIntensity(1.5), WithColor(common.White)),
		NewLight(LightTypeSpot, WithPosition(0, 0, 5), WithIntensity(9), WithEnabled(false)),
	}

	got := Summarize(lights)

	assert.InDeltaSlice(t, []float32{0.5, 0.25, 0}, got.Ambient[:], 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, got.KeyDirection[:], 1e-6)
	assert.InDeltaSlice(t, []float32{1.5, 1.5, 1.5}, got.KeyColor[:], 1e-6)
}

func TestSummarizeEmptyRigPointsUp(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, [3]float32{0, 1, 0}, got.KeyDirection)
	assert.Equal(t, [3]float32{}, got.Ambient)
}

func TestSpotAngleAndTarget(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithPosition(10, 20, 10),
		WithTarget(0, 0, 0),
		WithSpotAngle(math.Pi/6, 0.5),
	)

	assert.InDelta(t, math.Cos(math.Pi/6), l.OuterCone(), 1e-6)
	assert.InDelta(t, math.Cos(math.Pi/12), l.InnerCone(), 1e-6)

	d := l.Direction()
	length := math.Sqrt(float64(d[0]*d[0] + d[1]*d[1] + d[2]*d[2]))
	assert.InDelta(t, 1.0, length, 1e-6)
	assert.Less(t, d[1], float32(0))
	assert.Equal(t, "spot", l.Type().String())
}
