package stages

import (
	"github.com/tphakala/simd/f32"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// Gain multiplies every sample by a constant factor.
type Gain struct {
	pipeline.StageConfig
	factor float32
}

// NewGain creates a gain stage with the given multiplier. It defaults to
// consuming [TagGain] and emitting [TagDelay].
func NewGain(factor float32) *Gain {
	return &Gain{
		StageConfig: pipeline.StageConfig{Entry: TagGain, Exit: TagDelay},
		factor:      factor,
	}
}

// Process scales in into out.
func (g *Gain) Process(_ *pipeline.State, in, out []float32, _ int) pipeline.BlockState {
	f32.Scale(out, in, g.factor)
	return g.Exit
}
