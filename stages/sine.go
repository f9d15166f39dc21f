package stages

import (
	"github.com/chewxy/math32"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// Sine generates a sine wave at a fixed frequency. It consumes empty blocks
// and emits them fully processed, which makes it a generator-group stage.
type Sine struct {
	pipeline.StageConfig
	freq   float32
	period int // whole samples per cycle, keeps the phase near the origin
}

// NewSine creates a sine generator for the given frequency in Hz.
func NewSine(freq float32) *Sine {
	return &Sine{
		StageConfig: pipeline.StageConfig{
			Entry: pipeline.BlockStateDefault,
			Exit:  pipeline.BlockStateProcessed,
		},
		freq:   freq,
		period: int(math32.Ceil(pipeline.SampleRate / freq)),
	}
}

// Process fills out with the waveform. The sample clock is derived from the
// absolute block number and reduced modulo the waveform period so float
// precision does not degrade as the pipeline runs.
func (s *Sine) Process(_ *pipeline.State, _, out []float32, block int) pipeline.BlockState {
	for i := range out {
		n := pipeline.BlockSize*block + i
		t := float32(n%s.period) / pipeline.SampleRate
		out[i] = math32.Sin(2 * math32.Pi * s.freq * t)
	}
	return s.Exit
}
