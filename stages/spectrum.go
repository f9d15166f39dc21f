package stages

import (
	"math/cmplx"
	"sync"

	"github.com/chewxy/math32"
	"github.com/mjibson/go-dsp/fft"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// Spectrum tracks the dominant frequency of the stream with a per-block FFT.
// One block is one transform window, so the resolution is
// SampleRate/BlockSize (100 Hz at the nominal format). NaN samples are
// treated as silence. Safe for more than one worker.
type Spectrum struct {
	pipeline.StageConfig

	mu       sync.Mutex
	dominant float64
	power    float64
}

// NewSpectrum creates a spectrum tracker. It defaults to consuming [TagSink]
// and emitting [pipeline.BlockStateDefault].
func NewSpectrum() *Spectrum {
	return &Spectrum{
		StageConfig: pipeline.StageConfig{Entry: TagSink, Exit: pipeline.BlockStateDefault},
	}
}

// Process transforms the block and records the strongest bin.
func (s *Spectrum) Process(_ *pipeline.State, in, _ []float32, _ int) pipeline.BlockState {
	window := make([]float64, len(in))
	for i, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		window[i] = float64(v)
	}

	bins := fft.FFTReal(window)
	peakBin, peakPower := 0, 0.0
	for i := 1; i < len(bins)/2; i++ {
		if p := cmplx.Abs(bins[i]); p > peakPower {
			peakBin, peakPower = i, p
		}
	}

	s.mu.Lock()
	if peakPower > s.power {
		s.power = peakPower
		s.dominant = float64(peakBin) * pipeline.SampleRate / float64(len(window))
	}
	s.mu.Unlock()
	return s.Exit
}

// DominantHz returns the frequency of the strongest bin seen so far, rounded
// to the transform's bin resolution.
func (s *Spectrum) DominantHz() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dominant
}
