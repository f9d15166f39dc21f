package stages

import (
	"math"
	"sync"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// Meter measures the running RMS level and peak amplitude of the stream. NaN
// samples carry no signal and are excluded. Safe for more than one worker.
type Meter struct {
	pipeline.StageConfig

	mu         sync.Mutex
	sumSquares float64
	peak       float64
	count      int64
}

// NewMeter creates a level meter. It defaults to consuming [TagSink] and
// emitting [pipeline.BlockStateDefault].
func NewMeter() *Meter {
	return &Meter{
		StageConfig: pipeline.StageConfig{Entry: TagSink, Exit: pipeline.BlockStateDefault},
	}
}

// Process accumulates the block's level statistics.
func (m *Meter) Process(_ *pipeline.State, in, _ []float32, _ int) pipeline.BlockState {
	scratch := make([]float64, 0, len(in))
	for _, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		scratch = append(scratch, float64(v))
	}
	if len(scratch) == 0 {
		return m.Exit
	}
	norm := floats.Norm(scratch, 2)
	peak := math.Max(math.Abs(floats.Max(scratch)), math.Abs(floats.Min(scratch)))

	m.mu.Lock()
	m.sumSquares += norm * norm
	m.peak = math.Max(m.peak, peak)
	m.count += int64(len(scratch))
	m.mu.Unlock()
	return m.Exit
}

// RMS returns the root-mean-square level of all samples metered so far.
func (m *Meter) RMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == 0 {
		return 0
	}
	return math.Sqrt(m.sumSquares / float64(m.count))
}

// Peak returns the largest absolute sample value metered so far.
func (m *Meter) Peak() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// Samples returns how many samples have been metered.
func (m *Meter) Samples() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
