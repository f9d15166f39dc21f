package stages

import (
	"time"

	"github.com/chewxy/math32"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// Delay shifts the signal in time by a fixed duration. It claims blocks on
// its input buffer and writes them Shift blocks later into its output buffer,
// so the group needs a second buffer for the shifted stream.
//
// Init pre-seeds the input buffer: the first Shift blocks are silence, the
// rest NaN, and every block carries the stage's entry tag. The NaN fill marks
// samples that carry no signal yet; NaN-masking sinks drop them, so the first
// Shift output blocks deliver exactly the pre-seeded silence before real
// input appears.
type Delay struct {
	pipeline.StageConfig
	duration time.Duration
}

// NewDelay creates a delay stage. The duration is rounded down to whole
// blocks. It defaults to consuming [TagDelay] from buffer 0 and emitting
// [pipeline.BlockStateProcessed] into buffer 1.
func NewDelay(d time.Duration) *Delay {
	return &Delay{
		StageConfig: pipeline.StageConfig{
			Entry: TagDelay,
			Exit:  pipeline.BlockStateProcessed,
			In:    0,
			Out:   1,
			Shift: pipeline.DurationBlocks(d),
		},
		duration: d,
	}
}

// Init seeds the input buffer with the initial silence.
func (d *Delay) Init(buffers []*pipeline.RingBuffer) error {
	in := buffers[d.In]
	silence := d.Shift * pipeline.BlockSize
	for i := range in.BlockCount() {
		block := in.Block(i)
		for j := range block {
			if i*pipeline.BlockSize+j < silence {
				block[j] = 0
			} else {
				block[j] = math32.NaN()
			}
		}
	}
	in.FillStates(d.Entry)
	return nil
}

// Process copies in to out; the temporal shift is carried entirely by the
// stage's block offset.
func (d *Delay) Process(_ *pipeline.State, in, out []float32, _ int) pipeline.BlockState {
	copy(out, in)
	return d.Exit
}
