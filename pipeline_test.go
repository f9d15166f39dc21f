package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-audio-pipeline/internal/testutil"
)

// Tags used by the test chains; they mirror the conventional assignment of
// the stages package without importing it.
const (
	tagProcess BlockState = 0x01
	tagSink    BlockState = 0x03
)

// rampGen fills every claimed block with [0, 1, ..., BlockSize-1].
type rampGen struct{ StageConfig }

func newRampGen() *rampGen {
	return &rampGen{StageConfig{Entry: BlockStateDefault}}
}

func (g *rampGen) Process(_ *State, _, out []float32, _ int) BlockState {
	copy(out, testutil.Ramp(len(out)))
	return BlockStateProcessed
}

// constGen fills every claimed block with a constant value.
type constGen struct {
	StageConfig
	value float32
}

func newConstGen(v float32) *constGen {
	return &constGen{StageConfig{Entry: BlockStateDefault}, v}
}

func (g *constGen) Process(_ *State, _, out []float32, _ int) BlockState {
	copy(out, testutil.Const(len(out), g.value))
	return BlockStateProcessed
}

// scaleProc multiplies in into out.
type scaleProc struct {
	StageConfig
	factor float32
}

func newScaleProc(factor float32) *scaleProc {
	return &scaleProc{StageConfig{Entry: tagProcess, Exit: BlockStateProcessed}, factor}
}

func (p *scaleProc) Process(_ *State, in, out []float32, _ int) BlockState {
	for i, v := range in {
		out[i] = v * p.factor
	}
	return p.Exit
}

// captureSink records a copy of every block it consumes.
type captureSink struct {
	StageConfig

	mu     sync.Mutex
	blocks [][]float32
}

func newCaptureSink() *captureSink {
	return &captureSink{StageConfig: StageConfig{Entry: tagSink}}
}

func (c *captureSink) Process(_ *State, in, _ []float32, _ int) BlockState {
	cp := make([]float32, len(in))
	copy(cp, in)
	c.mu.Lock()
	c.blocks = append(c.blocks, cp)
	c.mu.Unlock()
	return BlockStateDefault
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

func (c *captureSink) block(i int) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[i]
}

// maskedSink records every non-NaN sample as one flat stream.
type maskedSink struct {
	StageConfig

	mu      sync.Mutex
	samples []float32
}

func newMaskedSink() *maskedSink {
	return &maskedSink{StageConfig: StageConfig{Entry: tagSink}}
}

func (c *maskedSink) Process(_ *State, in, _ []float32, _ int) BlockState {
	c.mu.Lock()
	for _, v := range in {
		if !math32.IsNaN(v) {
			c.samples = append(c.samples, v)
		}
	}
	c.mu.Unlock()
	return BlockStateDefault
}

func (c *maskedSink) recorded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *maskedSink) sample(i int) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples[i]
}

func stopAndWait(t *testing.T, p *Pipeline, errc <-chan error) {
	t.Helper()
	p.Stop()
	require.NoError(t, <-errc)
}

func TestNewValidation(t *testing.T) {
	sink := newCaptureSink()

	t.Run("no output stage", func(t *testing.T) {
		_, err := New(&Config{Generators: []Stage{newRampGen()}})
		assert.ErrorIs(t, err, ErrNoOutputStage)
	})

	t.Run("empty buffer group", func(t *testing.T) {
		_, err := New(&Config{
			Outputs:          []Stage{sink},
			GeneratorBuffers: []*RingBuffer{},
		})
		assert.ErrorIs(t, err, ErrEmptyBufferGroup)
	})

	t.Run("mixed block counts in group", func(t *testing.T) {
		group, err := NewBufferGroup(1, 96)
		require.NoError(t, err)
		odd, err := NewRingBuffer(32)
		require.NoError(t, err)
		_, err = New(&Config{
			Outputs:          []Stage{sink},
			GeneratorBuffers: append(group, odd),
		})
		assert.ErrorIs(t, err, ErrBlockCountMismatch)
	})

	t.Run("handoff destination too small", func(t *testing.T) {
		gen, err := NewBufferGroup(1, 96)
		require.NoError(t, err)
		proc, err := NewBufferGroup(1, 32)
		require.NoError(t, err)
		_, err = New(&Config{
			Outputs:           []Stage{sink},
			GeneratorBuffers:  gen,
			ProcessingBuffers: proc,
		})
		assert.ErrorIs(t, err, ErrBlockCountMismatch)
	})

	t.Run("stage buffer index", func(t *testing.T) {
		bad := newCaptureSink()
		bad.In = 3
		_, err := New(&Config{Outputs: []Stage{bad}})
		assert.ErrorIs(t, err, ErrBufferIndex)
	})
}

type failingInit struct {
	StageConfig
	err error
}

func (s *failingInit) Init([]*RingBuffer) error { return s.err }

func (s *failingInit) Process(_ *State, _, _ []float32, _ int) BlockState {
	return BlockStateProcessed
}

func TestStageInitError(t *testing.T) {
	defer goleak.VerifyNone(t)

	sentinel := errors.New("no device")
	p, err := New(&Config{
		Generators: []Stage{newRampGen()},
		Outputs:    []Stage{&failingInit{StageConfig{Entry: tagSink}, sentinel}},
	})
	require.NoError(t, err)

	err = p.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	var initErr *StageInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "output", initErr.Group)
	assert.Equal(t, 0, initErr.Index)
	assert.Equal(t, Stopped, p.State().Execution())
}

func TestIdentityChain(t *testing.T) {
	sink := newCaptureSink()
	p, err := New(&Config{
		Generators: []Stage{newRampGen()},
		Processors: []Stage{newScaleProc(1)},
		Outputs:    []Stage{sink},
	})
	require.NoError(t, err)

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return sink.count() >= DefaultBlockCount
	}, "sink received %d of %d blocks", sink.count(), DefaultBlockCount)
	stopAndWait(t, p, errc)

	want := testutil.Ramp(BlockSize)
	for i := range DefaultBlockCount {
		assert.Equal(t, want, sink.block(i), "block %d", i)
	}
}

func TestGainChain(t *testing.T) {
	sink := newCaptureSink()
	p, err := New(&Config{
		Generators: []Stage{newConstGen(1)},
		Processors: []Stage{newScaleProc(2)},
		Outputs:    []Stage{sink},
	})
	require.NoError(t, err)

	st := p.State()
	var lastGen, lastProc uint64

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		// Counters must never move backwards while the pipeline runs.
		gen, proc := st.GeneratorFlushes(), st.ProcessingFlushes()
		assert.GreaterOrEqual(t, gen, lastGen)
		assert.GreaterOrEqual(t, proc, lastProc)
		lastGen, lastProc = gen, proc
		return sink.count() >= 2*DefaultBlockCount
	}, "sink received %d blocks", sink.count())
	stopAndWait(t, p, errc)

	for i := range 2 * DefaultBlockCount {
		testutil.AssertAllEqual(t, sink.block(i), 2, "block %d", i)
	}
	assert.GreaterOrEqual(t, st.GeneratorFlushes(), uint64(2))
	assert.GreaterOrEqual(t, st.ProcessingFlushes(), uint64(2))
	assert.Zero(t, st.OutputFlushes())
}

// delayProc shifts its input by Shift blocks into a second buffer, seeding
// the head start with silence the way a delay line does.
type delayProc struct{ StageConfig }

func newDelayProc(blocks int) *delayProc {
	return &delayProc{StageConfig{Entry: 0x02, Exit: BlockStateProcessed, In: 0, Out: 1, Shift: blocks}}
}

func (d *delayProc) Init(buffers []*RingBuffer) error {
	in := buffers[d.In]
	silence := d.Shift * BlockSize
	for i := range in.BlockCount() {
		block := in.Block(i)
		for j := range block {
			if i*BlockSize+j < silence {
				block[j] = 0
			} else {
				block[j] = math32.NaN()
			}
		}
	}
	in.FillStates(d.Entry)
	return nil
}

func (d *delayProc) Process(_ *State, in, out []float32, _ int) BlockState {
	copy(out, in)
	return d.Exit
}

func TestDelayChain(t *testing.T) {
	// 100 ms of delay is ten blocks: the sink must observe exactly ten
	// blocks of pre-seeded silence before the tone arrives.
	const delayBlocks = 10

	proc, err := NewBufferGroup(2, DefaultBlockCount)
	require.NoError(t, err)

	sink := newMaskedSink()
	p, err := New(&Config{
		Generators:        []Stage{newConstGen(1)},
		Processors:        []Stage{newDelayProc(delayBlocks)},
		Outputs:           []Stage{sink},
		ProcessingBuffers: proc,
	})
	require.NoError(t, err)

	silence := delayBlocks * BlockSize
	total := silence + DefaultBlockCount*BlockSize

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return sink.recorded() >= total
	}, "sink recorded %d of %d samples", sink.recorded(), total)
	stopAndWait(t, p, errc)

	for i := range silence {
		require.Equal(t, float32(0), sink.sample(i), "sample %d inside the delay window", i)
	}
	for i := silence; i < total; i++ {
		require.Equal(t, float32(1), sink.sample(i), "sample %d after the delay window", i)
	}
}

// holdProc keeps the processing tail untouched so the pipeline stalls after
// exactly one generator handoff.
type holdProc struct{ StageConfig }

func (p *holdProc) Process(_ *State, in, out []float32, _ int) BlockState {
	copy(out, in)
	return BlockStateProcessed
}

func TestGeneratorFlushHandoff(t *testing.T) {
	proc, err := NewBufferGroup(2, DefaultBlockCount)
	require.NoError(t, err)

	p, err := New(&Config{
		Generators:        []Stage{newRampGen()},
		Processors:        []Stage{&holdProc{StageConfig{Entry: tagProcess}}},
		Outputs:           []Stage{newCaptureSink()},
		ProcessingBuffers: proc,
	})
	require.NoError(t, err)

	st := p.State()
	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return st.GeneratorFlushes() == 1 && proc[0].FirstMismatch(BlockStateProcessed) == -1
	}, "handoff not observed")

	// The tail of the processing group stays empty, so no further handoff
	// can fire and the head still holds the generator tail bit for bit.
	want := testutil.Ramp(BlockSize)
	for i := range DefaultBlockCount {
		assert.Equal(t, want, proc[0].Block(i), "block %d", i)
	}
	assert.Equal(t, uint64(1), st.GeneratorFlushes())
	assert.Zero(t, st.ProcessingFlushes())

	stopAndWait(t, p, errc)
}

func TestShutdownDrainsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := newConstGen(1)
	gen.Threads = 4

	genBufs, err := NewBufferGroup(1, DefaultBlockCount)
	require.NoError(t, err)
	procBufs, err := NewBufferGroup(1, DefaultBlockCount)
	require.NoError(t, err)
	outBufs, err := NewBufferGroup(1, DefaultBlockCount)
	require.NoError(t, err)

	sink := newCaptureSink()
	p, err := New(&Config{
		Generators:        []Stage{gen},
		Processors:        []Stage{newScaleProc(1)},
		Outputs:           []Stage{sink},
		GeneratorBuffers:  genBufs,
		ProcessingBuffers: procBufs,
		OutputBuffers:     outBufs,
	})
	require.NoError(t, err)

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return sink.count() > 0
	}, "pipeline produced no output")
	stopAndWait(t, p, errc)

	assert.Equal(t, Stopped, p.State().Execution())
	for _, b := range [][]*RingBuffer{genBufs, procBufs, outBufs} {
		for _, buf := range b {
			assert.Equal(t, -1, buf.FirstMatch(BlockStateProcessing),
				"block left in processing state")
		}
	}
}

func TestPauseAndResume(t *testing.T) {
	sink := newCaptureSink()
	p, err := New(&Config{
		Generators: []Stage{newConstGen(1)},
		Processors: []Stage{newScaleProc(1)},
		Outputs:    []Stage{sink},
	})
	require.NoError(t, err)

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return sink.count() > 0
	}, "pipeline produced no output")

	p.Pause()
	assert.Equal(t, Paused, p.State().Execution())
	// Claims in flight at the pause may still publish; afterwards the
	// count must hold still.
	time.Sleep(20 * time.Millisecond)
	paused := sink.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, paused, sink.count())

	p.Resume()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return sink.count() > paused
	}, "pipeline did not resume")

	stopAndWait(t, p, errc)
}

// faultProc marks every block it touches as failed.
type faultProc struct{ StageConfig }

func (p *faultProc) Process(_ *State, _, _ []float32, _ int) BlockState {
	return BlockStateError
}

func TestProcessErrorKeepsPipelineAlive(t *testing.T) {
	proc, err := NewBufferGroup(1, DefaultBlockCount)
	require.NoError(t, err)

	p, err := New(&Config{
		Generators:        []Stage{newConstGen(1)},
		Processors:        []Stage{&faultProc{StageConfig{Entry: tagProcess}}},
		Outputs:           []Stage{newCaptureSink()},
		ProcessingBuffers: proc,
	})
	require.NoError(t, err)

	errc := p.RunAsync()
	testutil.WaitUntil(t, testutil.DefaultWait, func() bool {
		return proc[0].FirstMatch(BlockStateError) >= 0
	}, "no block reached the error state")

	// A failed block parks in the error state without aborting the run.
	assert.Equal(t, Executing, p.State().Execution())
	stopAndWait(t, p, errc)
}

func TestResumeDoesNotRestartStopped(t *testing.T) {
	p, err := New(&Config{Outputs: []Stage{newCaptureSink()}})
	require.NoError(t, err)

	p.Stop()
	p.Resume()
	assert.Equal(t, Stopped, p.State().Execution())
}
