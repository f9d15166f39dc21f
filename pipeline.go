package pipeline

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Config assembles a pipeline. The three stage lists map onto the three
// buffer groups; a nil buffer group defaults to a single buffer of
// [DefaultBlockCount] blocks.
type Config struct {
	// Generators produce blocks into the generator group.
	Generators []Stage

	// Processors transform blocks within the processing group.
	Processors []Stage

	// Outputs consume blocks from the output group. At least one output
	// stage is required.
	Outputs []Stage

	// GeneratorBuffers, ProcessingBuffers and OutputBuffers are the three
	// buffer groups. Within a group all buffers share one block count; the
	// head buffer of a group receives the preceding group's handoffs and
	// the tail buffer accumulates the group's result.
	GeneratorBuffers  []*RingBuffer
	ProcessingBuffers []*RingBuffer
	OutputBuffers     []*RingBuffer

	// Log receives lifecycle and handoff events. Defaults to a logrus
	// logger honoring the PIPELINE_DEBUG environment variable.
	Log logrus.FieldLogger
}

// Pipeline owns three groups of stages and ring buffers and drives blocks
// through them. Construct with [New], control with Run, RunAsync, Pause,
// Resume and Stop.
type Pipeline struct {
	uid   string
	state State

	generators []*stageRunner
	processors []*stageRunner
	outputs    []*stageRunner

	generatorBuffers  []*RingBuffer
	processingBuffers []*RingBuffer
	outputBuffers     []*RingBuffer

	// generatorBlocks is the block count of the generator tail buffer,
	// the N in the absolute block number flushCount*N+d.
	generatorBlocks int

	wg  sync.WaitGroup
	log logrus.FieldLogger
}

// New validates the configuration and builds a pipeline in the Stopped
// state. It fails with [ErrNoOutputStage] when no output stage is given and
// with [ErrBufferIndex] when a stage addresses a buffer outside its group.
func New(cfg *Config) (*Pipeline, error) {
	if len(cfg.Outputs) == 0 {
		return nil, ErrNoOutputStage
	}

	p := &Pipeline{
		uid: xid.New().String(),
		log: cfg.Log,
	}
	if p.log == nil {
		p.log = newLogger()
	}
	p.log = p.log.WithField("pipeline", p.uid)

	var err error
	if p.generatorBuffers, err = groupBuffers(cfg.GeneratorBuffers); err != nil {
		return nil, fmt.Errorf("generator buffers: %w", err)
	}
	if p.processingBuffers, err = groupBuffers(cfg.ProcessingBuffers); err != nil {
		return nil, fmt.Errorf("processing buffers: %w", err)
	}
	if p.outputBuffers, err = groupBuffers(cfg.OutputBuffers); err != nil {
		return nil, fmt.Errorf("output buffers: %w", err)
	}

	// Handoffs copy a full tail buffer into the next head buffer.
	if tail(p.generatorBuffers).BlockCount() > p.processingBuffers[0].BlockCount() ||
		tail(p.processingBuffers).BlockCount() > p.outputBuffers[0].BlockCount() {
		return nil, fmt.Errorf("%w: handoff destination smaller than source", ErrBlockCountMismatch)
	}
	p.generatorBlocks = tail(p.generatorBuffers).BlockCount()

	if p.generators, err = groupRunners(cfg.Generators, p.generatorBuffers); err != nil {
		return nil, err
	}
	if p.processors, err = groupRunners(cfg.Processors, p.processingBuffers); err != nil {
		return nil, err
	}
	if p.outputs, err = groupRunners(cfg.Outputs, p.outputBuffers); err != nil {
		return nil, err
	}
	return p, nil
}

// groupBuffers applies the default group and checks the group invariants.
func groupBuffers(buffers []*RingBuffer) ([]*RingBuffer, error) {
	if buffers == nil {
		b, err := NewRingBuffer(DefaultBlockCount)
		if err != nil {
			return nil, err
		}
		return []*RingBuffer{b}, nil
	}
	if len(buffers) == 0 {
		return nil, ErrEmptyBufferGroup
	}
	for _, b := range buffers[1:] {
		if b.BlockCount() != buffers[0].BlockCount() {
			return nil, ErrBlockCountMismatch
		}
	}
	return buffers, nil
}

// groupRunners binds each stage of a group to its declared buffers.
func groupRunners(group []Stage, buffers []*RingBuffer) ([]*stageRunner, error) {
	runners := make([]*stageRunner, 0, len(group))
	for _, s := range group {
		in, out := s.InBuffer(), s.OutBuffer()
		if in < 0 || in >= len(buffers) || out < 0 || out >= len(buffers) {
			return nil, fmt.Errorf("%w: in %d, out %d of %d", ErrBufferIndex, in, out, len(buffers))
		}
		runners = append(runners, &stageRunner{
			stage: s,
			in:    buffers[in],
			out:   buffers[out],
		})
	}
	return runners, nil
}

// State exposes the pipeline counters and execution mode.
func (p *Pipeline) State() *State { return &p.state }

// Stop requests cooperative termination. Workers observe it at the top of
// their loop and return; Run joins them, runs stage cleanup and returns.
func (p *Pipeline) Stop() { p.state.setExecution(Stopped) }

// Pause idles the workers without tearing anything down. The supervisor
// keeps running.
func (p *Pipeline) Pause() { p.state.setExecution(Paused) }

// Resume returns a paused pipeline to normal execution.
func (p *Pipeline) Resume() {
	if p.state.Execution() == Paused {
		p.state.setExecution(Executing)
	}
}

// Run starts the pipeline and blocks until it is stopped. All stages are
// initialized before any worker is spawned; an Init failure surfaces as a
// [StageInitError] with no worker started. On return every worker has
// terminated and every stage's Cleanup has run.
func (p *Pipeline) Run() error {
	p.state.setExecution(Executing)
	p.log.Info("pipeline starting")

	if err := p.initStages(); err != nil {
		p.state.setExecution(Stopped)
		return err
	}
	p.spawnWorkers()
	p.supervise()

	p.wg.Wait()
	err := p.cleanupStages()
	p.log.Info("pipeline stopped")
	return err
}

// RunAsync runs the pipeline on its own goroutine and returns a channel that
// delivers Run's result after Stop.
func (p *Pipeline) RunAsync() <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- p.Run()
		close(errc)
	}()
	return errc
}

func (p *Pipeline) initStages() error {
	groups := []struct {
		name    string
		runners []*stageRunner
		buffers []*RingBuffer
	}{
		{"generator", p.generators, p.generatorBuffers},
		{"processing", p.processors, p.processingBuffers},
		{"output", p.outputs, p.outputBuffers},
	}
	for _, g := range groups {
		for i, r := range g.runners {
			if err := r.stage.Init(g.buffers); err != nil {
				return &StageInitError{Group: g.name, Index: i, Err: err}
			}
		}
	}
	return nil
}

func (p *Pipeline) spawnWorkers() {
	for _, r := range p.allRunners() {
		for range r.stage.ThreadCount() {
			p.wg.Add(1)
			go p.worker(r)
		}
	}
}

func (p *Pipeline) allRunners() []*stageRunner {
	all := make([]*stageRunner, 0, len(p.generators)+len(p.processors)+len(p.outputs))
	all = append(all, p.generators...)
	all = append(all, p.processors...)
	return append(all, p.outputs...)
}

// supervise evaluates the two handoff conditions until the pipeline stops.
// A handoff fires when the source group's tail buffer is entirely processed
// and both endpoints of the destination group are entirely empty; those two
// facts together mean no worker holds a block in any buffer the handoff
// touches.
func (p *Pipeline) supervise() {
	for p.state.Execution() != Stopped {
		if flushReady(p.generatorBuffers, p.processingBuffers) {
			p.flush("generator", p.generators, p.processors,
				p.generatorBuffers, p.processingBuffers,
				&p.state.generatorFlushes, seedState(p.processors))
		}
		if flushReady(p.processingBuffers, p.outputBuffers) {
			p.flush("processing", p.processors, p.outputs,
				p.processingBuffers, p.outputBuffers,
				&p.state.processingFlushes, seedState(p.outputs))
		}
		runtime.Gosched()
	}
}

func flushReady(src, dst []*RingBuffer) bool {
	return tail(src).FirstMismatch(BlockStateProcessed) == -1 &&
		dst[0].FirstMismatch(BlockStateDefault) == -1 &&
		tail(dst).FirstMismatch(BlockStateDefault) == -1
}

// seedState is the state a handoff seeds into the destination head buffer:
// the first destination stage's entry tag, or the terminal state when the
// group has no stages so blocks pass straight through to the next handoff.
func seedState(dst []*stageRunner) BlockState {
	if len(dst) == 0 {
		return BlockStateProcessed
	}
	return dst[0].stage.EntryState()
}

// flush performs one group handoff: quiesce the workers of both groups, copy
// the source tail into the destination head, reseed the state arrays, resume.
// Every store here is sequentially consistent, so no worker resuming on the
// cleared flushing flag can observe the buffers mid-transition.
func (p *Pipeline) flush(name string, srcRunners, dstRunners []*stageRunner,
	src, dst []*RingBuffer, counter *atomic.Uint64, seed BlockState) {

	for _, r := range srcRunners {
		r.flushing.Store(true)
	}
	for _, r := range dstRunners {
		r.flushing.Store(true)
	}

	count := counter.Add(1)
	tail(src).CopyTo(dst[0], 0)
	src[0].Clear()
	dst[0].FillStates(seed)
	tail(src).FillStates(BlockStateDefault)

	for _, r := range srcRunners {
		r.flushing.Store(false)
	}
	for _, r := range dstRunners {
		r.flushing.Store(false)
	}

	p.log.WithFields(logrus.Fields{"group": name, "count": count}).Debug("flush handoff")
}

// cleanupStages runs every stage's Cleanup and joins their errors.
func (p *Pipeline) cleanupStages() error {
	var errs []error
	for _, r := range p.allRunners() {
		if err := r.stage.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func tail(buffers []*RingBuffer) *RingBuffer {
	return buffers[len(buffers)-1]
}
