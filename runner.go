package pipeline

import (
	"runtime"
	"sync/atomic"
)

// stageRunner binds a stage to its resolved input and output buffers and
// carries the flushing flag the supervisor raises around group handoffs. The
// flag lives here, not on the Stage, so stage implementations stay pure
// behavior.
type stageRunner struct {
	stage    Stage
	in, out  *RingBuffer
	flushing atomic.Bool
}

// worker is the per-goroutine claim/process/publish loop. It runs until the
// execution state becomes Stopped.
func (p *Pipeline) worker(r *stageRunner) {
	defer p.wg.Done()

	entry := r.stage.EntryState()
	offset := r.stage.Offset()
	n := r.in.BlockCount()

	for {
		switch p.state.Execution() {
		case Stopped:
			return
		case Paused:
			runtime.Gosched()
			continue
		}
		if r.flushing.Load() {
			runtime.Gosched()
			continue
		}

		idx := r.in.FirstMatch(entry)
		if idx < 0 {
			runtime.Gosched()
			continue
		}
		flushes := p.state.GeneratorFlushes()
		dst := (idx + offset) % n

		if !r.claim(idx, entry) {
			continue
		}

		out := r.stage.Process(&p.state, r.in.Block(idx), r.out.Block(dst),
			int(flushes)*p.generatorBlocks+dst)

		// The sample writes above happen-before these stores; the next
		// stage's claim CAS acquires them.
		r.in.SetState(idx, out)
		r.out.SetState(dst, out)
	}
}

// claim attempts the entry->processing transition on block idx. The CAS is
// weak: it retries while the observed state still equals entry, and gives up
// as soon as the state moved on, the swap succeeded elsewhere, or a flush
// started. Only the goroutine whose claim succeeds may touch the block's
// samples.
func (r *stageRunner) claim(idx int, entry BlockState) bool {
	for {
		if r.in.CompareAndSwapState(idx, entry, BlockStateProcessing) {
			return true
		}
		if r.in.State(idx) != entry || r.flushing.Load() {
			return false
		}
	}
}
