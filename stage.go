package pipeline

// Stage is one processing unit in the pipeline. A stage declares, immutably,
// which block state it consumes, how many workers it gets, which buffers of
// its group it reads and writes, and its temporal offset; the pipeline calls
// its lifecycle hooks around the worker loop.
//
// Process must be pure over the input block: it reads in, writes out, and
// returns the tag published for both blocks. The tag a stage returns is
// conventionally the entry tag of the next stage in the same group. Returning
// [BlockStateError] marks the block failed without aborting the pipeline.
// block is the absolute block number, flushCount*N+d, a monotonically
// increasing time coordinate that survives ring wrap.
//
// Init runs once on the owning group's buffer sequence before any worker
// starts and may pre-seed blocks. Cleanup runs once after every worker of the
// stage has returned.
type Stage interface {
	EntryState() BlockState
	ThreadCount() int
	InBuffer() int
	OutBuffer() int
	Offset() int

	Init(buffers []*RingBuffer) error
	Process(state *State, in, out []float32, block int) BlockState
	Cleanup() error
}

// StageConfig is the immutable wiring of a stage within its group. Stage
// implementations embed it to satisfy the declarative half of the [Stage]
// interface and override Init, Process and Cleanup as needed.
//
// The zero value is a single-threaded in-place stage on buffer 0 consuming
// [BlockStateDefault].
type StageConfig struct {
	// Entry is the block state this stage claims.
	Entry BlockState

	// Exit is the tag conventionally returned by Process on success.
	Exit BlockState

	// Threads is the worker count; values below 1 mean one worker.
	Threads int

	// In and Out are buffer indices within the stage's group.
	In, Out int

	// Shift is the temporal offset in blocks added to the claimed input
	// index to choose the output slot. Delay-like stages set it to their
	// pre-seeded silence length.
	Shift int
}

// EntryState implements [Stage].
func (c StageConfig) EntryState() BlockState { return c.Entry }

// ThreadCount implements [Stage].
func (c StageConfig) ThreadCount() int {
	if c.Threads < 1 {
		return 1
	}
	return c.Threads
}

// InBuffer implements [Stage].
func (c StageConfig) InBuffer() int { return c.In }

// OutBuffer implements [Stage].
func (c StageConfig) OutBuffer() int { return c.Out }

// Offset implements [Stage].
func (c StageConfig) Offset() int { return c.Shift }

// Init implements [Stage] as a no-op.
func (c StageConfig) Init([]*RingBuffer) error { return nil }

// Cleanup implements [Stage] as a no-op.
func (c StageConfig) Cleanup() error { return nil }
