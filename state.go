package pipeline

import "sync/atomic"

// BlockState is the one-byte lifecycle tag stored per block. It is the
// synchronization primitive of the whole engine: stages claim, process and
// hand off blocks purely by advancing this byte.
type BlockState uint8

// Reserved block states. Values 0x01..0xFC are free for per-stage entry and
// exit tags; the convention is that the tag a stage's Process returns is the
// entry tag of the next stage in the same group.
const (
	// BlockStateDefault marks an empty, unclaimed block.
	BlockStateDefault BlockState = 0x00

	// BlockStateError marks a block whose processing hook failed. A
	// downstream stage with a matching entry tag may recover it; otherwise
	// the block is overwritten on the next ring wrap.
	BlockStateError BlockState = 0xFD

	// BlockStateProcessing marks a block claimed by a worker. At most one
	// worker holds a given block in this state at any moment.
	BlockStateProcessing BlockState = 0xFE

	// BlockStateProcessed is the terminal state consumed by group flushes.
	BlockStateProcessed BlockState = 0xFF
)

// ExecutionState is the pipeline-wide execution mode.
type ExecutionState uint8

// Execution modes.
const (
	// Stopped requests cooperative termination; workers return and the
	// supervisor joins them.
	Stopped ExecutionState = iota

	// Paused idles the workers. The supervisor keeps evaluating flush
	// conditions, but they cannot become true while generation is idle.
	Paused

	// Executing is the normal running mode.
	Executing
)

// String implements fmt.Stringer.
func (s ExecutionState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Paused:
		return "paused"
	case Executing:
		return "executing"
	}
	return "unknown"
}

// State holds the process-wide pipeline counters and the execution mode.
// All fields are atomic; a pointer to the pipeline's State is passed into
// every stage's Process call so stages can read the counters without
// additional synchronization.
type State struct {
	generatorFlushes  atomic.Uint64
	processingFlushes atomic.Uint64
	outputFlushes     atomic.Uint64
	execution         atomic.Uint32
}

// GeneratorFlushes returns how many generator-to-processing handoffs have
// completed. Monotonically non-decreasing.
func (s *State) GeneratorFlushes() uint64 { return s.generatorFlushes.Load() }

// ProcessingFlushes returns how many processing-to-output handoffs have
// completed. Monotonically non-decreasing.
func (s *State) ProcessingFlushes() uint64 { return s.processingFlushes.Load() }

// OutputFlushes returns how many output-group cycles have completed. The
// output group has no downstream handoff, so the counter is currently never
// advanced; it is kept for symmetry and future drain accounting.
func (s *State) OutputFlushes() uint64 { return s.outputFlushes.Load() }

// Execution returns the current execution mode.
func (s *State) Execution() ExecutionState {
	return ExecutionState(s.execution.Load())
}

func (s *State) setExecution(e ExecutionState) {
	s.execution.Store(uint32(e))
}
