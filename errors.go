package pipeline

import (
	"errors"
	"fmt"
)

// Construction and copy errors.
var (
	// ErrInvalidBlockCount is returned when a ring buffer is constructed
	// with a block count of zero or one that is not a multiple of 16.
	ErrInvalidBlockCount = errors.New("block count must be positive and divisible by 16")

	// ErrNoOutputStage is returned when a pipeline is constructed without
	// at least one output stage.
	ErrNoOutputStage = errors.New("pipeline requires at least one output stage")

	// ErrEmptyBufferGroup is returned when a pipeline is constructed with
	// an empty buffer group.
	ErrEmptyBufferGroup = errors.New("buffer group must contain at least one buffer")

	// ErrBlockCountMismatch is returned when the buffers of one group do
	// not share a single block count.
	ErrBlockCountMismatch = errors.New("buffers within a group must have equal block counts")

	// ErrRangeTooLarge is returned by slice copies whose sample range
	// exceeds the capacity of the smaller of the two buffers.
	ErrRangeTooLarge = errors.New("copy range exceeds the smaller buffer")

	// ErrBufferIndex is returned when a stage declares an input or output
	// buffer index outside its group.
	ErrBufferIndex = errors.New("stage buffer index outside group")
)

// StageInitError reports a stage whose Init hook failed during pipeline
// startup. No worker has been spawned when it is returned from Run.
type StageInitError struct {
	Group string // "generator", "processing" or "output"
	Index int    // position of the stage within its group
	Err   error
}

func (e *StageInitError) Error() string {
	return fmt.Sprintf("init of %s stage %d failed: %v", e.Group, e.Index, e.Err)
}

func (e *StageInitError) Unwrap() error { return e.Err }
