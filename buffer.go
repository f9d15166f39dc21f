package pipeline

import (
	"sync/atomic"

	"github.com/tphakala/go-audio-pipeline/internal/scan"
)

// RingBuffer stores audio in a contiguous array of sample blocks with a
// parallel array of per-block states. Indexing wraps modulo the block count.
//
// The state array is the sole synchronization mechanism: sample memory is
// accessed without locking under the invariant that only the worker holding a
// block in [BlockStateProcessing] may mutate its samples. States are packed
// four per word so that a single byte can be advanced with a masked 32-bit
// compare-and-swap; neighbour bytes changing underneath a swap make it fail
// spuriously, which callers must treat as a weak CAS and retry.
//
// A RingBuffer is created once, handed to a pipeline, and lives until the
// pipeline is done with it; it is never copied.
type RingBuffer struct {
	blockCount int
	states     []uint32  // one byte per block, blockCount/4 words
	samples    []float32 // blockCount*BlockSize samples
}

// NewRingBuffer creates a buffer of blockCount blocks, all samples zero and
// all states [BlockStateDefault]. The block count must be positive and
// divisible by 16 so the state scans can walk the array in whole lanes.
func NewRingBuffer(blockCount int) (*RingBuffer, error) {
	if blockCount <= 0 || blockCount%blockCountAlignment != 0 {
		return nil, ErrInvalidBlockCount
	}
	return &RingBuffer{
		blockCount: blockCount,
		states:     make([]uint32, blockCount/statesPerWord),
		samples:    make([]float32, blockCount*BlockSize),
	}, nil
}

// BlockCount returns the number of blocks in the buffer.
func (b *RingBuffer) BlockCount() int { return b.blockCount }

// Block returns the sample slice of block i, wrapping modulo the block count.
// Only the worker that claimed block i may write through the returned slice.
func (b *RingBuffer) Block(i int) []float32 {
	i %= b.blockCount
	return b.samples[i*BlockSize : (i+1)*BlockSize : (i+1)*BlockSize]
}

// State atomically loads the state of block i, wrapping modulo the block
// count.
func (b *RingBuffer) State(i int) BlockState {
	i %= b.blockCount
	word := atomic.LoadUint32(&b.states[i/statesPerWord])
	return BlockState(word >> (uint(i%statesPerWord) * stateShift) & stateMask)
}

// SetState atomically stores the state of block i, wrapping modulo the block
// count.
func (b *RingBuffer) SetState(i int, s BlockState) {
	i %= b.blockCount
	word := &b.states[i/statesPerWord]
	shift := uint(i%statesPerWord) * stateShift
	for {
		old := atomic.LoadUint32(word)
		upd := old&^(uint32(stateMask)<<shift) | uint32(s)<<shift
		if atomic.CompareAndSwapUint32(word, old, upd) {
			return
		}
	}
}

// CompareAndSwapState attempts to advance the state of block i from old to
// upd. It has weak semantics: it may fail spuriously when a neighbouring
// state byte in the same word changed concurrently, so callers retry while
// the observed state still equals old.
func (b *RingBuffer) CompareAndSwapState(i int, old, upd BlockState) bool {
	i %= b.blockCount
	word := &b.states[i/statesPerWord]
	shift := uint(i%statesPerWord) * stateShift
	cur := atomic.LoadUint32(word)
	if BlockState(cur>>shift&stateMask) != old {
		return false
	}
	next := cur&^(uint32(stateMask)<<shift) | uint32(upd)<<shift
	return atomic.CompareAndSwapUint32(word, cur, next)
}

// FirstMatch returns the smallest block index whose state equals s, or -1 if
// none does. The scan is advisory: callers must tolerate both false
// negatives and stale positives and gate access with CompareAndSwapState.
func (b *RingBuffer) FirstMatch(s BlockState) int {
	return scan.FirstMatch(b.states, b.blockCount, uint8(s))
}

// FirstMismatch returns the smallest block index whose state differs from s,
// or -1 if every state equals s.
func (b *RingBuffer) FirstMismatch(s BlockState) int {
	return scan.FirstMismatch(b.states, b.blockCount, uint8(s))
}

// FillStates stores s into every block state.
func (b *RingBuffer) FillStates(s BlockState) {
	word := uint32(s) * 0x01010101
	for i := range b.states {
		atomic.StoreUint32(&b.states[i], word)
	}
}

// Clear zeroes the whole buffer, samples and states alike.
func (b *RingBuffer) Clear() {
	clear(b.samples)
	for i := range b.states {
		atomic.StoreUint32(&b.states[i], 0)
	}
}

// CopyTo copies the entire buffer into dst starting at the given sample
// offset, states included. It fails with [ErrRangeTooLarge] when dst is
// smaller than the source.
func (b *RingBuffer) CopyTo(dst *RingBuffer, sampleOffset int) error {
	return b.CopySliceTo(dst, 0, sampleOffset, b.blockCount*BlockSize)
}

// CopySliceTo copies count samples starting at sample index from (wrapping at
// the source capacity) to sample index to in dst (wrapping at the destination
// capacity), together with the corresponding span of block states.
//
// When from or to is not block-aligned, the span of copied states keeps the
// initial partial block and truncates the final one, so a downstream stage
// never observes the state of a partially written block advance. An
// intermediate scratch buffer decouples the source wrap point from the
// destination wrap point; the two buffers need not have the same block count.
func (b *RingBuffer) CopySliceTo(dst *RingBuffer, from, to, count int) error {
	srcCap := b.blockCount * BlockSize
	dstCap := dst.blockCount * BlockSize
	if count > min(srcCap, dstCap) {
		return ErrRangeTooLarge
	}
	if count <= 0 {
		return nil
	}
	from %= srcCap
	to %= dstCap

	tmp := make([]float32, count)
	n := copy(tmp, b.samples[from:])
	copy(tmp[n:], b.samples[:count-n])

	blocks := count / BlockSize
	tmpStates := make([]BlockState, blocks)
	for j := range tmpStates {
		tmpStates[j] = b.State(from/BlockSize + j)
	}

	n = copy(dst.samples[to:], tmp)
	copy(dst.samples, tmp[n:])
	for j, s := range tmpStates {
		dst.SetState(to/BlockSize+j, s)
	}
	return nil
}
