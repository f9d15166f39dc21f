package pipeline

import "time"

// Sample format constants. The block size is a build-time constant: every
// buffer and every stage operates on whole blocks of BlockSize samples.
const (
	// BlockSize is the number of float32 samples in one block.
	BlockSize = 480

	// SampleRate is the nominal sample rate in Hz.
	SampleRate = 48000

	// BlockDuration is the wall-clock duration one block represents.
	BlockDuration = BlockSize * time.Second / SampleRate

	// DefaultBlockCount is the block count used when a buffer group is not
	// supplied explicitly. 96 blocks is 0.96 s of audio and satisfies the
	// lane-alignment requirement below.
	DefaultBlockCount = 96

	// blockCountAlignment is the required divisor of every buffer's block
	// count. The state scans walk the state array in whole lanes and must
	// never index past it.
	blockCountAlignment = 16
)

// Byte layout of the packed state array.
const (
	statesPerWord = 4
	stateShift    = 8
	stateMask     = 0xFF
)
