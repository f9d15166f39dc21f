package pipeline

import "time"

// NewBufferGroup creates count ring buffers of blockCount blocks each, ready
// to be used as one buffer group.
func NewBufferGroup(count, blockCount int) ([]*RingBuffer, error) {
	buffers := make([]*RingBuffer, count)
	for i := range buffers {
		b, err := NewRingBuffer(blockCount)
		if err != nil {
			return nil, err
		}
		buffers[i] = b
	}
	return buffers, nil
}

// DurationBlocks converts a duration to whole blocks at the nominal sample
// rate, rounding down. Delay-like stages use it to size their temporal
// offset.
func DurationBlocks(d time.Duration) int {
	return int(d / BlockDuration)
}

// DurationSamples converts a duration to whole samples at the nominal sample
// rate, rounding down.
func DurationSamples(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}
