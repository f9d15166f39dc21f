// Package scan provides branch-light byte searches over the packed block
// state arrays. States are stored four per uint32 word; the scans examine the
// array in eight-byte lanes using a SWAR equality mask and a trailing-zero
// reduction, the 64-bit analogue of a 128-bit compare/movemask/tzcnt scan.
//
// The scans are advisory and unsynchronized: a state stored concurrently may
// not be visible yet, and an observed state may have changed before the
// caller acts on it. Callers gate exclusive access with the subsequent
// compare-and-swap, never with the scan result.
package scan

import (
	"math/bits"
	"sync/atomic"
)

const (
	// BytesPerWord is the number of state bytes packed into one word.
	BytesPerWord = 4

	// laneBytes is the width of one scan step.
	laneBytes = 8

	lowBytes  = 0x0101010101010101
	highBits  = 0x8080808080808080
	byteShift = 3
)

// broadcast replicates b into every byte of a 64-bit lane.
func broadcast(b uint8) uint64 {
	return uint64(b) * lowBytes
}

// loadLane assembles one eight-byte lane from two adjacent words. The two
// loads are individually atomic, not jointly; that is sufficient for an
// advisory scan.
func loadLane(words []uint32, w int) uint64 {
	return uint64(atomic.LoadUint32(&words[w])) | uint64(atomic.LoadUint32(&words[w+1]))<<32
}

// FirstMatch returns the smallest index i in [0, count) whose state byte
// equals target, or -1 if no byte matches. count must be a multiple of the
// lane width; ring buffers guarantee this by construction.
func FirstMatch(words []uint32, count int, target uint8) int {
	pattern := broadcast(target)
	for base := 0; base < count; base += laneBytes {
		x := loadLane(words, base/BytesPerWord) ^ pattern
		// Zero-byte mask: exact for the lowest zero byte, which is the
		// only bit the trailing-zero count can select.
		if mask := (x - lowBytes) & ^x & highBits; mask != 0 {
			return base + bits.TrailingZeros64(mask)>>byteShift
		}
	}
	return -1
}

// FirstMismatch returns the smallest index i in [0, count) whose state byte
// differs from target, or -1 if every byte matches.
func FirstMismatch(words []uint32, count int, target uint8) int {
	pattern := broadcast(target)
	for base := 0; base < count; base += laneBytes {
		if x := loadLane(words, base/BytesPerWord) ^ pattern; x != 0 {
			return base + bits.TrailingZeros64(x)>>byteShift
		}
	}
	return -1
}
