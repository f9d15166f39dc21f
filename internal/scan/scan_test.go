package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// pack builds the packed word array for a byte-per-block state slice.
func pack(states []uint8) []uint32 {
	words := make([]uint32, len(states)/BytesPerWord)
	for i, s := range states {
		words[i/BytesPerWord] |= uint32(s) << (uint(i%BytesPerWord) * 8)
	}
	return words
}

func TestFirstMatch(t *testing.T) {
	const n = 48

	tests := []struct {
		name   string
		set    map[int]uint8
		target uint8
		want   int
	}{
		{"first byte", map[int]uint8{0: 7}, 7, 0},
		{"inside first lane", map[int]uint8{5: 7}, 7, 5},
		{"lane boundary", map[int]uint8{8: 7}, 7, 8},
		{"second lane", map[int]uint8{13: 7}, 7, 13},
		{"last byte", map[int]uint8{n - 1: 7}, 7, n - 1},
		{"leftmost of several", map[int]uint8{9: 7, 20: 7, n - 1: 7}, 7, 9},
		{"zero target", map[int]uint8{}, 0, 0},
		{"no match", map[int]uint8{3: 5}, 7, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := make([]uint8, n)
			for i, s := range tt.set {
				states[i] = s
			}
			assert.Equal(t, tt.want, FirstMatch(pack(states), n, tt.target))
		})
	}
}

func TestFirstMatchHighBytes(t *testing.T) {
	// Values with the top bit set exercise the SWAR mask edge cases.
	const n = 16
	states := make([]uint8, n)
	states[11] = 0xFE
	words := pack(states)

	assert.Equal(t, 11, FirstMatch(words, n, 0xFE))
	assert.Equal(t, -1, FirstMatch(words, n, 0xFF))
	assert.Equal(t, -1, FirstMatch(words, n, 0x7E))
}

func TestFirstMismatch(t *testing.T) {
	const n = 32

	uniform := make([]uint8, n)
	for i := range uniform {
		uniform[i] = 0xFF
	}
	assert.Equal(t, -1, FirstMismatch(pack(uniform), n, 0xFF))
	assert.Equal(t, 0, FirstMismatch(pack(uniform), n, 0))

	for _, pos := range []int{0, 3, 7, 8, 15, 16, n - 1} {
		states := make([]uint8, n)
		for i := range states {
			states[i] = 0xFF
		}
		states[pos] = 0x42
		assert.Equal(t, pos, FirstMismatch(pack(states), n, 0xFF), "mismatch at %d", pos)
	}
}

func TestFirstMismatchLeftmost(t *testing.T) {
	const n = 64
	states := make([]uint8, n)
	states[10] = 1
	states[40] = 2
	assert.Equal(t, 10, FirstMismatch(pack(states), n, 0))
}
