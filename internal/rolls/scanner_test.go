// File: internal/rolls/scanner_test.go
package rolls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRangesSplitsWindow(t *testing.T) {
	ranges := chunkRanges(0, 99, 50)
	require.Len(t, ranges, 2)
	assert.Equal(t, blockRange{From: 0, To: 49}, ranges[0])
	assert.Equal(t, blockRange{From: 50, To: 99}, ranges[1])
}

func TestChunkRangesPartialTail(t *testing.T) {
	ranges := chunkRanges(100, 219, 50)
	require.Len(t, ranges, 3)
	assert.Equal(t, blockRange{From: 100, To: 149}, ranges[0])
	assert.Equal(t, blockRange{From: 150, To: 199}, ranges[1])
	assert.Equal(t, blockRange{From: 200, To: 219}, ranges[2])
}

func TestChunkRangesSingleBlock(t *testing.T) {
	ranges := chunkRanges(42, 42, 5000)
	require.Len(t, ranges, 1)
	assert.Equal(t, blockRange{From: 42, To: 42}, ranges[0])
}

func TestChunkRangesWindowSmallerThanChunk(t *testing.T) {
	ranges := chunkRanges(10, 20, 5000)
	require.Len(t, ranges, 1)
	assert.Equal(t, blockRange{From: 10, To: 20}, ranges[0])
}

func TestChunkRangesCoverWholeWindow(t *testing.T) {
	from, to := uint64(1000), uint64(13337)
	ranges := chunkRanges(from, to, 777)

	require.NotEmpty(t, ranges)
	assert.Equal(t, from, ranges[0].From)
	assert.Equal(t, to, ranges[len(ranges)-1].To)

	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1].To+1, ranges[i].From, "chunks must be contiguous")
	}
	for _, r := range ranges {
		assert.LessOrEqual(t, r.To-r.From+1, uint64(777), "chunk must not exceed configured size")
	}
}

func TestChunkRangesInvalidInput(t *testing.T) {
	assert.Nil(t, chunkRanges(100, 50, 10), "inverted window yields no chunks")
	assert.Nil(t, chunkRanges(0, 100, 0), "zero chunk size yields no chunks")
}
