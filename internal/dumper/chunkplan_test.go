package dumper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cado-security/varc-go/internal/model"
)

func sumLens(chunks []model.Chunk) uint64 {
	var total uint64
	for _, c := range chunks {
		total += c.Len
	}
	return total
}

func TestChunkPlanSmallRegionIsOneChunk(t *testing.T) {
	r := model.Region{Start: 0x1000, End: 0x1000 + 100}
	plan := ChunkPlan(r, 256)
	require.Len(t, plan, 1)
	require.Equal(t, uint64(100), plan[0].Len)
	require.Equal(t, r.Start, plan[0].Addr)
}

func TestChunkPlanExactlyMaxChunk(t *testing.T) {
	const maxChunk = 256
	r := model.Region{Start: 0, End: maxChunk}
	plan := ChunkPlan(r, maxChunk)
	require.Len(t, plan, 1)
	require.Equal(t, uint64(maxChunk), plan[0].Len)
}

func TestChunkPlanJustOverMaxChunk(t *testing.T) {
	const maxChunk = 256
	r := model.Region{Start: 0, End: maxChunk + 1}
	plan := ChunkPlan(r, maxChunk)
	require.Len(t, plan, 2)
	for _, c := range plan {
		require.LessOrEqual(t, c.Len, uint64(maxChunk))
	}
	require.Equal(t, uint64(maxChunk+1), sumLens(plan))
}

func TestChunkPlanCoversLengthExactlyAndNoPieceOverLimit(t *testing.T) {
	const maxChunk = 10
	lengths := []uint64{1, 9, 10, 11, 19, 20, 21, 99, 1000}
	for _, l := range lengths {
		r := model.Region{Start: 5, End: 5 + l}
		plan := ChunkPlan(r, maxChunk)
		require.Equal(t, l, sumLens(plan), "length %d", l)
		addr := r.Start
		for _, c := range plan {
			require.LessOrEqual(t, c.Len, uint64(maxChunk), "length %d", l)
			require.Equal(t, addr, c.Addr, "length %d", l)
			addr += c.Len
		}
		require.Equal(t, r.End, addr, "length %d", l)
	}
}

func TestChunkPlanEmptyRegion(t *testing.T) {
	r := model.Region{Start: 10, End: 10}
	require.Empty(t, ChunkPlan(r, 256))
}
