package dumper

import "github.com/cado-security/varc-go/internal/model"

// ChunkPlan decomposes region into pieces each no larger than maxChunk,
// covering region.Len() bytes exactly with no gaps. It uses floor-division
// with a remainder, per spec.md §9's first Open Question: the original
// Python implementation truncates then recomputes the per-piece size
// (`page_len = int(page_len / sub_chunk_count)`), which can leave a final
// piece larger than MAX_CHUNK when the region length isn't evenly
// divisible. This implementation instead computes `count := ceil(L /
// maxChunk)` pieces of floor(L / count) bytes and adds one byte to each of
// the first L % count pieces, so the pieces differ by at most one byte and
// every piece is guaranteed <= maxChunk.
func ChunkPlan(region model.Region, maxChunk uint64) []model.Chunk {
	length := region.Len()
	if length == 0 {
		return nil
	}
	if length <= maxChunk {
		return []model.Chunk{{Addr: region.Start, Len: length}}
	}

	count := length / maxChunk
	if length%maxChunk != 0 {
		count++
	}
	base := length / count
	remainder := length % count

	chunks := make([]model.Chunk, 0, count)
	addr := region.Start
	var emitted uint64
	for i := uint64(0); i < count; i++ {
		size := base
		if i == count-1 {
			// The final piece takes whatever is left, so the total sums to
			// length exactly; the early pieces have already absorbed the
			// remainder (remainder < count), so this is base bytes.
			size = length - emitted
		} else if remainder > 0 {
			// Distribute the remainder across the early pieces one byte at
			// a time so no single piece overshoots maxChunk.
			size++
			remainder--
		}
		chunks = append(chunks, model.Chunk{Addr: addr, Len: size})
		addr += size
		emitted += size
	}
	return chunks
}
