package background

import (
	"encoding/binary"

	"github.com/zlttech/irfusion/quadtree"
)

// encodeBlobs packs leaves into a fixed-size block so the blob ring can be
// used like every other ring in the pipeline — one frame, one fixed size —
// even though the number of leaves a decomposition produces varies. The
// block layout is a 4-byte leaf count followed by up to (blockSize-4)/20
// fixed-size 20-byte blob records (top, left, bottom, right, range as
// int32); unused trailing record slots are zeroed.
func encodeBlobs(leaves []quadtree.Blob, blockSize int) []byte {
	block := make([]byte, blockSize)
	maxRecords := (blockSize - 4) / blobRecordSize
	n := len(leaves)
	if n > maxRecords {
		n = maxRecords
	}
	binary.LittleEndian.PutUint32(block[0:4], uint32(n))
	for i := 0; i < n; i++ {
		off := 4 + i*blobRecordSize
		b := leaves[i]
		binary.LittleEndian.PutUint32(block[off:], uint32(int32(b.Quad.Top)))
		binary.LittleEndian.PutUint32(block[off+4:], uint32(int32(b.Quad.Left)))
		binary.LittleEndian.PutUint32(block[off+8:], uint32(int32(b.Quad.Bottom)))
		binary.LittleEndian.PutUint32(block[off+12:], uint32(int32(b.Quad.Right)))
		binary.LittleEndian.PutUint32(block[off+16:], uint32(int32(b.Range)))
	}
	return block
}

func decodeBlobs(block []byte) []quadtree.Blob {
	n := int(binary.LittleEndian.Uint32(block[0:4]))
	out := make([]quadtree.Blob, 0, n)
	for i := 0; i < n; i++ {
		off := 4 + i*blobRecordSize
		out = append(out, quadtree.Blob{
			Quad: quadtree.Quadrant{
				Top:    int(int32(binary.LittleEndian.Uint32(block[off:]))),
				Left:   int(int32(binary.LittleEndian.Uint32(block[off+4:]))),
				Bottom: int(int32(binary.LittleEndian.Uint32(block[off+8:]))),
				Right:  int(int32(binary.LittleEndian.Uint32(block[off+12:]))),
			},
			Range: int(int32(binary.LittleEndian.Uint32(block[off+16:]))),
		})
	}
	return out
}
