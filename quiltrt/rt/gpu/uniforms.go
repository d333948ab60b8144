package gpu

import (
	"encoding/binary"
	"math"
)

// UniformBlock packs little-endian 32-bit words in declaration order. Callers
// keep WGSL alignment themselves with Pad.
type UniformBlock []byte

func (b UniformBlock) F32(vs ...float32) UniformBlock {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func (b UniformBlock) I32(vs ...int32) UniformBlock {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// Pad appends n zero words.
func (b UniformBlock) Pad(n int) UniformBlock {
	for i := 0; i < n; i++ {
		b = binary.LittleEndian.AppendUint32(b, 0)
	}
	return b
}

func (b UniformBlock) Bytes() []byte { return b }
