package embcache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cached vectors are stored as packed little-endian float32 values, the same
// layout the document index uses for its VECTOR field.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(data))
	}
	v := make([]float32, 0, len(data)/4)
	for b := data; len(b) > 0; b = b[4:] {
		v = append(v, math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return v, nil
}
