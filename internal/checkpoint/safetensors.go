package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Tensor is an F32 tensor with a row-major flat payload.
type Tensor struct {
	Shape []int
	Data  []float32
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// WriteTensors writes the tensors to path in safetensors format: an 8-byte
// LE header length, a JSON header mapping tensor names to dtype/shape/data
// offsets, then the concatenated little-endian F32 payloads. Tensors are
// laid out in sorted name order so output is reproducible.
func WriteTensors(path string, tensors map[string]Tensor) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]tensorMeta, len(tensors))
	offset := 0
	for _, name := range names {
		t := tensors[name]
		n := 1
		for _, d := range t.Shape {
			n *= d
		}
		if n != len(t.Data) {
			return fmt.Errorf("safetensors: %s: shape %v does not match %d values", name, t.Shape, len(t.Data))
		}
		size := n * 4
		header[name] = tensorMeta{
			Dtype:       "F32",
			Shape:       t.Shape,
			DataOffsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: marshal header: %w", err)
	}

	buf := make([]byte, 8+len(headerJSON)+offset)
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(headerJSON)))
	copy(buf[8:], headerJSON)

	pos := 8 + len(headerJSON)
	for _, name := range names {
		for _, v := range tensors[name].Data {
			binary.LittleEndian.PutUint32(buf[pos:pos+4], math.Float32bits(v))
			pos += 4
		}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	return nil
}

// ReadTensors reads every F32 tensor from a safetensors file.
func ReadTensors(path string) (map[string]Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var header map[string]tensorMeta
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("safetensors: failed to parse header: %w", err)
	}

	dataStart := int(8 + headerLen)
	out := make(map[string]Tensor, len(header))
	for name, meta := range header {
		if meta.Dtype != "F32" {
			return nil, fmt.Errorf("safetensors: %s: expected dtype F32, got %s", name, meta.Dtype)
		}
		n := 1
		for _, d := range meta.Shape {
			n *= d
		}
		start := dataStart + meta.DataOffsets[0]
		end := dataStart + meta.DataOffsets[1]
		if end-start != n*4 {
			return nil, fmt.Errorf("safetensors: %s: data size %d does not match shape %v",
				name, end-start, meta.Shape)
		}
		if start < dataStart || end > len(data) {
			return nil, fmt.Errorf("safetensors: %s: data range [%d:%d] out of bounds", name, start, end)
		}

		values := make([]float32, n)
		for i := range values {
			bits := binary.LittleEndian.Uint32(data[start+i*4 : start+i*4+4])
			values[i] = math.Float32frombits(bits)
		}
		out[name] = Tensor{Shape: append([]int(nil), meta.Shape...), Data: values}
	}
	return out, nil
}
