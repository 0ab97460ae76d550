package weights

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sumd/internal/common/fsutil"
)

// Split cuts a consolidated safetensors file into n shards named
// model_part1..n in outDir. Each tensor is sliced along its leading dimension
// into chunks of ceil(rows/n) rows; trailing shards may hold zero rows.
// It returns the shard paths in index order.
func Split(src string, n int, outDir, ext string) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("split count must be >= 1, got %d", n)
	}
	in, err := OpenFile(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	for _, t := range in.Tensors {
		if len(t.Shape) == 0 {
			return nil, &ShardMismatchError{Shard: filepath.Base(src), Key: t.Name, Reason: "scalar tensor cannot be split"}
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		type slice struct {
			t          TensorInfo
			from, to   int64
			partTensor TensorInfo
		}
		var parts []slice
		var off int64
		for _, t := range in.Tensors {
			rows := t.Shape[0]
			chunk := (rows + int64(n) - 1) / int64(n)
			start := min64(int64(i)*chunk, rows)
			end := min64(int64(i+1)*chunk, rows)
			var rowBytes int64
			if rows > 0 {
				rowBytes = t.Size() / rows
			}
			pt := TensorInfo{Name: t.Name, DType: t.DType, Shape: append([]int64(nil), t.Shape...)}
			pt.Shape[0] = end - start
			size := (end - start) * rowBytes
			pt.DataOffsets = [2]int64{off, off + size}
			off += size
			parts = append(parts, slice{t: t, from: start * rowBytes, to: end * rowBytes, partTensor: pt})
		}
		tensors := make([]TensorInfo, len(parts))
		for j, p := range parts {
			tensors[j] = p.partTensor
		}
		header, err := encodeHeader(tensors, in.Metadata)
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(outDir, ShardName(i+1, ext))
		err = fsutil.WriteAtomic(dst, func(w io.Writer) error {
			if err := writeHeader(w, header); err != nil {
				return err
			}
			for _, p := range parts {
				if _, err := io.Copy(w, in.Section(p.t, p.from, p.to)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", dst, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
