package weights

import (
	"fmt"
	"io"
	"path/filepath"
)

// Combine concatenates shard tensors along their leading dimension, per key,
// in shard order, and streams the consolidated file to w. Keys and their
// order come from the first shard; every other shard must carry the same keys
// in the same order with matching dtype and trailing dimensions.
func Combine(w io.Writer, shardPaths []string) error {
	if len(shardPaths) == 0 {
		return &ShardMismatchError{Shard: "-", Reason: "no shards to combine"}
	}
	shards := make([]*File, 0, len(shardPaths))
	defer func() {
		for _, s := range shards {
			_ = s.Close()
		}
	}()
	for _, p := range shardPaths {
		s, err := OpenFile(p)
		if err != nil {
			return err
		}
		shards = append(shards, s)
	}

	base := shards[0]
	for _, s := range shards[1:] {
		if err := sameLayout(base, s); err != nil {
			return err
		}
	}
	out := make([]TensorInfo, 0, len(base.Tensors))
	var off int64
	for _, t := range base.Tensors {
		if len(t.Shape) == 0 {
			return &ShardMismatchError{Shard: filepath.Base(base.Path), Key: t.Name, Reason: "scalar tensor has no leading dimension"}
		}
		merged := TensorInfo{Name: t.Name, DType: t.DType, Shape: append([]int64(nil), t.Shape...)}
		merged.Shape[0] = 0
		var size int64
		for _, s := range shards {
			st, ok := s.Tensor(t.Name)
			if !ok {
				return &ShardMismatchError{Shard: filepath.Base(s.Path), Key: t.Name, Reason: "missing key"}
			}
			if err := compatible(t, st); err != "" {
				return &ShardMismatchError{Shard: filepath.Base(s.Path), Key: t.Name, Reason: err}
			}
			merged.Shape[0] += st.Shape[0]
			size += st.Size()
		}
		merged.DataOffsets = [2]int64{off, off + size}
		off += size
		out = append(out, merged)
	}
	header, err := encodeHeader(out, base.Metadata)
	if err != nil {
		return err
	}
	if err := writeHeader(w, header); err != nil {
		return err
	}
	for _, t := range base.Tensors {
		for _, s := range shards {
			st, _ := s.Tensor(t.Name)
			if _, err := io.Copy(w, s.Section(st, 0, st.Size())); err != nil {
				return fmt.Errorf("copy %s from %s: %w", t.Name, filepath.Base(s.Path), err)
			}
		}
	}
	return nil
}

// sameLayout checks that s carries the first shard's keys in the same data
// order. Tensors are already sorted by offset.
func sameLayout(base, s *File) error {
	if len(s.Tensors) != len(base.Tensors) {
		return &ShardMismatchError{
			Shard:  filepath.Base(s.Path),
			Reason: fmt.Sprintf("has %d tensors, first shard has %d", len(s.Tensors), len(base.Tensors)),
		}
	}
	for i, t := range base.Tensors {
		if got := s.Tensors[i].Name; got != t.Name {
			return &ShardMismatchError{
				Shard:  filepath.Base(s.Path),
				Key:    t.Name,
				Reason: fmt.Sprintf("key order differs at position %d: found %s", i, got),
			}
		}
	}
	return nil
}

func compatible(a, b TensorInfo) string {
	if a.DType != b.DType {
		return fmt.Sprintf("dtype %s != %s", b.DType, a.DType)
	}
	if len(a.Shape) != len(b.Shape) {
		return fmt.Sprintf("rank %d != %d", len(b.Shape), len(a.Shape))
	}
	for i := 1; i < len(a.Shape); i++ {
		if a.Shape[i] != b.Shape[i] {
			return fmt.Sprintf("shape %v incompatible with %v", b.Shape, a.Shape)
		}
	}
	return ""
}
