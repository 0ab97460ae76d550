package weights

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// maxHeaderBytes bounds the JSON header we are willing to parse (100 MiB, the
// same ceiling the reference safetensors readers use).
const maxHeaderBytes = 100 << 20

const metadataKey = "__metadata__"

// dtypeSizes maps safetensors dtypes to their element size in bytes.
var dtypeSizes = map[string]int64{
	"BOOL": 1, "U8": 1, "I8": 1, "F8_E4M3": 1, "F8_E5M2": 1,
	"U16": 2, "I16": 2, "F16": 2, "BF16": 2,
	"U32": 4, "I32": 4, "F32": 4,
	"U64": 8, "I64": 8, "F64": 8,
}

// TensorInfo is one entry of a safetensors header.
type TensorInfo struct {
	Name        string   `json:"-"`
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Size returns the byte length of the tensor data.
func (t TensorInfo) Size() int64 { return t.DataOffsets[1] - t.DataOffsets[0] }

// File is an opened safetensors file: parsed header plus a handle for
// streaming tensor bytes.
type File struct {
	Path     string
	Tensors  []TensorInfo // ordered by data offset
	Metadata map[string]string

	f        *os.File
	dataBase int64
}

// OpenFile parses the header of a safetensors file. Tensor bytes are read
// lazily through Section.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := readHeader(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return st, nil
}

func readHeader(f *os.File, path string) (*File, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%s: read header length: %w", path, err)
	}
	if n == 0 || n > maxHeaderBytes || int64(n)+8 > fi.Size() {
		return nil, fmt.Errorf("%s: invalid header length %d", path, n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%s: decode header: %w", path, err)
	}
	st := &File{Path: path, f: f, dataBase: 8 + int64(n)}
	dataLen := fi.Size() - st.dataBase
	for name, msg := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &st.Metadata); err != nil {
				return nil, fmt.Errorf("%s: decode metadata: %w", path, err)
			}
			continue
		}
		var ti TensorInfo
		if err := json.Unmarshal(msg, &ti); err != nil {
			return nil, fmt.Errorf("%s: tensor %q: %w", path, name, err)
		}
		ti.Name = name
		if ti.DataOffsets[0] < 0 || ti.DataOffsets[1] < ti.DataOffsets[0] || ti.DataOffsets[1] > dataLen {
			return nil, fmt.Errorf("%s: tensor %q: offsets %v out of range", path, name, ti.DataOffsets)
		}
		if es, ok := dtypeSizes[ti.DType]; ok {
			if want := es * elements(ti.Shape); want != ti.Size() {
				return nil, fmt.Errorf("%s: tensor %q: %d bytes for shape %v, want %d", path, name, ti.Size(), ti.Shape, want)
			}
		}
		st.Tensors = append(st.Tensors, ti)
	}
	sort.Slice(st.Tensors, func(i, j int) bool {
		a, b := st.Tensors[i], st.Tensors[j]
		if a.DataOffsets[0] != b.DataOffsets[0] {
			return a.DataOffsets[0] < b.DataOffsets[0]
		}
		return a.Name < b.Name
	})
	return st, nil
}

// Tensor looks up a tensor by name.
func (s *File) Tensor(name string) (TensorInfo, bool) {
	for _, t := range s.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return TensorInfo{}, false
}

// Section returns a reader over the raw bytes [from, to) of a tensor, relative
// to the tensor start.
func (s *File) Section(t TensorInfo, from, to int64) *io.SectionReader {
	return io.NewSectionReader(s.f, s.dataBase+t.DataOffsets[0]+from, to-from)
}

// Close releases the file handle.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func elements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// encodeHeader renders the header with tensors in the given order, padded
// with spaces to an 8-byte boundary.
func encodeHeader(tensors []TensorInfo, metadata map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	if len(metadata) > 0 {
		mb, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"` + metadataKey + `":`)
		buf.Write(mb)
		first = false
	}
	for _, t := range tensors {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		shape := t.Shape
		if shape == nil {
			shape = []int64{}
		}
		vb, err := json.Marshal(TensorInfo{DType: t.DType, Shape: shape, DataOffsets: t.DataOffsets})
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	for buf.Len()%8 != 0 {
		buf.WriteByte(' ')
	}
	return buf.Bytes(), nil
}

// writeHeader writes the 8-byte length prefix followed by the header bytes.
func writeHeader(w io.Writer, header []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(header))); err != nil {
		return err
	}
	_, err := w.Write(header)
	return err
}

// WriteFile writes an in-memory safetensors file. Tensors are laid out in the
// order given; their DataOffsets are computed from data lengths.
func WriteFile(path string, tensors []TensorInfo, data [][]byte, metadata map[string]string) error {
	if len(tensors) != len(data) {
		return fmt.Errorf("tensors/data length mismatch: %d != %d", len(tensors), len(data))
	}
	laid := make([]TensorInfo, len(tensors))
	var off int64
	for i, t := range tensors {
		t.DataOffsets = [2]int64{off, off + int64(len(data[i]))}
		off += int64(len(data[i]))
		laid[i] = t
	}
	header, err := encodeHeader(laid, metadata)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeHeader(f, header); err != nil {
		return err
	}
	for _, d := range data {
		if _, err := f.Write(d); err != nil {
			return err
		}
	}
	return f.Close()
}
