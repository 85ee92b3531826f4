package arrayio

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/dataset"
	"github.com/born-ml/tiled/internal/ndarray"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// DefaultTensorName names the array written by WriteSafeTensors when none is given.
const DefaultTensorName = "image"

// Metadata keys written to the SafeTensors __metadata__ section.
const (
	MetaAxes     = "axes"
	MetaChecksum = "sha256"
)

const maxHeaderSize = 100 * 1024 * 1024

// tensorInfo describes a tensor in the SafeTensors header.
type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end]
}

type header struct {
	Metadata map[string]string
	Tensors  map[string]tensorInfo
}

func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}
	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return errors.Wrap(err, "failed to unmarshal metadata")
		}
	}
	h.Tensors = make(map[string]tensorInfo)
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return errors.Wrapf(err, "failed to unmarshal tensor %s", key)
		}
		h.Tensors[key] = info
	}
	return nil
}

// ReadSafeTensors reads tensor name from a SafeTensors file and converts it
// to float32. An empty name selects the only tensor of the file. Axes are
// taken from the "axes" metadata entry when present; a "sha256" entry is
// checked against the tensor bytes.
func ReadSafeTensors(path, name string) (dataset.Dataset, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for array loading.
	f, err := os.Open(path)
	if err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "failed to open file")
	}
	defer func() {
		_ = f.Close()
	}()

	var headerSize uint64
	if err := binary.Read(f, binary.LittleEndian, &headerSize); err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > maxHeaderSize {
		return dataset.Dataset{}, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "failed to read header")
	}
	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "failed to parse header JSON")
	}

	if name == "" {
		if len(h.Tensors) != 1 {
			return dataset.Dataset{}, errors.Errorf("%s holds %d tensors, name one of %v", path, len(h.Tensors), tensorNames(h))
		}
		for n := range h.Tensors {
			name = n
		}
	}
	info, ok := h.Tensors[name]
	if !ok {
		return dataset.Dataset{}, errors.Errorf("tensor %s not found in %s", name, path)
	}

	size, err := dtypeSize(info.DType)
	if err != nil {
		return dataset.Dataset{}, errors.WithMessagef(err, "tensor %s", name)
	}
	shape := ndarray.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "invalid shape for tensor %s", name)
	}
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || (end-start)%int64(size) != 0 || (end-start)/int64(size) != int64(shape.NumElements()) {
		return dataset.Dataset{}, errors.Wrapf(ErrOutOfBounds, "tensor %s: offsets [%d, %d] for %v %s",
			name, start, end, shape, info.DType)
	}

	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: header size bounded by maxHeaderSize.
	if _, err := f.Seek(dataOffset+start, io.SeekStart); err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "failed to seek to tensor data")
	}
	raw := make([]byte, end-start)
	if _, err := io.ReadFull(f, raw); err != nil {
		return dataset.Dataset{}, errors.Wrapf(ErrOutOfBounds, "tensor %s: %v", name, err)
	}

	if sum, ok := h.Metadata[MetaChecksum]; ok {
		got := sha256.Sum256(raw)
		if hex.EncodeToString(got[:]) != sum {
			return dataset.Dataset{}, errors.Wrapf(ErrChecksumMismatch, "tensor %s", name)
		}
	}

	a, err := ndarray.New(shape)
	if err != nil {
		return dataset.Dataset{}, err
	}
	decode(a.Data(), raw, info.DType)

	d := dataset.Dataset{Data: a}
	if s, ok := h.Metadata[MetaAxes]; ok {
		if d.Axes, err = axes.Parse(s); err != nil {
			return dataset.Dataset{}, errors.WithMessagef(err, "tensor %s", name)
		}
	}
	return d, nil
}

// WriteSafeTensors writes d as a single F32 tensor with its axes and a
// checksum in the metadata.
func WriteSafeTensors(path, name string, d dataset.Dataset) error {
	if name == "" {
		name = DefaultTensorName
	}
	if d.Data == nil {
		return errors.New("no data to write")
	}

	data := make([]byte, d.Data.NumElements()*4)
	for i, v := range d.Data.Data() {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	sum := sha256.Sum256(data)

	metadata := map[string]string{MetaChecksum: hex.EncodeToString(sum[:])}
	if len(d.Axes) > 0 {
		metadata[MetaAxes] = axes.String(d.Axes)
	}
	hdr := map[string]any{
		"__metadata__": metadata,
		name: tensorInfo{
			DType:       "F32",
			Shape:       d.Data.Shape().Clone(),
			DataOffsets: [2]int64{0, int64(len(data))},
		},
	}
	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	buf.Write(headerJSON)
	buf.Write(data)

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

func dtypeSize(dtype string) (int, error) {
	switch dtype {
	case "F32", "I32":
		return 4, nil
	case "F64", "I64":
		return 8, nil
	case "U8":
		return 1, nil
	default:
		return 0, errors.Wrap(ErrUnsupportedDType, dtype)
	}
}

func decode(dst []float32, src []byte, dtype string) {
	le := binary.LittleEndian
	for i := range dst {
		switch dtype {
		case "F32":
			dst[i] = math.Float32frombits(le.Uint32(src[i*4:]))
		case "F64":
			dst[i] = float32(math.Float64frombits(le.Uint64(src[i*8:])))
		case "I32":
			dst[i] = float32(int32(le.Uint32(src[i*4:]))) //nolint:gosec // G115: two's complement reinterpretation.
		case "I64":
			dst[i] = float32(int64(le.Uint64(src[i*8:]))) //nolint:gosec // G115: two's complement reinterpretation.
		case "U8":
			dst[i] = float32(src[i])
		}
	}
}

func tensorNames(h header) []string {
	names := make([]string, 0, len(h.Tensors))
	for n := range h.Tensors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
