package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dtype is a simple zarr data type in NumPy typestr form, e.g. "<f4".
// It consists of a byte order ('<' little-endian, '>' big-endian, '|' not
// relevant), a basic type code and the size in bytes.
type Dtype struct {
	ByteOrder byte
	BasicType byte
	ByteSize  int
}

// Basic type codes understood by this package.
const (
	BTBoolean       byte = 'b'
	BTInteger       byte = 'i'
	BTUnsigned      byte = 'u'
	BTFloatingPoint byte = 'f'
)

// Float32 is the dtype arrays are written with.
var Float32 = Dtype{ByteOrder: '<', BasicType: BTFloatingPoint, ByteSize: 4}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = Dtype{}
)

// ParseDtype reads a typestr.
func ParseDtype(s string) (Dtype, error) {
	// Some writers HTML-escape the byte order.
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)
	if len(s) < 3 {
		return Dtype{}, errors.Errorf("invalid dtype %q: too short", s)
	}
	dt := Dtype{ByteOrder: s[0], BasicType: s[1]}
	switch dt.ByteOrder {
	case '<', '>', '|':
	default:
		return Dtype{}, errors.Errorf("invalid dtype %q: byte order %q", s, dt.ByteOrder)
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return Dtype{}, errors.Wrapf(err, "invalid dtype %q", s)
	}
	dt.ByteSize = size
	if err := dt.validate(); err != nil {
		return Dtype{}, err
	}
	return dt, nil
}

func (dt Dtype) validate() error {
	ok := false
	switch dt.BasicType {
	case BTBoolean:
		ok = dt.ByteSize == 1
	case BTInteger, BTUnsigned:
		ok = dt.ByteSize == 1 || dt.ByteSize == 2 || dt.ByteSize == 4 || dt.ByteSize == 8
	case BTFloatingPoint:
		ok = dt.ByteSize == 4 || dt.ByteSize == 8
	}
	if !ok {
		return errors.Errorf("unsupported dtype %s", dt)
	}
	return nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%c%c%d", dt.ByteOrder, dt.BasicType, dt.ByteSize)
}

// MarshalJSON encodes the typestr.
func (dt Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON decodes a typestr. Structured dtypes are rejected.
func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return errors.Wrap(err, "only simple dtypes are supported")
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}
	*dt = t
	return nil
}

func (dt Dtype) order() binary.ByteOrder {
	if dt.ByteOrder == '>' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Decode converts raw values to float32. len(src) must be len(dst)*ByteSize.
func (dt Dtype) Decode(dst []float32, src []byte) error {
	if len(src) != len(dst)*dt.ByteSize {
		return errors.Errorf("decode %s: %d bytes for %d values", dt, len(src), len(dst))
	}
	bo := dt.order()
	n := dt.ByteSize
	for i := range dst {
		b := src[i*n : (i+1)*n]
		var v float64
		switch dt.BasicType {
		case BTFloatingPoint:
			if n == 4 {
				v = float64(math.Float32frombits(bo.Uint32(b)))
			} else {
				v = math.Float64frombits(bo.Uint64(b))
			}
		case BTInteger:
			v = float64(signed(bo, b))
		case BTUnsigned, BTBoolean:
			v = float64(unsigned(bo, b))
		}
		dst[i] = float32(v)
	}
	return nil
}

// Encode converts float32 values to raw bytes of a floating point dtype.
func (dt Dtype) Encode(src []float32) ([]byte, error) {
	if dt.BasicType != BTFloatingPoint {
		return nil, errors.Errorf("encode: unsupported dtype %s", dt)
	}
	bo := dt.order()
	out := make([]byte, len(src)*dt.ByteSize)
	for i, v := range src {
		if dt.ByteSize == 4 {
			bo.PutUint32(out[i*4:], math.Float32bits(v))
		} else {
			bo.PutUint64(out[i*8:], math.Float64bits(float64(v)))
		}
	}
	return out, nil
}

func unsigned(bo binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	default:
		return bo.Uint64(b)
	}
}

func signed(bo binary.ByteOrder, b []byte) int64 {
	switch len(b) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(bo.Uint16(b)))
	case 4:
		return int64(int32(bo.Uint32(b)))
	default:
		return int64(bo.Uint64(b)) //nolint:gosec // G115: two's complement reinterpretation.
	}
}
