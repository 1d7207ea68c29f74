package ply

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnsupportEncoding  = errors.New("unsupport ply encoding")
	ErrUnsupportByteOrder = errors.New("unsupport ply byte order")
	ErrInvalidPosition    = errors.New("invalid vertex position")
	ErrInvalidColor       = errors.New("invalid vertex color")
)

const Version = "1.0"

// Format is the body encoding declared on the header format line.
type Format int

const (
	ASCII Format = iota
	BinaryLittleEndian
	BinaryBigEndian
)

func (f Format) String() string {
	switch f {
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	default:
		return "ascii"
	}
}

func (f Format) Binary() bool {
	return f == BinaryLittleEndian || f == BinaryBigEndian
}

// ByteOrder returns nil for ASCII.
func (f Format) ByteOrder() binary.ByteOrder {
	switch f {
	case BinaryLittleEndian:
		return binary.LittleEndian
	case BinaryBigEndian:
		return binary.BigEndian
	default:
		return nil
	}
}

// NativeFormat is the binary format matching the byte order of the running host.
func NativeFormat() Format {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return BinaryLittleEndian
	}
	return BinaryBigEndian
}

// ParseFormat resolves the encoding ("ascii" or "binary") and, for binary
// output, the byte order ("native", "little" or "big"; empty means native).
func ParseFormat(encoding, byteOrder string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "ascii":
		return ASCII, nil
	case "binary":
	default:
		return ASCII, fmt.Errorf("%w: %q", ErrUnsupportEncoding, encoding)
	}
	switch strings.ToLower(strings.TrimSpace(byteOrder)) {
	case "", "native":
		return NativeFormat(), nil
	case "little":
		return BinaryLittleEndian, nil
	case "big":
		return BinaryBigEndian, nil
	default:
		return ASCII, fmt.Errorf("%w: %q", ErrUnsupportByteOrder, byteOrder)
	}
}

// Header describes a PLY file holding a single vertex element with double
// positions and uchar colors. It is a value: build it once and pass it around.
type Header struct {
	Format   Format
	Vertices int
	Comments []string
}

var vertexProperties = []string{
	"property double x",
	"property double y",
	"property double z",
	"property uchar red",
	"property uchar green",
	"property uchar blue",
}

// Lines returns the header declarations without line terminators.
func (h Header) Lines() []string {
	lines := make([]string, 0, 4+len(h.Comments)+len(vertexProperties))
	lines = append(lines, "ply", fmt.Sprintf("format %s %s", h.Format, Version))
	for _, c := range h.Comments {
		lines = append(lines, "comment "+strings.ReplaceAll(c, "\n", " "))
	}
	lines = append(lines, fmt.Sprintf("element vertex %d", h.Vertices))
	lines = append(lines, vertexProperties...)
	return append(lines, "end_header")
}

// WriteTo writes the header block, every line terminated by '\n'.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	byf := bytes.NewBuffer(make([]byte, 0, 200))
	for _, l := range h.Lines() {
		byf.WriteString(l)
		byf.WriteByte('\n')
	}
	n, err := w.Write(byf.Bytes())
	return int64(n), err
}

// RecordSize is the size of one binary vertex: 3 float64 + 3 uint8.
const RecordSize = 3*8 + 3

// FieldError reports the token that could not be packed.
type FieldError struct {
	Index int
	Token string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d %q: %v", e.Index, e.Token, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Pack appends the binary form of [x y z r g b] to dst in the given byte order.
func Pack(dst []byte, order binary.ByteOrder, fields [6]string) ([]byte, error) {
	var rec [RecordSize]byte
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return dst, &FieldError{Index: i, Token: fields[i], Err: fmt.Errorf("%w: %v", ErrInvalidPosition, err)}
		}
		order.PutUint64(rec[i*8:], math.Float64bits(v))
	}
	for i := 3; i < 6; i++ {
		v, err := strconv.ParseInt(fields[i], 10, 16)
		if err != nil {
			return dst, &FieldError{Index: i, Token: fields[i], Err: fmt.Errorf("%w: %v", ErrInvalidColor, err)}
		}
		// signed tokens such as "+5" or "-0" are accepted while in range
		if v < 0 || v > math.MaxUint8 {
			return dst, &FieldError{Index: i, Token: fields[i], Err: fmt.Errorf("%w: %d out of range", ErrInvalidColor, v)}
		}
		rec[24+i-3] = byte(v)
	}
	return append(dst, rec[:]...), nil
}
