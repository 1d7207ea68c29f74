package pcd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"text2ply/pkg/vertex"
)

// BinPointDataLen is one KITTI velodyne point: x y z intensity as float32.
const BinPointDataLen = 4 * 4

var (
	ErrInvalidDataFormat = errors.New("invalid data")
)

// BinCount derives the point count of a .bin file from its size.
func BinCount(size int64) (int, error) {
	if size < 0 || size%BinPointDataLen != 0 {
		return 0, ErrInvalidDataFormat
	}
	return int(size / BinPointDataLen), nil
}

// BinReader streams a .bin file. Intensity is dropped and every point gets
// the same color.
type BinReader struct {
	r     *bufio.Reader
	color Color
	data  [BinPointDataLen]byte
}

func NewBinReader(r io.Reader, color Color) *BinReader {
	return &BinReader{r: bufio.NewReader(r), color: color}
}

func (b *BinReader) Next(max int) ([]vertex.Record, error) {
	var recs []vertex.Record
	for len(recs) < max {
		_, err := io.ReadFull(b.r, b.data[:])
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, ErrInvalidDataFormat
			}
			if err == io.EOF {
				break
			}
			return nil, err
		}
		recs = append(recs, vertex.Record{Fields: b.color.fields(
			math.Float32frombits(binary.LittleEndian.Uint32(b.data[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b.data[4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b.data[8:])),
		)})
	}
	if len(recs) == 0 {
		return nil, io.EOF
	}
	return recs, nil
}
