package pcd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seqsense/pcgol/pc"

	"text2ply/pkg/vertex"
)

var (
	ErrInvalidPcdFormat  = errors.New("invalid pcd format")
	ErrUnsupportRgbField = errors.New("unsupport pcd rgb field")
)

// Count reads the PCD header only and returns the number of points.
func Count(r io.Reader) (int, error) {
	bio := bufio.NewReader(r)
	var width, height, points = -1, -1, -1
	for {
		line, rerr := bio.ReadString('\n')
		if rerr == io.EOF && line == "" {
			return 0, fmt.Errorf("%w: header without DATA", ErrInvalidPcdFormat)
		}
		if rerr != nil && rerr != io.EOF {
			return 0, rerr
		}
		h := strings.Fields(line)
		if len(h) == 0 || strings.HasPrefix(h[0], "#") {
			continue
		}
		var err error
		switch h[0] {
		case "WIDTH":
			width, err = headerInt(h)
		case "HEIGHT":
			height, err = headerInt(h)
		case "POINTS":
			points, err = headerInt(h)
		case "DATA":
			if points >= 0 {
				return points, nil
			}
			if width >= 0 && height >= 0 {
				return width * height, nil
			}
			return 0, fmt.Errorf("%w: no POINTS or WIDTH/HEIGHT", ErrInvalidPcdFormat)
		}
		if err != nil {
			return 0, err
		}
	}
}

func headerInt(h []string) (int, error) {
	if len(h) != 2 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPcdFormat, strings.Join(h, " "))
	}
	v, err := strconv.Atoi(h[1])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid int field %s", ErrInvalidPcdFormat, h[0])
	}
	return v, nil
}

// Cloud is a decoded PCD file handed out in batches of vertex records.
type Cloud struct {
	pp     *pc.PointCloud
	it     pc.Vec3Iterator
	stride int
	rgbOff int
	color  Color
	i      int
}

// Decode reads a whole PCD file. Colors come from a packed rgb/rgba field
// when there is one, otherwise every point gets color.
func Decode(r io.Reader, color Color) (*Cloud, error) {
	pp, err := pc.Unmarshal(r)
	if err != nil {
		return nil, err
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPcdFormat, err)
	}
	c := &Cloud{pp: pp, it: it, rgbOff: -1, color: color}
	for i, f := range pp.Fields {
		if f == "rgb" || f == "rgba" {
			if pp.Size[i] != 4 || pp.Count[i] != 1 {
				return nil, ErrUnsupportRgbField
			}
			c.rgbOff = c.stride
		}
		c.stride += pp.Size[i] * pp.Count[i]
	}
	return c, nil
}

func (c *Cloud) Len() int {
	return c.pp.Points
}

// Next returns up to max records; io.EOF once every point was returned.
func (c *Cloud) Next(max int) ([]vertex.Record, error) {
	if !c.it.IsValid() || c.i >= c.pp.Points {
		return nil, io.EOF
	}
	n := c.pp.Points - c.i
	if n > max {
		n = max
	}
	recs := make([]vertex.Record, 0, n)
	for ; c.it.IsValid() && c.i < c.pp.Points && len(recs) < max; c.it.Incr() {
		v := c.it.Vec3()
		col := c.color
		if c.rgbOff >= 0 {
			col = unpackRGB(binary.LittleEndian.Uint32(c.pp.Data[c.i*c.stride+c.rgbOff:]))
		}
		recs = append(recs, vertex.Record{Fields: col.fields(v[0], v[1], v[2])})
		c.i++
	}
	return recs, nil
}
