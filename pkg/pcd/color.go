package pcd

import (
	"strconv"

	"text2ply/pkg/vertex"
)

// Color is used for points whose source carries no color.
type Color [3]uint8

var White = Color{255, 255, 255}

func unpackRGB(v uint32) Color {
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

func (c Color) fields(x, y, z float32) vertex.Fields {
	return vertex.Fields{
		strconv.FormatFloat(float64(x), 'g', -1, 32),
		strconv.FormatFloat(float64(y), 'g', -1, 32),
		strconv.FormatFloat(float64(z), 'g', -1, 32),
		strconv.Itoa(int(c[0])),
		strconv.Itoa(int(c[1])),
		strconv.Itoa(int(c[2])),
	}
}
