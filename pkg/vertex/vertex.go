package vertex

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportDialect = errors.New("unsupport point cloud dialect")
	ErrFieldCount       = errors.New("unexpected field count")
)

type Dialect int

const (
	PTS Dialect = iota
	XYZ
	PCD
	BIN
)

func (d Dialect) String() string {
	switch d {
	case PTS:
		return "pts"
	case XYZ:
		return "xyz"
	case PCD:
		return "pcd"
	case BIN:
		return "bin"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Text reports whether the dialect is a line oriented text format.
func (d Dialect) Text() bool {
	return d == PTS || d == XYZ
}

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "pts":
		return PTS, nil
	case "xyz":
		return XYZ, nil
	case "pcd":
		return PCD, nil
	case "bin":
		return BIN, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportDialect, s)
}

func DialectFromPath(p string) (Dialect, error) {
	return ParseDialect(filepath.Ext(p))
}

// Fields holds one vertex as text: x y z red green blue.
type Fields [6]string

// Record is a normalized vertex and the 1-based input line it came from.
// Line is 0 for sources without lines.
type Record struct {
	Line   int
	Fields Fields
}

// AppendText appends the fields joined by single spaces and a newline.
func (f Fields) AppendText(dst []byte) []byte {
	for i, s := range f {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, s...)
	}
	return append(dst, '\n')
}

// NormalizePTS takes "x y z intensity r g b" and drops the intensity.
func NormalizePTS(line string) (f Fields, err error) {
	tok := strings.Fields(line)
	if len(tok) != 7 {
		return f, fmt.Errorf("%w: pts wants 7, got %d", ErrFieldCount, len(tok))
	}
	copy(f[:3], tok[:3])
	copy(f[3:], tok[4:])
	return f, nil
}

// NormalizeXYZ accepts "x y z r g b", or 8 tokens whose first two are not
// positional and get dropped.
func NormalizeXYZ(line string) (f Fields, err error) {
	tok := strings.Fields(line)
	switch len(tok) {
	case 6:
	case 8:
		tok = tok[2:]
	default:
		return f, fmt.Errorf("%w: xyz wants 6 or 8, got %d", ErrFieldCount, len(tok))
	}
	copy(f[:], tok)
	return f, nil
}

// Normalize dispatches to the text normalizer of d.
func Normalize(d Dialect, line string) (Fields, error) {
	switch d {
	case PTS:
		return NormalizePTS(line)
	case XYZ:
		return NormalizeXYZ(line)
	}
	return Fields{}, fmt.Errorf("%w: %s is not a text dialect", ErrUnsupportDialect, d)
}

// Blank reports whether a line carries no tokens.
func Blank(line string) bool {
	return strings.TrimSpace(line) == ""
}
