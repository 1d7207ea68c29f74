package vertex

import (
	"errors"
	"testing"
)

func TestNormalizePTS(t *testing.T) {
	f, err := NormalizePTS("1.0 2.0 3.0 -1204 255 0 128\n")
	if err != nil {
		t.Fatal(err)
	}
	want := Fields{"1.0", "2.0", "3.0", "255", "0", "128"}
	if f != want {
		t.Fatalf("got %v, want %v", f, want)
	}
	if _, err := NormalizePTS("1 2 3 4 5 6"); !errors.Is(err, ErrFieldCount) {
		t.Fatalf("short pts line: %v", err)
	}
}

func TestNormalizeXYZ(t *testing.T) {
	cases := []struct {
		line string
		want Fields
		err  error
	}{
		{"1.0 2.0 3.0 255 0 128", Fields{"1.0", "2.0", "3.0", "255", "0", "128"}, nil},
		{"a b 1.0 2.0 3.0 255 0 128", Fields{"1.0", "2.0", "3.0", "255", "0", "128"}, nil},
		{"  1\t2   3 4 5 6  \r\n", Fields{"1", "2", "3", "4", "5", "6"}, nil},
		{"1 2 3 4 5 6 7", Fields{}, ErrFieldCount},
		{"1 2 3", Fields{}, ErrFieldCount},
		{"", Fields{}, ErrFieldCount},
	}
	for _, c := range cases {
		got, err := NormalizeXYZ(c.line)
		if !errors.Is(err, c.err) {
			t.Fatalf("%q: err=%v, want %v", c.line, err, c.err)
		}
		if err == nil && got != c.want {
			t.Fatalf("%q: got %v, want %v", c.line, got, c.want)
		}
	}
}

func TestNormalizeDispatch(t *testing.T) {
	if _, err := Normalize(PCD, "1 2 3 4 5 6"); !errors.Is(err, ErrUnsupportDialect) {
		t.Fatalf("pcd is not a text dialect: %v", err)
	}
	f, err := Normalize(XYZ, "1 2 3 4 5 6")
	if err != nil || f[5] != "6" {
		t.Fatalf("xyz dispatch: %v %v", f, err)
	}
}

func TestAppendText(t *testing.T) {
	got := string(Fields{"1.0", "2.0", "3.0", "255", "0", "0"}.AppendText([]byte("> ")))
	if got != "> 1.0 2.0 3.0 255 0 0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDialectFromPath(t *testing.T) {
	cases := map[string]Dialect{
		"scan.pts":          PTS,
		"/data/Scan.XYZ":    XYZ,
		"cloud.pcd":         PCD,
		"000001.bin":        BIN,
		"dir.v2/points.pts": PTS,
	}
	for p, want := range cases {
		got, err := DialectFromPath(p)
		if err != nil || got != want {
			t.Fatalf("%s: got %v %v, want %v", p, got, err, want)
		}
	}
	if _, err := DialectFromPath("model.obj"); !errors.Is(err, ErrUnsupportDialect) {
		t.Fatalf("obj: %v", err)
	}
	if !PTS.Text() || !XYZ.Text() || PCD.Text() || BIN.Text() {
		t.Fatal("Text() mismatch")
	}
}
