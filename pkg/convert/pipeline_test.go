package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"text2ply/pkg/ply"
	"text2ply/pkg/vertex"
)

const xyzSample = "1.0 2.0 3.0 255 0 0\n" +
	"4.0 5.0 6.0 0 255 0\n" +
	"7.0 8.0 9.0 0 0 255\n"

func asciiHeader(n int) string {
	return "ply\n" +
		"format ascii 1.0\n" +
		fmt.Sprintf("element vertex %d\n", n) +
		"property double x\n" +
		"property double y\n" +
		"property double z\n" +
		"property uchar red\n" +
		"property uchar green\n" +
		"property uchar blue\n" +
		"end_header\n"
}

func run(t *testing.T, dialect vertex.Dialect, readHeader bool, input string, format ply.Format, batch int) ([]byte, Stats, error) {
	t.Helper()
	n, err := CountVertices(strings.NewReader(input), dialect, readHeader)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	src, err := NewLineSource(strings.NewReader(input), dialect)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	p := &Pipeline{Header: ply.Header{Format: format, Vertices: n}, BatchSize: batch}
	st, err := p.Run(context.Background(), src, &out)
	return out.Bytes(), st, err
}

func TestRunXYZAscii(t *testing.T) {
	out, st, err := run(t, vertex.XYZ, false, xyzSample, ply.ASCII, 5000)
	if err != nil {
		t.Fatal(err)
	}
	want := asciiHeader(3) + xyzSample
	if string(out) != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
	if st.Vertices != 3 || st.Batches != 1 || st.Bytes != int64(len(want)) {
		t.Fatalf("stats %+v", st)
	}
}

func TestRunXYZBinary(t *testing.T) {
	format := ply.NativeFormat()
	out, st, err := run(t, vertex.XYZ, false, xyzSample, format, 2)
	if err != nil {
		t.Fatal(err)
	}
	hdr := strings.Replace(asciiHeader(3), "format ascii", "format "+format.String(), 1)
	if !bytes.HasPrefix(out, []byte(hdr)) {
		t.Fatalf("header mismatch:\n%s", out)
	}
	body := out[len(hdr):]
	if len(body) != 3*ply.RecordSize || len(body) != 81 {
		t.Fatalf("body is %d bytes", len(body))
	}
	order := format.ByteOrder()
	for i, want := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		rec := body[(i/3)*ply.RecordSize:]
		if got := math.Float64frombits(order.Uint64(rec[(i%3)*8:])); got != want {
			t.Fatalf("coord %d = %v, want %v", i, got, want)
		}
	}
	if !bytes.Equal(body[2*ply.RecordSize+24:], []byte{0, 0, 255}) {
		t.Fatalf("last colors %v", body[2*ply.RecordSize+24:])
	}
	if st.Batches != 2 {
		t.Fatalf("expect 2 batches, got %d", st.Batches)
	}
}

func TestRunXYZEightTokens(t *testing.T) {
	out, _, err := run(t, vertex.XYZ, false, "a b 1.0 2.0 3.0 255 0 128\n", ply.ASCII, 10)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != asciiHeader(1)+"1.0 2.0 3.0 255 0 128\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunPTS(t *testing.T) {
	body := "1 2 3 -100 10 20 30\n4 5 6 -200 40 50 60\n"
	cases := []struct {
		name       string
		input      string
		readHeader bool
		count      int
	}{
		{"counted", "2\n" + body, false, 2},
		{"header", "2\n" + body, true, 2},
		{"header wins", "7\n" + body, true, 7},
		{"no trailing newline", "2\n" + strings.TrimSuffix(body, "\n"), false, 2},
	}
	for _, c := range cases {
		out, st, err := run(t, vertex.PTS, c.readHeader, c.input, ply.ASCII, 1)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		want := asciiHeader(c.count) + "1 2 3 10 20 30\n4 5 6 40 50 60\n"
		if string(out) != want {
			t.Fatalf("%s: got:\n%s\nwant:\n%s", c.name, out, want)
		}
		if st.Vertices != 2 {
			t.Fatalf("%s: wrote %d vertices", c.name, st.Vertices)
		}
	}
}

func TestRunBatchBoundaries(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 103; i++ {
		fmt.Fprintf(&sb, "%d.5 %d %d %d %d %d\n", i, -i, i*2, i%256, (i*7)%256, (i*13)%256)
		if i%17 == 0 {
			sb.WriteString("\n")
		}
	}
	input := sb.String()
	for _, format := range []ply.Format{ply.ASCII, ply.BinaryBigEndian} {
		want, _, err := run(t, vertex.XYZ, false, input, format, math.MaxInt32)
		if err != nil {
			t.Fatal(err)
		}
		for _, batch := range []int{1, 2, 3, 10, 102, 103, 104} {
			got, st, err := run(t, vertex.XYZ, false, input, format, batch)
			if err != nil {
				t.Fatalf("batch %d: %v", batch, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("%v batch %d: output differs from single batch", format, batch)
			}
			if wantBatches := (103 + batch - 1) / batch; st.Batches != wantBatches {
				t.Fatalf("batch %d: %d batches, want %d", batch, st.Batches, wantBatches)
			}
		}
	}
}

func TestRunReaderErrorLocatesLine(t *testing.T) {
	input := "1 2 3 4 5 6\n1 2 3 4 5 6 7\n"
	_, _, err := run(t, vertex.XYZ, false, input, ply.ASCII, 1)
	if !errors.Is(err, vertex.ErrFieldCount) {
		t.Fatalf("expect field count error, got %v", err)
	}
	var le *LineError
	if !errors.As(err, &le) || le.Line != 2 {
		t.Fatalf("expect line 2, got %v", err)
	}

	input = "1 2 3 4 5 6\n1 2 3 4 5 300\n"
	_, _, err = run(t, vertex.XYZ, false, input, ply.BinaryLittleEndian, 10)
	if !errors.Is(err, ply.ErrInvalidColor) {
		t.Fatalf("expect color error, got %v", err)
	}
	if !errors.As(err, &le) || le.Line != 2 {
		t.Fatalf("expect line 2, got %v", err)
	}
}

type failWriter struct {
	n   int
	err error
}

func (w *failWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return 0, w.err
}

func TestRunWriterErrorStopsReader(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200000; i++ {
		sb.WriteString("1.000000 2.000000 3.000000 255 255 255\n")
	}
	src, err := NewLineSource(strings.NewReader(sb.String()), vertex.XYZ)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("disk full")
	p := &Pipeline{Header: ply.Header{Vertices: 200000}, BatchSize: 100, QueueSize: 1}
	_, err = p.Run(context.Background(), src, &failWriter{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expect writer error, got %v", err)
	}
}

type trackedSource struct {
	Source
	closed bool
}

func (s *trackedSource) Close() error {
	s.closed = true
	return s.Source.Close()
}

type trackedSink struct {
	bytes.Buffer
	closed bool
}

func (s *trackedSink) Close() error {
	s.closed = true
	return nil
}

func TestRunReleasesHandles(t *testing.T) {
	inner, err := NewLineSource(strings.NewReader(xyzSample), vertex.XYZ)
	if err != nil {
		t.Fatal(err)
	}
	src := &trackedSource{Source: inner}
	dst := &trackedSink{}
	p := &Pipeline{Header: ply.Header{Vertices: 3}}
	if _, err := p.Run(context.Background(), src, dst); err != nil {
		t.Fatal(err)
	}
	if !src.closed || !dst.closed {
		t.Fatalf("source closed=%v sink closed=%v", src.closed, dst.closed)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src, err := NewLineSource(strings.NewReader(xyzSample), vertex.XYZ)
	if err != nil {
		t.Fatal(err)
	}
	p := &Pipeline{Header: ply.Header{Vertices: 3}, QueueSize: 1, BatchSize: 1}
	if _, err := p.Run(ctx, src, io.Discard); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
}

func TestRunWritesComments(t *testing.T) {
	comments := []string{"first"}
	src, err := NewLineSource(strings.NewReader(xyzSample), vertex.XYZ)
	if err != nil {
		t.Fatal(err)
	}
	p := &Pipeline{Header: ply.Header{Vertices: 3, Comments: comments}}
	var out bytes.Buffer
	if _, err := p.Run(context.Background(), src, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "comment first\n") {
		t.Fatalf("missing comment:\n%s", out.String())
	}
}
