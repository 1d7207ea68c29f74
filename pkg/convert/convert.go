package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"

	"text2ply/pkg/logging"
	"text2ply/pkg/pcd"
	"text2ply/pkg/ply"
	"text2ply/pkg/vertex"
)

// Options configures a file conversion. Zero values take defaults.
type Options struct {
	Input  string
	Output string
	// Dialect overrides detection from the Input extension.
	Dialect string
	// Encoding is ascii (default) or binary.
	Encoding string
	// ByteOrder of binary output: native (default), little or big.
	ByteOrder string
	// ReadHeader takes the pts vertex count from the first line instead of
	// counting lines.
	ReadHeader bool
	BatchSize  int
	QueueSize  int
	Comments   []string
	// Color for pcd/bin points without color; nil means white.
	Color *pcd.Color
	// Atomic writes to a temporary file renamed into place on success.
	// nil means true.
	Atomic *bool
	Log    log15.Logger
}

func (o Options) withDefaults() Options {
	if o.Encoding == "" {
		o.Encoding = "ascii"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.Color == nil {
		c := pcd.White
		o.Color = &c
	}
	if o.Atomic == nil {
		t := true
		o.Atomic = &t
	}
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	return o
}

func (o Options) validate() error {
	if strings.TrimSpace(o.Input) == "" || strings.TrimSpace(o.Output) == "" {
		return fmt.Errorf("%w: input and output are required", ErrInvalidOptions)
	}
	return checkDistinct(o.Input, o.Output)
}

// checkDistinct fails with ErrSameInputOutput when both paths name the same file.
func checkDistinct(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if in == out {
		return ErrSameInputOutput
	}
	return nil
}

// plyName replaces the extension of name with .ply.
func plyName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".ply"
}

func (o Options) dialect() (vertex.Dialect, error) {
	if o.Dialect != "" {
		return vertex.ParseDialect(o.Dialect)
	}
	return vertex.DialectFromPath(o.Input)
}

// BuildHeader resolves the dialect and format of opts and counts the input
// vertices. The input is opened and closed here; the conversion reads it again.
func BuildHeader(opts Options) (ply.Header, vertex.Dialect, error) {
	opts = opts.withDefaults()
	dialect, err := opts.dialect()
	if err != nil {
		return ply.Header{}, dialect, err
	}
	format, err := ply.ParseFormat(opts.Encoding, opts.ByteOrder)
	if err != nil {
		return ply.Header{}, dialect, err
	}
	f, err := os.Open(opts.Input)
	if err != nil {
		return ply.Header{}, dialect, err
	}
	defer f.Close()
	n, err := CountVertices(f, dialect, opts.ReadHeader)
	if err != nil {
		return ply.Header{}, dialect, fmt.Errorf("count %s: %w", opts.Input, err)
	}
	return ply.Header{Format: format, Vertices: n, Comments: opts.Comments}, dialect, nil
}

// Convert converts opts.Input into a PLY file at opts.Output.
func Convert(ctx context.Context, opts Options) (st Stats, err error) {
	opts = opts.withDefaults()
	if err = opts.validate(); err != nil {
		return st, err
	}
	log := opts.Log.New("src", opts.Input)

	hdr, dialect, err := BuildHeader(opts)
	if err != nil {
		return st, err
	}
	log.Info("header ready", "dialect", dialect, "format", hdr.Format, "vertices", hdr.Vertices)

	in, err := os.Open(opts.Input)
	if err != nil {
		return st, err
	}
	src, err := OpenSource(in, dialect, *opts.Color)
	if err != nil {
		in.Close()
		return st, err
	}

	out, commit, err := createOutput(opts.Output, *opts.Atomic)
	if err != nil {
		src.Close()
		return st, err
	}

	p := &Pipeline{Header: hdr, BatchSize: opts.BatchSize, QueueSize: opts.QueueSize, Log: log}
	st, err = p.Run(ctx, src, out)
	if err = commit(err); err != nil {
		log.Error("conversion failed", "err", err)
		return st, err
	}
	log.Info("converted", "out", opts.Output, "vertices", st.Vertices, "bytes", st.Bytes, "dur", st.Elapsed)
	return st, nil
}

// syncFile flushes file contents to disk before closing.
type syncFile struct {
	*os.File
}

func (f syncFile) Close() error {
	if err := f.File.Sync(); err != nil {
		f.File.Close()
		return err
	}
	return f.File.Close()
}

// createOutput opens the destination. commit receives the pipeline result
// and finalizes the file: rename into place, or remove on failure.
func createOutput(dest string, atomic bool) (io.WriteCloser, func(error) error, error) {
	if !atomic {
		f, err := os.Create(dest)
		if err != nil {
			return nil, nil, err
		}
		return f, func(err error) error { return err }, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".text2ply-*")
	if err != nil {
		return nil, nil, err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)
	commit := func(err error) error {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return err
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
		return nil
	}
	return syncFile{tmp}, commit, nil
}

// ConvertDir converts every supported file of inDir into outDir, keeping
// base names and using the .ply extension. Inputs sharing a base name fail
// with ErrDuplicateOutput before anything is written. Conversion stops at the
// first error.
func ConvertDir(ctx context.Context, inDir, outDir string, opts Options) (converted int, err error) {
	opts = opts.withDefaults()
	ds, err := os.ReadDir(inDir)
	if err != nil {
		return 0, err
	}
	var inputs []string
	outputs := map[string]string{}
	for _, d := range ds {
		if d.IsDir() {
			continue
		}
		fn := d.Name()
		if _, err := vertex.DialectFromPath(fn); err != nil {
			continue
		}
		out := plyName(fn)
		if prev, ok := outputs[out]; ok {
			return 0, fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateOutput, prev, fn, out)
		}
		outputs[out] = fn
		inputs = append(inputs, fn)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}
	for _, fn := range inputs {
		o := opts
		o.Input = filepath.Join(inDir, fn)
		o.Output = filepath.Join(outDir, plyName(fn))
		o.Dialect = ""
		if _, err := Convert(ctx, o); err != nil {
			return converted, fmt.Errorf("%s: %w", o.Input, err)
		}
		converted++
	}
	return converted, nil
}
