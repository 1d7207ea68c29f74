package convert

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"text2ply/pkg/ply"
	"text2ply/pkg/vertex"
)

// ConvertZip converts every supported entry of the zip archive inPath into a
// .ply entry of a new archive at outPath. Other entries are copied raw.
// Entries whose output names would collide fail with ErrDuplicateOutput
// before the output is created. With opts.Atomic the output archive only
// appears when every entry converted.
func ConvertZip(ctx context.Context, inPath, outPath string, opts Options) (converted int, err error) {
	opts = opts.withDefaults()
	if err := checkDistinct(inPath, outPath); err != nil {
		return 0, err
	}
	format, err := ply.ParseFormat(opts.Encoding, opts.ByteOrder)
	if err != nil {
		return 0, err
	}
	inZip, err := zip.OpenReader(inPath)
	if err != nil {
		return 0, err
	}
	defer inZip.Close()
	if err := checkEntryNames(inZip.File); err != nil {
		return 0, err
	}

	outFile, commit, err := createOutput(outPath, *opts.Atomic)
	if err != nil {
		return 0, err
	}
	outZip := zip.NewWriter(outFile)
	err = func() error {
		for _, f := range inZip.File {
			dialect, derr := vertex.DialectFromPath(f.Name)
			if f.FileInfo().IsDir() || derr != nil {
				if err := copyRaw(outZip, f); err != nil {
					return err
				}
				continue
			}
			if err := convertEntry(ctx, outZip, f, dialect, format, opts); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			converted++
		}
		return nil
	}()
	if cerr := outZip.Close(); err == nil {
		err = cerr
	}
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err = commit(err); err != nil {
		return converted, err
	}
	return converted, nil
}

// checkEntryNames fails when two entries of the output archive would share a
// name, counting raw copies as well as converted entries.
func checkEntryNames(files []*zip.File) error {
	names := map[string]string{}
	for _, f := range files {
		out := f.Name
		if _, err := vertex.DialectFromPath(f.Name); err == nil && !f.FileInfo().IsDir() {
			out = plyName(f.Name)
		}
		if prev, ok := names[out]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateOutput, prev, f.Name, out)
		}
		names[out] = f.Name
	}
	return nil
}

func copyRaw(w *zip.Writer, f *zip.File) error {
	dst, err := w.CreateRaw(&f.FileHeader)
	if err != nil {
		return err
	}
	r, err := f.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, r)
	return err
}

func convertEntry(ctx context.Context, w *zip.Writer, f *zip.File, dialect vertex.Dialect, format ply.Format, opts Options) error {
	log := opts.Log.New("entry", f.Name)
	cr, err := f.Open()
	if err != nil {
		return err
	}
	n, err := CountVertices(cr, dialect, opts.ReadHeader)
	cr.Close()
	if err != nil {
		return err
	}

	r, err := f.Open()
	if err != nil {
		return err
	}
	src, err := OpenSource(r, dialect, *opts.Color)
	if err != nil {
		r.Close()
		return err
	}
	name := plyName(f.Name)
	dst, err := w.Create(name)
	if err != nil {
		src.Close()
		return err
	}
	p := &Pipeline{
		Header:    ply.Header{Format: format, Vertices: n, Comments: opts.Comments},
		BatchSize: opts.BatchSize,
		QueueSize: opts.QueueSize,
		Log:       log,
	}
	st, err := p.Run(ctx, src, dst)
	if err != nil {
		return err
	}
	log.Info("converted", "out", name, "vertices", st.Vertices, "bytes", st.Bytes)
	return nil
}
