package convert

import (
	"bufio"
	"fmt"
	"io"

	"text2ply/pkg/pcd"
	"text2ply/pkg/vertex"
)

// Source yields normalized vertex records in input order.
type Source interface {
	// Next returns between 1 and max records, or io.EOF once drained.
	Next(max int) ([]vertex.Record, error)
	Close() error
}

type lineSource struct {
	r       *bufio.Reader
	c       io.Closer
	dialect vertex.Dialect
	line    int
	skipped bool
}

// NewLineSource reads a pts or xyz text stream. For pts the first line is
// a count line and is never emitted. r is closed by Close when it is an io.Closer.
func NewLineSource(r io.Reader, dialect vertex.Dialect) (Source, error) {
	if !dialect.Text() {
		return nil, fmt.Errorf("%w: %s is not a text dialect", vertex.ErrUnsupportDialect, dialect)
	}
	c, _ := r.(io.Closer)
	return &lineSource{
		r:       bufio.NewReaderSize(r, 1<<16),
		c:       c,
		dialect: dialect,
		skipped: dialect != vertex.PTS,
	}, nil
}

func (s *lineSource) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	s.line++
	return line, nil
}

func (s *lineSource) Next(max int) ([]vertex.Record, error) {
	if !s.skipped {
		if _, err := s.readLine(); err != nil {
			return nil, err
		}
		s.skipped = true
	}
	var recs []vertex.Record
	for len(recs) < max {
		line, err := s.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if vertex.Blank(line) {
			continue
		}
		f, err := vertex.Normalize(s.dialect, line)
		if err != nil {
			return nil, &LineError{Line: s.line, Err: err}
		}
		recs = append(recs, vertex.Record{Line: s.line, Fields: f})
	}
	if len(recs) == 0 {
		return nil, io.EOF
	}
	return recs, nil
}

func (s *lineSource) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// pcdSource decodes lazily so the decode runs on the reading worker.
type pcdSource struct {
	r     io.ReadCloser
	color pcd.Color
	cloud *pcd.Cloud
}

func (s *pcdSource) Next(max int) ([]vertex.Record, error) {
	if s.cloud == nil {
		c, err := pcd.Decode(s.r, s.color)
		if err != nil {
			return nil, err
		}
		s.cloud = c
	}
	return s.cloud.Next(max)
}

func (s *pcdSource) Close() error { return s.r.Close() }

type binSource struct {
	*pcd.BinReader
	c io.Closer
}

func (s *binSource) Close() error { return s.c.Close() }

// OpenSource wraps r for the given dialect. The returned Source owns r.
func OpenSource(r io.ReadCloser, dialect vertex.Dialect, color pcd.Color) (Source, error) {
	switch dialect {
	case vertex.PTS, vertex.XYZ:
		return NewLineSource(r, dialect)
	case vertex.PCD:
		return &pcdSource{r: r, color: color}, nil
	case vertex.BIN:
		return &binSource{BinReader: pcd.NewBinReader(r, color), c: r}, nil
	}
	return nil, fmt.Errorf("%w: %s", vertex.ErrUnsupportDialect, dialect)
}
