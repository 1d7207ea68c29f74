package convert

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"text2ply/pkg/pcd"
	"text2ply/pkg/vertex"
)

// CountVertices computes the vertex count declared by the header. It is a
// traversal of its own: callers hand it a fresh reader, not the one the
// pipeline will consume.
//
// For pts with readHeader the first line is parsed as the count. Without it
// the first line is still taken to be non-data, so the count is the number of
// remaining lines. Blank lines are never counted.
func CountVertices(r io.Reader, dialect vertex.Dialect, readHeader bool) (int, error) {
	switch dialect {
	case vertex.PTS:
		bio := bufio.NewReaderSize(r, 1<<16)
		first, err := bio.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, err
		}
		if readHeader {
			n, err := strconv.Atoi(strings.TrimSpace(first))
			if err != nil || n < 0 {
				return 0, fmt.Errorf("%w: %q", ErrBadCountLine, strings.TrimSpace(first))
			}
			return n, nil
		}
		if err == io.EOF {
			return 0, nil
		}
		return countLines(bio)
	case vertex.XYZ:
		return countLines(bufio.NewReaderSize(r, 1<<16))
	case vertex.PCD:
		return pcd.Count(r)
	case vertex.BIN:
		if st, ok := r.(interface{ Stat() (os.FileInfo, error) }); ok {
			fi, err := st.Stat()
			if err != nil {
				return 0, err
			}
			return pcd.BinCount(fi.Size())
		}
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			return 0, err
		}
		return pcd.BinCount(n)
	}
	return 0, fmt.Errorf("%w: %s", vertex.ErrUnsupportDialect, dialect)
}

// countLines counts lines holding at least one non-space byte.
func countLines(r *bufio.Reader) (int, error) {
	var n int
	blank := true
	for {
		chunk, err := r.ReadSlice('\n')
		if blank && len(bytes.TrimSpace(chunk)) > 0 {
			blank = false
		}
		switch err {
		case nil:
			if !blank {
				n++
			}
			blank = true
		case bufio.ErrBufferFull:
			// long line, keep reading it
		case io.EOF:
			if !blank {
				n++
			}
			return n, nil
		default:
			return 0, err
		}
	}
}
