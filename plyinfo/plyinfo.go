package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"text2ply/pkg/convert"
)

// Request names a point cloud file and the output settings to report for.
type Request struct {
	InputFile  string
	Dialect    string
	ReadHeader bool
	Encoding   string
	ByteOrder  string
	Comments   []string
}

type Result struct {
	Error    string
	Dialect  string
	Vertices int
	Header   []string
}

// Serve answers one Result per Request decoded from r until r is drained.
// A malformed request gets an error result and the loop continues.
func Serve(r io.Reader, w io.Writer) error {
	decoder := json.NewDecoder(r)
	encoder := json.NewEncoder(w)
	for {
		var req Request
		err := decoder.Decode(&req)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var se *json.SyntaxError
			if errors.As(err, &se) {
				// the decoder cannot resync after a syntax error
				return encoder.Encode(Result{Error: err.Error()})
			}
			if err := encoder.Encode(Result{Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := encoder.Encode(inspect(req)); err != nil {
			return err
		}
	}
}

func inspect(req Request) (res Result) {
	hdr, dialect, err := convert.BuildHeader(convert.Options{
		Input:      req.InputFile,
		Dialect:    req.Dialect,
		ReadHeader: req.ReadHeader,
		Encoding:   req.Encoding,
		ByteOrder:  req.ByteOrder,
		Comments:   req.Comments,
	})
	if err != nil {
		res.Error = err.Error()
		return
	}
	res.Dialect = dialect.String()
	res.Vertices = hdr.Vertices
	res.Header = hdr.Lines()
	return
}

func main() {
	if err := Serve(os.Stdin, os.Stdout); err != nil {
		os.Exit(1)
	}
}
