package convert

import (
	"errors"
	"fmt"
)

var (
	ErrBadCountLine    = errors.New("bad vertex count line")
	ErrInvalidOptions  = errors.New("invalid options")
	ErrSameInputOutput = errors.New("input file can not be the output file")
	ErrDuplicateOutput = errors.New("output name produced twice")
)

// LineError locates a record that could not be converted.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	if e.Line <= 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
