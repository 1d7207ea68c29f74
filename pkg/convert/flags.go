package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"text2ply/pkg/pcd"
)

// BindFlags registers the conversion settings shared by the commands.
// Input, Output and Dialect are left to the caller.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Encoding, "encoding", "e", "ascii", "output encoding: ascii or binary")
	fs.StringVar(&o.ByteOrder, "byte_order", "native", "binary byte order: native, little or big")
	fs.BoolVar(&o.ReadHeader, "readheader", false, "read the vertex count from the first line of a pts file")
	fs.IntVar(&o.BatchSize, "max_vertices", DefaultBatchSize, "max vertices (lines) read per batch handed to the writer")
	fs.IntVar(&o.QueueSize, "queue", DefaultQueueSize, "max batches waiting for the writer")
	fs.StringArrayVar(&o.Comments, "comment", nil, "header comment, repeatable")
	if o.Atomic == nil {
		o.Atomic = new(bool)
	}
	fs.BoolVar(o.Atomic, "atomic", true, "write to a temp file and rename it into place")
	fs.Var(&colorValue{o: o}, "color", "r,g,b used for pcd/bin points without color")
}

type colorValue struct {
	o *Options
}

func (v *colorValue) String() string {
	if v.o == nil || v.o.Color == nil {
		return "255,255,255"
	}
	c := *v.o.Color
	return fmt.Sprintf("%d,%d,%d", c[0], c[1], c[2])
}

func (v *colorValue) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("%w: color %q, want r,g,b", ErrInvalidOptions, s)
	}
	var c pcd.Color
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return fmt.Errorf("%w: color %q: %v", ErrInvalidOptions, s, err)
		}
		c[i] = uint8(n)
	}
	v.o.Color = &c
	return nil
}

func (v *colorValue) Type() string { return "rgb" }
