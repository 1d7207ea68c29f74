package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/inconshreveable/log15"
	"golang.org/x/sync/errgroup"

	"text2ply/pkg/logging"
	"text2ply/pkg/ply"
	"text2ply/pkg/vertex"
)

const (
	DefaultBatchSize = 5000
	DefaultQueueSize = 4
)

// Batch is the unit handed from the reader to the writer: the encoded body
// bytes of Vertices consecutive vertices.
type Batch struct {
	Seq      int
	Vertices int
	Data     []byte
}

// Encoder appends the body encoding of one vertex to dst.
type Encoder func(dst []byte, f vertex.Fields) ([]byte, error)

func NewEncoder(f ply.Format) Encoder {
	if order := f.ByteOrder(); order != nil {
		return func(dst []byte, v vertex.Fields) ([]byte, error) {
			return ply.Pack(dst, order, v)
		}
	}
	return func(dst []byte, v vertex.Fields) ([]byte, error) {
		return v.AppendText(dst), nil
	}
}

// Stats summarizes a finished run.
type Stats struct {
	Vertices int
	Batches  int
	Bytes    int64
	Elapsed  time.Duration
}

// Pipeline converts one Source into one PLY stream.
//
// A reader worker pulls up to BatchSize records at a time, encodes them and
// sends the batch over a channel holding at most QueueSize batches. A writer
// worker writes the header, then the batches in the order they were sent.
// The first error of either worker cancels the other and is returned.
type Pipeline struct {
	Header    ply.Header
	BatchSize int
	QueueSize int
	Log       log15.Logger
}

// Run takes ownership of src and dst: src is closed by the reader, dst by the
// writer when it implements io.Closer.
func (p *Pipeline) Run(ctx context.Context, src Source, dst io.Writer) (Stats, error) {
	hdr := p.Header
	hdr.Comments = append([]string(nil), p.Header.Comments...)
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	queue := p.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	log := p.Log
	if log == nil {
		log = logging.Discard()
	}

	start := time.Now()
	ch := make(chan Batch, queue)
	g, ctx := errgroup.WithContext(ctx)
	var st Stats
	g.Go(func() error {
		return readBatches(ctx, src, NewEncoder(hdr.Format), batchSize, ch, log.New("comp", "reader"))
	})
	g.Go(func() (err error) {
		st, err = writeBatches(ctx, hdr, ch, dst, log.New("comp", "writer"))
		return err
	})
	err := g.Wait()
	st.Elapsed = time.Since(start)
	return st, err
}

// readBatches closes out only after src is drained. On failure it leaves the
// channel open so the writer stops on cancellation, never on a short stream.
func readBatches(ctx context.Context, src Source, enc Encoder, max int, out chan<- Batch, log log15.Logger) (err error) {
	defer func() {
		if cerr := src.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close input: %w", cerr)
		}
	}()
	t0 := time.Now()
	log.Debug("start", "batch_size", max)
	var vertices int
	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		recs, nerr := src.Next(max)
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			log.Error("next failed", "batch", seq, "err", nerr)
			return nerr
		}
		b := Batch{Seq: seq, Vertices: len(recs), Data: make([]byte, 0, len(recs)*ply.RecordSize)}
		for _, r := range recs {
			if b.Data, err = enc(b.Data, r.Fields); err != nil {
				err = &LineError{Line: r.Line, Err: err}
				log.Error("encode failed", "batch", seq, "err", err)
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- b:
		}
		vertices += b.Vertices
	}
	close(out)
	log.Debug("finish", "vertices", vertices, "dur", time.Since(t0))
	return nil
}

func writeBatches(ctx context.Context, hdr ply.Header, in <-chan Batch, dst io.Writer, log log15.Logger) (st Stats, err error) {
	if c, ok := dst.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
	}
	t0 := time.Now()
	bw := bufio.NewWriterSize(dst, 1<<20)
	if st.Bytes, err = hdr.WriteTo(bw); err != nil {
		return st, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case b, ok := <-in:
			if !ok {
				if err = bw.Flush(); err != nil {
					return st, err
				}
				if st.Vertices != hdr.Vertices {
					log.Warn("vertex count differs from header", "header", hdr.Vertices, "written", st.Vertices)
				}
				log.Debug("finish", "vertices", st.Vertices, "batches", st.Batches, "dur", time.Since(t0))
				return st, nil
			}
			n, werr := bw.Write(b.Data)
			st.Bytes += int64(n)
			if werr != nil {
				log.Error("write failed", "batch", b.Seq, "err", werr)
				return st, werr
			}
			st.Vertices += b.Vertices
			st.Batches++
		}
	}
}
