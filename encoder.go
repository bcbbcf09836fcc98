package chunk

import (
	"context"
	"fmt"
	"io"
)

type EncoderOpts struct {
	// The byte capacity of each raster, frame header included
	MaxImageSize int
	// The number of chunks read ahead of the raster being written
	BufferSize int
}

func (o *EncoderOpts) WithDefaults() *EncoderOpts {
	if o.MaxImageSize == 0 {
		o.MaxImageSize = DefaultMaxImageSize
	}
	return o
}

// MaxPayload returns the number of source bytes carried by a full raster.
func (o *EncoderOpts) MaxPayload() int {
	return o.MaxImageSize - HeaderSize
}

// Encoder splits a byte stream into framed chunks and writes one raster per
// chunk to its sink.
type Encoder struct {
	sink    Sink
	chunker Chunker
}

// NewEncoder returns an encoder writing to sink. Nil opts selects the defaults.
func NewEncoder(sink Sink, opts *EncoderOpts) (*Encoder, error) {
	if opts == nil {
		opts = &EncoderOpts{}
	}
	opts = opts.WithDefaults()

	maxPayload := opts.MaxPayload()
	if maxPayload <= 0 {
		return nil, fmt.Errorf("%w: max image size %d cannot hold a %d byte header and a payload",
			ErrConfiguration, opts.MaxImageSize, HeaderSize)
	}
	if uint64(maxPayload) > maxUint32 {
		return nil, fmt.Errorf("%w: max image size %d exceeds the 32-bit payload size field",
			ErrConfiguration, opts.MaxImageSize)
	}

	return &Encoder{
		sink:    sink,
		chunker: NewChunker(&ChunkerOpts{ChunkSize: maxPayload, BufferSize: opts.BufferSize}),
	}, nil
}

// Encode chunks r and puts one raster per chunk, in order, to the sink. The
// sink is closed once every raster has been put. An empty stream yields
// ErrNoInput and leaves the sink open.
func (e *Encoder) Encode(ctx context.Context, r io.Reader) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := 0
	err := NewFunctionHandler(func(chunk *Chunk) error {
		raster, err := chunk.Raster()
		if err != nil {
			return err
		}
		if err := e.sink.Put(ctx, chunk.Index(), raster); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrPutRaster, chunk.Index(), err)
		}
		n++
		return nil
	}).HandleChunks(e.chunker.Chunk(ctx, r))
	if err != nil {
		return n, err
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrNoInput
	}
	return n, e.sink.Close()
}
