package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Chunker knows how to chunk a stream and returns a channel of chunks and errors
type Chunker interface {
	Chunk(ctx context.Context, r io.Reader) (<-chan *Chunk, <-chan error)
}

type ChunkerOpts struct {
	// The size in bytes of each chunk, the last chunk may be shorter
	ChunkSize int
	// The number of chunks that can be buffered onto the chunk chan
	BufferSize int
}

func (o *ChunkerOpts) WithDefaults() *ChunkerOpts {
	if o.ChunkSize <= 0 {
		// one default raster worth of payload
		o.ChunkSize = DefaultMaxImageSize - HeaderSize
	}
	if o.BufferSize <= 0 {
		// chunks are up to a megabyte each, keep the pipeline shallow
		o.BufferSize = 4
	}
	return o
}

var _ Chunker = &ChunkerImpl{}

type ChunkerImpl struct {
	size   int
	buffer int
}

func (c *ChunkerImpl) Chunk(ctx context.Context, r io.Reader) (<-chan *Chunk, <-chan error) {
	ch := make(chan *Chunk, c.buffer)
	// the producer never blocks on its single error
	ech := make(chan error, 1)
	go chunkTo(ctx, r, ch, ech, c.size)
	return ch, ech
}

// chunkTo chunks the data read from s to the provided chan to, if any errors
// are returned, they are returned to the provided errs chan. The error is
// delivered before to is closed.
func chunkTo(ctx context.Context, s io.Reader, to chan *Chunk, errs chan error, size int) {
	defer close(to)
	err := chunkAndDo(s, size, func(chunk *Chunk) error {
		select {
		case to <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		errs <- err
	}
}

// chunkAndDo chunks the data read from s into chunks of the provided size
// calling do for each chunk created. Every chunk but the last is exactly
// size bytes long.
func chunkAndDo(s io.Reader, size int, do func(*Chunk) error) error {
	var i uint64
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(s, buf)
		if n > 0 {
			if i > maxUint32 {
				return fmt.Errorf("%w: more than %d chunks", ErrSizeOverflow, maxUint32+1)
			}
			if err := do(makeChunk(uint32(i), buf[:n])); err != nil {
				return err
			}
			i++
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}

func NewChunker(opts *ChunkerOpts) *ChunkerImpl {
	if opts == nil {
		opts = &ChunkerOpts{}
	}
	opts = opts.WithDefaults()
	return &ChunkerImpl{
		size:   opts.ChunkSize,
		buffer: opts.BufferSize,
	}
}
