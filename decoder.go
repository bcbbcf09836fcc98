package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
)

type DecoderOpts struct {
	// TrustSequence writes payloads in source order and ignores the chunk
	// index embedded in each frame header. The source must then yield the
	// rasters in their original order.
	TrustSequence bool
}

// Decoder reconstructs a byte stream from a raster sequence.
type Decoder struct {
	trustSequence bool
}

// NewDecoder returns a decoder. Nil opts selects header-index ordering.
func NewDecoder(opts *DecoderOpts) *Decoder {
	if opts == nil {
		opts = &DecoderOpts{}
	}
	return &Decoder{trustSequence: opts.TrustSequence}
}

// Decode reads every raster from src and writes the payloads to w in chunk
// order. By default chunks are ordered by their header index, so a source
// yielding rasters out of order still reconstructs the original stream.
func (d *Decoder) Decode(ctx context.Context, src Source, w io.Writer) (int64, error) {
	seq := newSequencer(w, d.trustSequence)
	seen := 0
	err := eachChunk(ctx, src, func(chunk *Chunk) error {
		seen++
		return seq.push(chunk)
	})
	if err != nil {
		return seq.written, err
	}
	if seen == 0 {
		return 0, ErrNoInput
	}
	if err := seq.finish(); err != nil {
		return seq.written, err
	}
	return seq.written, src.Close()
}

// Collect reads every raster from src into a group sorted by chunk index.
// The group is guaranteed to be complete and in order.
func (d *Decoder) Collect(ctx context.Context, src Source) (*Group, error) {
	group := &Group{}
	err := eachChunk(ctx, src, func(chunk *Chunk) error {
		group.Add(chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if group.Len() == 0 {
		return nil, ErrNoInput
	}
	if !d.trustSequence {
		sort.Stable(group)
		for i := 1; i < group.Len(); i++ {
			if (*group)[i].o == (*group)[i-1].o {
				return nil, fmt.Errorf("%w: index %d", ErrDuplicateChunk, (*group)[i].o)
			}
		}
		if group.MissingChunks() {
			return nil, fmt.Errorf("%w: %d rasters do not form indexes 0..%d", ErrMissingChunks, group.Len(), group.Len()-1)
		}
	}
	return group, src.Close()
}

// eachChunk extracts the chunk of every raster yielded by src.
func eachChunk(ctx context.Context, src Source, do func(*Chunk) error) error {
	for pos := 0; ; pos++ {
		raster, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: raster %d: %v", ErrNextRaster, pos, err)
		}
		chunk, err := ChunkFromRaster(raster)
		if err != nil {
			return fmt.Errorf("raster %d: %w", pos, err)
		}
		if err := do(chunk); err != nil {
			return err
		}
	}
}

// sequencer writes chunks in index order as soon as they become contiguous.
type sequencer struct {
	w       io.Writer
	trust   bool
	next    uint64
	pending map[uint32]*Chunk
	written int64
}

func newSequencer(w io.Writer, trust bool) *sequencer {
	return &sequencer{w: w, trust: trust, pending: make(map[uint32]*Chunk)}
}

func (s *sequencer) push(chunk *Chunk) error {
	if s.trust {
		return s.write(chunk)
	}
	if uint64(chunk.o) < s.next || s.pending[chunk.o] != nil {
		return fmt.Errorf("%w: index %d", ErrDuplicateChunk, chunk.o)
	}
	if uint64(chunk.o) != s.next {
		// the payload aliases the raster, which the source no longer touches
		s.pending[chunk.o] = chunk
		return nil
	}
	if err := s.write(chunk); err != nil {
		return err
	}
	for {
		p, ok := s.pending[uint32(s.next)]
		if !ok {
			return nil
		}
		delete(s.pending, p.o)
		if err := s.write(p); err != nil {
			return err
		}
	}
}

func (s *sequencer) write(chunk *Chunk) error {
	n, err := s.w.Write(chunk.d)
	s.written += int64(n)
	if err != nil {
		return err
	}
	s.next++
	return nil
}

// finish reports chunks still waiting for a predecessor that never arrived.
func (s *sequencer) finish() error {
	if len(s.pending) == 0 {
		return nil
	}
	return fmt.Errorf("%w: chunk %d never arrived, %d later chunks pending", ErrMissingChunks, s.next, len(s.pending))
}
