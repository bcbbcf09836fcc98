package chunk

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrefix is the name prefix given to rasters written by the sinks.
const DefaultPrefix = "encoded_image"

// Sink receives the rasters of one encoding run in chunk order. Close is
// only called after every raster of a successful run has been put.
type Sink interface {
	Put(ctx context.Context, index uint32, r *Raster) error
	io.Closer
}

// Source yields the rasters of one encoded stream. Next returns io.EOF once
// the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (*Raster, error)
	io.Closer
}

// RasterName returns the name of raster index, e.g. encoded_image_12.png.
func RasterName(prefix string, index uint32, codec Codec) string {
	return prefix + "_" + strconv.FormatUint(uint64(index), 10) + codec.Ext()
}

// ParseRasterIndex returns the integer suffix following the last underscore
// of a raster name, ignoring any directory and extension.
func ParseRasterIndex(name string) (uint32, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	i := strings.LastIndexByte(base, '_')
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrSequenceName, name)
	}
	n, err := strconv.ParseUint(base[i+1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrSequenceName, name, err)
	}
	return uint32(n), nil
}

// sequenceEntry names one stored raster and its parsed sequence index.
type sequenceEntry struct {
	name  string
	index uint32
}

// sortEntries parses the sequence index of every name and sorts by it.
func sortEntries(names []string) ([]sequenceEntry, error) {
	entries := make([]sequenceEntry, 0, len(names))
	for _, name := range names {
		index, err := ParseRasterIndex(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sequenceEntry{name: name, index: index})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].index < entries[j].index })
	return entries, nil
}

var (
	_ Sink   = &Sequence{}
	_ Source = &Sequence{}
)

// Sequence is an in-memory raster sequence usable as both sink and source.
// As a sink it stores rasters at their index; as a source it yields them in
// slice order.
type Sequence struct {
	Rasters []*Raster
	closed  bool
	next    int
}

// NewSequence returns a source over the given rasters in the given order.
func NewSequence(rasters ...*Raster) *Sequence {
	return &Sequence{Rasters: rasters}
}

func (s *Sequence) Put(ctx context.Context, index uint32, r *Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return io.ErrClosedPipe
	}
	for uint64(len(s.Rasters)) <= uint64(index) {
		s.Rasters = append(s.Rasters, nil)
	}
	s.Rasters[index] = r
	return nil
}

func (s *Sequence) Next(ctx context.Context) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.Rasters) {
		return nil, io.EOF
	}
	r := s.Rasters[s.next]
	s.next++
	return r, nil
}

// Closed reports whether Close has been called.
func (s *Sequence) Closed() bool { return s.closed }

func (s *Sequence) Close() error {
	s.closed = true
	return nil
}
