package chunk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var _ Sink = &DirSink{}

// DirSink writes each raster to its own image file in a directory.
type DirSink struct {
	dir    string
	prefix string
	codec  Codec
}

// NewDirSink creates dir if needed and returns a sink writing
// <prefix>_<index><ext> files into it. A directory already holding such
// files is refused with ErrSequenceExists.
func NewDirSink(dir, prefix string, codec Codec) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	names, err := listRasters(dir, prefix, codec)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		return nil, fmt.Errorf("%w: %d %s_*%s files in %s", ErrSequenceExists, len(names), prefix, codec.Ext(), dir)
	}
	return &DirSink{dir: dir, prefix: prefix, codec: codec}, nil
}

func (s *DirSink) Put(ctx context.Context, index uint32, r *Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(s.Path(index))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encodeRaster(w, s.codec, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Path returns the path of raster index.
func (s *DirSink) Path(index uint32) string {
	return filepath.Join(s.dir, RasterName(s.prefix, index, s.codec))
}

func (s *DirSink) Close() error { return nil }

var _ Source = &DirSource{}

// DirSource reads the image files of a directory sorted by the integer
// suffix of their names. Only files with the codec's extension and the
// given prefix are considered.
type DirSource struct {
	codec   Codec
	entries []sequenceEntry
	next    int
}

// NewDirSource lists dir. An empty prefix matches every file with the
// codec's extension.
func NewDirSource(dir, prefix string, codec Codec) (*DirSource, error) {
	names, err := listRasters(dir, prefix, codec)
	if err != nil {
		return nil, err
	}
	entries, err := sortEntries(names)
	if err != nil {
		return nil, err
	}
	return &DirSource{codec: codec, entries: entries}, nil
}

// listRasters returns the paths of the files in dir with the codec's
// extension whose name starts with prefix_.
func listRasters(dir, prefix string, codec Codec) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.EqualFold(filepath.Ext(name), codec.Ext()) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		names = append(names, filepath.Join(dir, name))
	}
	return names, nil
}

// Len returns the number of rasters found.
func (s *DirSource) Len() int { return len(s.entries) }

func (s *DirSource) Next(ctx context.Context) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.entries) {
		return nil, io.EOF
	}
	entry := s.entries[s.next]
	s.next++

	f, err := os.Open(entry.name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := decodeRaster(bufio.NewReader(f), s.codec)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", entry.name, err)
	}
	return r, nil
}

func (s *DirSource) Close() error { return nil }
