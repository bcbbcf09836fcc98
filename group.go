package chunk

import (
	"bytes"
	"io"
	"sort"
)

var _ sort.Interface = Group{}

// Group is a group of related chunks, these chunks are ordered by chunk's
// order (o) property. Missing or repeated chunks result in an error.
type Group []*Chunk

func (g Group) Len() int           { return len(g) }
func (g Group) Swap(i, j int)      { g[i], g[j] = g[j], g[i] }
func (g Group) Less(i, j int) bool { return g[i].o < g[j].o }

// MissingChunks returns true if the sorted group is not exactly the indexes
// 0..len-1, which covers both gaps and duplicates.
func (g Group) MissingChunks() bool {
	for i := 0; i < len(g); i++ {
		if uint64(i) != uint64(g[i].o) {
			return true
		}
	}
	return false
}

func (g *Group) Add(chunk *Chunk) {
	*g = append(*g, chunk)
}

// Size returns the total payload size of the group.
func (g Group) Size() int64 {
	var n int64
	for _, chunk := range g {
		n += int64(len(chunk.d))
	}
	return n
}

// Bytes reassembles the chunk group into a single byte slice
func (g Group) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, g.Size()))
	for _, chunk := range g {
		buf.Write(chunk.d)
	}
	return buf.Bytes()
}

// Reader returns an io.Reader that knows how to read the data from all the chunks in order
func (g Group) Reader() io.Reader {
	sort.Sort(g)
	readers := make([]io.Reader, len(g))
	for i, chunk := range g {
		readers[i] = bytes.NewReader(chunk.d)
	}
	return io.MultiReader(readers...)
}

// WriteTo writes the payloads in their current order to w.
func (g Group) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, chunk := range g {
		n, err := w.Write(chunk.d)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
