package chunk

type Chunk struct {
	// used to preserve chunk order, written to the frame header
	o uint32
	// the payload contained in the chunk
	d []byte
}

// makeChunk creates a new chunk based on the provided index and byte slice data
func makeChunk(i uint32, d []byte) *Chunk {
	return &Chunk{
		o: i,
		d: d,
	}
}

// Index returns the zero-based position of the chunk in its source stream.
func (c *Chunk) Index() uint32 { return c.o }

// Payload returns the bytes carried by the chunk. The slice is not copied.
func (c *Chunk) Payload() []byte { return c.d }
