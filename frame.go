package chunk

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// HeaderSize is the size in bytes of the frame header: payload size
	// followed by chunk index, both big-endian uint32.
	HeaderSize = 8

	// DefaultMaxImageSize is the default raster byte capacity, header included.
	DefaultMaxImageSize = 1000000

	maxUint32 = uint64(^uint32(0))
)

// Header prefixes every frame embedded in a raster.
type Header struct {
	PayloadSize uint32
	Index       uint32
}

// Marshal returns the big-endian wire form of the header.
func (h Header) Marshal() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.BigEndian.PutUint32(b[0:4], h.PayloadSize)
	binary.BigEndian.PutUint32(b[4:8], h.Index)
	return b
}

// ParseHeader reads a header from the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: buffer of %d bytes cannot hold a header", ErrCorruptFrame, len(b))
	}
	return Header{
		PayloadSize: binary.BigEndian.Uint32(b[0:4]),
		Index:       binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// Geometry returns the raster dimensions for a frame of frameLen bytes:
// the narrowest width not exceeding the square root of the pixel count,
// and enough rows to hold every pixel.
func Geometry(frameLen int) (width, height int) {
	pixels := (frameLen + 2) / 3
	width = isqrt(pixels)
	if width < 1 {
		width = 1
	}
	height = (pixels + width - 1) / width
	if height < 1 {
		height = 1
	}
	return width, height
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// Raster frames the chunk and packs it into a zero-padded RGB raster.
func (c *Chunk) Raster() (*Raster, error) {
	if uint64(len(c.d)) > maxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrSizeOverflow, len(c.d))
	}
	frameLen := HeaderSize + len(c.d)
	width, height := Geometry(frameLen)

	pix := make([]byte, width*height*3)
	hdr := Header{PayloadSize: uint32(len(c.d)), Index: c.o}.Marshal()
	copy(pix, hdr[:])
	copy(pix[HeaderSize:], c.d)

	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// ChunkFromRaster extracts the chunk framed in r. The payload aliases r.Pix.
func ChunkFromRaster(r *Raster) (*Chunk, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	hdr, err := ParseHeader(r.Pix)
	if err != nil {
		return nil, err
	}
	end := uint64(HeaderSize) + uint64(hdr.PayloadSize)
	if end > uint64(len(r.Pix)) {
		return nil, fmt.Errorf("%w: chunk %d declares %d payload bytes, raster %dx%d holds %d",
			ErrCorruptFrame, hdr.Index, hdr.PayloadSize, r.Width, r.Height, len(r.Pix)-HeaderSize)
	}
	return makeChunk(hdr.Index, r.Pix[HeaderSize:end]), nil
}
