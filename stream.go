package chunk

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/clarkmcc/rasterchunk/protos"
)

// ToProto encodes the raster through codec c into a stream record.
func ToProto(index uint32, c Codec, r *Raster) (*protos.Raster, error) {
	var buf bytes.Buffer
	if err := encodeRaster(&buf, c, r); err != nil {
		return nil, err
	}
	return &protos.Raster{
		Index: index,
		Codec: c.Name(),
		Image: buf.Bytes(),
	}, nil
}

// FromProto decodes the image carried by a stream record.
func FromProto(msg *protos.Raster) (*Raster, error) {
	c, err := CodecByName(msg.Codec)
	if err != nil {
		return nil, err
	}
	return decodeRaster(bytes.NewReader(msg.Image), c)
}

var _ Sink = &StreamSink{}

// StreamSink writes rasters as length-delimited protobuf records to a
// single byte stream. Record order is chunk order.
type StreamSink struct {
	w     *bufio.Writer
	codec Codec
}

func NewStreamSink(w io.Writer, codec Codec) *StreamSink {
	return &StreamSink{w: bufio.NewWriter(w), codec: codec}
}

func (s *StreamSink) Put(ctx context.Context, index uint32, r *Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := ToProto(index, s.codec, r)
	if err != nil {
		return err
	}
	return protos.WriteDelimited(s.w, msg)
}

// Close flushes buffered records. The underlying writer is left open.
func (s *StreamSink) Close() error {
	return s.w.Flush()
}

var _ Source = &StreamSource{}

// StreamSource reads the records written by a StreamSink in stream order.
type StreamSource struct {
	r *bufio.Reader
}

func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: bufio.NewReader(r)}
}

func (s *StreamSource) Next(ctx context.Context) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := protos.ReadDelimited(s.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	r, err := FromProto(msg)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", msg.Index, err)
	}
	return r, nil
}

func (s *StreamSource) Close() error { return nil }
