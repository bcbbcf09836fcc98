package chunk

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/xfmoulet/qoi"
)

// Codec stores rasters in a lossless image container.
type Codec interface {
	Name() string
	// Ext is the file extension including the leading dot.
	Ext() string
	ContentType() string
	Encode(w io.Writer, img image.Image) error
	Decode(r io.Reader) (image.Image, error)
}

var (
	// PNG writes opaque rasters as 8-bit truecolor PNG.
	PNG Codec = pngCodec{enc: &png.Encoder{CompressionLevel: png.DefaultCompression}}
	// QOI writes rasters in the Quite OK Image format.
	QOI Codec = qoiCodec{}
)

var codecs = []Codec{PNG, QOI}

// CodecByName returns the codec registered under name, case-insensitively.
func CodecByName(name string) (Codec, error) {
	for _, c := range codecs {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// CodecForExt returns the codec whose extension matches ext.
func CodecForExt(ext string) (Codec, error) {
	for _, c := range codecs {
		if strings.EqualFold(c.Ext(), ext) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnknownCodec, ext)
}

// encodeRaster writes r through codec c.
func encodeRaster(w io.Writer, c Codec, r *Raster) error {
	if err := c.Encode(w, r.Image()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeImage, c.Name(), err)
	}
	return nil
}

// decodeRaster reads one image through codec c and flattens it.
func decodeRaster(rd io.Reader, c Codec) (*Raster, error) {
	img, err := c.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeImage, c.Name(), err)
	}
	return RasterFromImage(img)
}

type pngCodec struct {
	enc *png.Encoder
}

func (pngCodec) Name() string        { return "png" }
func (pngCodec) Ext() string         { return ".png" }
func (pngCodec) ContentType() string { return "image/png" }

func (c pngCodec) Encode(w io.Writer, img image.Image) error { return c.enc.Encode(w, img) }
func (pngCodec) Decode(r io.Reader) (image.Image, error)     { return png.Decode(r) }

type qoiCodec struct{}

func (qoiCodec) Name() string        { return "qoi" }
func (qoiCodec) Ext() string         { return ".qoi" }
func (qoiCodec) ContentType() string { return "image/qoi" }

func (qoiCodec) Encode(w io.Writer, img image.Image) error { return qoi.Encode(w, img) }
func (qoiCodec) Decode(r io.Reader) (image.Image, error)   { return qoi.Decode(r) }
