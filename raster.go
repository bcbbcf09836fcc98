package chunk

import (
	"fmt"
	"image"
	"image/color"
)

// Raster is an 8-bit RGB image stored as packed, row-major pixel bytes.
type Raster struct {
	Width  int
	Height int
	// Pix holds exactly Width*Height*3 bytes.
	Pix []byte
}

// NewRaster wraps pix as a width x height raster.
func NewRaster(width, height int, pix []byte) (*Raster, error) {
	r := &Raster{Width: width, Height: height, Pix: pix}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Raster) validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrInvalidRaster)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidRaster, r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height*3 {
		return fmt.Errorf("%w: %dx%d with %d pixel bytes", ErrInvalidRaster, r.Width, r.Height, len(r.Pix))
	}
	return nil
}

// Image returns the raster as an opaque NRGBA image for the image codecs.
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i+2 < len(r.Pix); i, j = i+3, j+4 {
		img.Pix[j] = r.Pix[i]
		img.Pix[j+1] = r.Pix[i+1]
		img.Pix[j+2] = r.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// RasterFromImage flattens the RGB channels of img into a raster. Alpha is
// dropped; rasters written by this package are always opaque.
func RasterFromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidRaster, width, height)
	}
	pix := make([]byte, 0, width*height*3)

	switch m := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := m.PixOffset(b.Min.X, y)
			pix = appendRGB(pix, m.Pix[i:i+width*4])
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := m.PixOffset(b.Min.X, y)
			pix = appendRGB(pix, m.Pix[i:i+width*4])
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix = append(pix, c.R, c.G, c.B)
			}
		}
	}

	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// appendRGB appends the RGB bytes of a row of 4-byte pixels.
func appendRGB(dst, row []byte) []byte {
	for i := 0; i+3 < len(row); i += 4 {
		dst = append(dst, row[i], row[i+1], row[i+2])
	}
	return dst
}
