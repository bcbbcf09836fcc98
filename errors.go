package chunk

import "errors"

var (
	// ErrNoInput indicates the source stream or raster sequence was empty.
	ErrNoInput = errors.New("no input")
	// ErrConfiguration indicates the raster capacity cannot hold a header and a payload.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrCorruptFrame indicates a raster's header is inconsistent with its buffer.
	ErrCorruptFrame = errors.New("corrupt frame")
	// ErrMissingChunks indicates a gap in the chunk index sequence.
	ErrMissingChunks = errors.New("missing chunks")
	// ErrDuplicateChunk indicates two rasters carry the same chunk index.
	ErrDuplicateChunk = errors.New("duplicate chunk")
	// ErrSizeOverflow indicates a size or index exceeds the 32-bit header fields.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrInvalidRaster indicates raster dimensions do not match its pixel buffer.
	ErrInvalidRaster = errors.New("invalid raster")
	// ErrUnknownCodec indicates an unsupported image codec name or extension.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrSequenceName indicates a raster name without a numeric sequence suffix.
	ErrSequenceName = errors.New("invalid sequence name")
	// ErrSequenceExists indicates the target already holds rasters of an earlier run.
	ErrSequenceExists = errors.New("sequence already exists")
	// ErrPutRaster indicates the sink rejected a raster.
	ErrPutRaster = errors.New("put raster failed")
	// ErrNextRaster indicates the source failed to produce a raster.
	ErrNextRaster = errors.New("next raster failed")
	// ErrEncodeImage indicates an image codec failed to encode a raster.
	ErrEncodeImage = errors.New("encode image failed")
	// ErrDecodeImage indicates an image codec failed to decode a raster.
	ErrDecodeImage = errors.New("decode image failed")
)
