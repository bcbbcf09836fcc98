package chunk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var _ Sink = &fakeSink{}

type fakeSink struct {
	rasters     map[uint32]*Raster
	order       []uint32
	lock        sync.Mutex
	shouldError bool
	closed      bool
	onPut       func()
}

func (f *fakeSink) Put(_ context.Context, index uint32, r *Raster) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.shouldError {
		return fmt.Errorf("intentional error")
	}
	if f.closed {
		return errors.New("sink closed")
	}
	f.rasters[index] = r
	f.order = append(f.order, index)
	if f.onPut != nil {
		f.onPut()
	}
	return nil
}

func (f *fakeSink) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func newFakeSink(shouldError bool) *fakeSink {
	return &fakeSink{
		rasters:     map[uint32]*Raster{},
		shouldError: shouldError,
	}
}

func encodeBytes(t *testing.T, data []byte, maxImageSize int) *Sequence {
	t.Helper()
	seq := &Sequence{}
	enc, err := NewEncoder(seq, &EncoderOpts{MaxImageSize: maxImageSize})
	require.NoError(t, err)
	_, err = enc.Encode(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	return seq
}

func TestNewEncoder_Configuration(t *testing.T) {
	for _, size := range []int{-1, 1, HeaderSize} {
		_, err := NewEncoder(newFakeSink(false), &EncoderOpts{MaxImageSize: size})
		require.ErrorIs(t, err, ErrConfiguration, "max image size %d", size)
	}

	enc, err := NewEncoder(newFakeSink(false), &EncoderOpts{MaxImageSize: HeaderSize + 1})
	require.NoError(t, err)
	require.NotNil(t, enc)

	_, err = NewEncoder(newFakeSink(false), nil)
	require.NoError(t, err)
}

func TestEncoder_Encode(t *testing.T) {
	t.Run("Normal", func(t *testing.T) {
		sink := newFakeSink(false)
		enc, err := NewEncoder(sink, &EncoderOpts{MaxImageSize: 1024})
		require.NoError(t, err)

		n, err := enc.Encode(context.Background(), bytes.NewReader(makeData(10*1024)))
		require.NoError(t, err)
		// ceil(10240 / 1016)
		require.Equal(t, 11, n)
		require.Len(t, sink.rasters, 11)
		require.True(t, sink.closed)
		for i, index := range sink.order {
			require.Equal(t, uint32(i), index)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		sink := newFakeSink(false)
		enc, err := NewEncoder(sink, nil)
		require.NoError(t, err)

		n, err := enc.Encode(context.Background(), bytes.NewReader(nil))
		require.ErrorIs(t, err, ErrNoInput)
		require.Zero(t, n)
		require.False(t, sink.closed)
	})
	t.Run("Error", func(t *testing.T) {
		sink := newFakeSink(true)
		enc, err := NewEncoder(sink, &EncoderOpts{MaxImageSize: 1024})
		require.NoError(t, err)

		n, err := enc.Encode(context.Background(), bytes.NewReader(makeData(10*1024)))
		require.ErrorIs(t, err, ErrPutRaster)
		require.Zero(t, n)
		require.False(t, sink.closed)
	})
	t.Run("Closed", func(t *testing.T) {
		sink := newFakeSink(false)
		require.NoError(t, sink.Close())
		enc, err := NewEncoder(sink, &EncoderOpts{MaxImageSize: 1024})
		require.NoError(t, err)

		_, err = enc.Encode(context.Background(), bytes.NewReader(makeData(100)))
		require.Error(t, err)
		require.Empty(t, sink.rasters)
	})
	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		enc, err := NewEncoder(&Sequence{}, &EncoderOpts{MaxImageSize: 64})
		require.NoError(t, err)

		_, err = enc.Encode(ctx, bytes.NewReader(makeData(1024)))
		require.Error(t, err)
	})
	t.Run("CancelledMidway", func(t *testing.T) {
		// the sink ignores ctx, only the pipeline can notice the cancellation
		for i := 0; i < 200; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			sink := newFakeSink(false)
			sink.onPut = cancel
			enc, err := NewEncoder(sink, &EncoderOpts{MaxImageSize: 16, BufferSize: 1})
			require.NoError(t, err)

			n, err := enc.Encode(ctx, bytes.NewReader(makeData(800)))
			require.ErrorIs(t, err, context.Canceled, "iteration %d: %d rasters", i, n)
			require.False(t, sink.closed, "iteration %d", i)
			cancel()
		}
	})
}

func TestEncoder_ChunkCount(t *testing.T) {
	for _, tc := range []struct {
		size     int
		capacity int
	}{
		{size: 1, capacity: 9},
		{size: 5, capacity: 20},
		{size: 12, capacity: 20},
		{size: 13, capacity: 20},
		{size: 1000, capacity: 100},
		{size: 1001, capacity: 108},
		{size: 3 << 20, capacity: DefaultMaxImageSize},
	} {
		t.Run(fmt.Sprintf("%d/%d", tc.size, tc.capacity), func(t *testing.T) {
			seq := encodeBytes(t, makeData(tc.size), tc.capacity)
			maxPayload := tc.capacity - HeaderSize
			require.Len(t, seq.Rasters, (tc.size+maxPayload-1)/maxPayload)

			for i, raster := range seq.Rasters {
				hdr, err := ParseHeader(raster.Pix)
				require.NoError(t, err)
				require.Equal(t, uint32(i), hdr.Index)
				require.LessOrEqual(t, int(hdr.PayloadSize), maxPayload)

				w, h := Geometry(HeaderSize + int(hdr.PayloadSize))
				require.Equal(t, w, raster.Width)
				require.Equal(t, h, raster.Height)
			}
		})
	}
}
