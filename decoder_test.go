package chunk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var _ Source = &fakeSource{}

type fakeSource struct {
	rasters     []*Raster
	i           int
	shouldError bool
	closed      bool
	lock        sync.Mutex
}

func (m *fakeSource) Next(context.Context) (*Raster, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil, io.ErrClosedPipe
	}
	if m.shouldError {
		return nil, fmt.Errorf("intentional error")
	}
	if m.i >= len(m.rasters) {
		return nil, io.EOF
	}
	defer func() {
		m.i++
	}()
	return m.rasters[m.i], nil
}

func (m *fakeSource) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed = true
	return nil
}

func newFakeSource(rasters []*Raster, shouldError, closed bool) *fakeSource {
	return &fakeSource{
		rasters:     rasters,
		shouldError: shouldError,
		closed:      closed,
	}
}

func decodeAll(t *testing.T, d *Decoder, rasters []*Raster) ([]byte, error) {
	t.Helper()
	var buf bytes.Buffer
	n, err := d.Decode(context.Background(), newFakeSource(rasters, false, false), &buf)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes(), err
}

func TestDecoder_RoundTrip(t *testing.T) {
	const capacity = 4096
	maxPayload := capacity - HeaderSize
	for _, size := range []int{1, 5, maxPayload - 1, maxPayload, maxPayload + 1, 3*maxPayload + 17, 5 << 20} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			data := makeData(size)
			seq := encodeBytes(t, data, capacity)

			for _, trust := range []bool{false, true} {
				out, err := decodeAll(t, NewDecoder(&DecoderOpts{TrustSequence: trust}), seq.Rasters)
				require.NoError(t, err)
				require.True(t, bytes.Equal(data, out), "trust sequence %v", trust)
			}
		})
	}
}

func TestDecoder_DefaultCapacity(t *testing.T) {
	data := makeData(3*DefaultMaxImageSize + 1)
	seq := encodeBytes(t, data, 0)
	require.Len(t, seq.Rasters, 4)

	out, err := decodeAll(t, NewDecoder(nil), seq.Rasters)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, out))
}

func TestDecoder_Example(t *testing.T) {
	seq := encodeBytes(t, []byte{1, 2, 3, 4, 5}, 20)
	require.Len(t, seq.Rasters, 1)
	require.Equal(t, 2, seq.Rasters[0].Width)
	require.Equal(t, 3, seq.Rasters[0].Height)

	out, err := decodeAll(t, NewDecoder(nil), seq.Rasters)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, out)
}

func TestDecoder_Decode(t *testing.T) {
	rasters := encodeBytes(t, makeData(100), 20).Rasters

	t.Run("Empty", func(t *testing.T) {
		_, err := decodeAll(t, NewDecoder(nil), nil)
		require.ErrorIs(t, err, ErrNoInput)
	})
	t.Run("Error", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := NewDecoder(nil).Decode(context.Background(), newFakeSource(rasters, true, false), &buf)
		require.ErrorIs(t, err, ErrNextRaster)
		require.Zero(t, buf.Len())
	})
	t.Run("Closed", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := NewDecoder(nil).Decode(context.Background(), newFakeSource(rasters, false, true), &buf)
		require.Error(t, err)
	})
	t.Run("ClosesSource", func(t *testing.T) {
		src := newFakeSource(rasters, false, false)
		_, err := NewDecoder(nil).Decode(context.Background(), src, io.Discard)
		require.NoError(t, err)
		require.True(t, src.closed)
	})
	t.Run("Corrupt", func(t *testing.T) {
		bad := &Raster{Width: rasters[1].Width, Height: rasters[1].Height, Pix: append([]byte(nil), rasters[1].Pix...)}
		bad.Pix[0] = 0xff
		corrupt := []*Raster{rasters[0], bad, rasters[2]}
		for _, trust := range []bool{false, true} {
			_, err := decodeAll(t, NewDecoder(&DecoderOpts{TrustSequence: trust}), corrupt)
			require.ErrorIs(t, err, ErrCorruptFrame)
		}
	})
}

func TestDecoder_Ordering(t *testing.T) {
	data := makeData(200)
	rasters := encodeBytes(t, data, 40).Rasters
	require.Len(t, rasters, 7)

	shuffled := []*Raster{rasters[3], rasters[0], rasters[6], rasters[2], rasters[1], rasters[5], rasters[4]}

	t.Run("HeaderIndex", func(t *testing.T) {
		out, err := decodeAll(t, NewDecoder(nil), shuffled)
		require.NoError(t, err)
		require.Equal(t, data, out)
	})
	t.Run("TrustSequence", func(t *testing.T) {
		out, err := decodeAll(t, NewDecoder(&DecoderOpts{TrustSequence: true}), shuffled)
		require.NoError(t, err)
		require.Len(t, out, len(data))
		require.NotEqual(t, data, out)
	})
	t.Run("Missing", func(t *testing.T) {
		_, err := decodeAll(t, NewDecoder(nil), []*Raster{rasters[0], rasters[1], rasters[3]})
		require.ErrorIs(t, err, ErrMissingChunks)

		_, err = decodeAll(t, NewDecoder(nil), []*Raster{rasters[1], rasters[2]})
		require.ErrorIs(t, err, ErrMissingChunks)
	})
	t.Run("Duplicate", func(t *testing.T) {
		_, err := decodeAll(t, NewDecoder(nil), []*Raster{rasters[0], rasters[1], rasters[1], rasters[2]})
		require.ErrorIs(t, err, ErrDuplicateChunk)

		_, err = decodeAll(t, NewDecoder(nil), []*Raster{rasters[2], rasters[2]})
		require.ErrorIs(t, err, ErrDuplicateChunk)
	})
}

func TestDecoder_Collect(t *testing.T) {
	data := makeData(200)
	rasters := encodeBytes(t, data, 40).Rasters

	t.Run("Normal", func(t *testing.T) {
		src := newFakeSource([]*Raster{rasters[6], rasters[5], rasters[4], rasters[3], rasters[2], rasters[1], rasters[0]}, false, false)
		group, err := NewDecoder(nil).Collect(context.Background(), src)
		require.NoError(t, err)
		require.Equal(t, 7, group.Len())
		require.Equal(t, data, group.Bytes())
		require.True(t, src.closed)
	})
	t.Run("Missing", func(t *testing.T) {
		group, err := NewDecoder(nil).Collect(context.Background(), newFakeSource(rasters[1:], false, false))
		require.ErrorIs(t, err, ErrMissingChunks)
		require.Nil(t, group)
	})
	t.Run("Duplicate", func(t *testing.T) {
		for _, in := range [][]*Raster{
			{rasters[0], rasters[1], rasters[1], rasters[2]},
			{rasters[2], rasters[0], rasters[1], rasters[2]},
		} {
			group, err := NewDecoder(nil).Collect(context.Background(), newFakeSource(in, false, false))
			require.ErrorIs(t, err, ErrDuplicateChunk)
			require.Nil(t, group)

			_, err = decodeAll(t, NewDecoder(nil), in)
			require.ErrorIs(t, err, ErrDuplicateChunk)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		group, err := NewDecoder(nil).Collect(context.Background(), newFakeSource(nil, false, false))
		require.ErrorIs(t, err, ErrNoInput)
		require.Nil(t, group)
	})
	t.Run("Error", func(t *testing.T) {
		group, err := NewDecoder(nil).Collect(context.Background(), newFakeSource(rasters, true, false))
		require.Error(t, err)
		require.Nil(t, group)
	})
}
