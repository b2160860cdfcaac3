package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	frame   image.Image
	err     error
	stopped int
}

func (s *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	return s.frame, s.err
}

func (s *fakeStream) Stop() { s.stopped++ }

type fakeDevice struct {
	front  error
	any    error
	stream *fakeStream
	calls  []Constraints
}

func (d *fakeDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.calls = append(d.calls, c)
	if c.Facing == FacingUser && d.front != nil {
		return nil, d.front
	}
	if c.Facing == FacingAny && d.any != nil {
		return nil, d.any
	}
	return d.stream, nil
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCapture_OpenCamera(t *testing.T) {
	t.Run("front camera first", func(t *testing.T) {
		dev := &fakeDevice{stream: &fakeStream{}}
		_, err := NewCapture(dev).OpenCamera(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []Constraints{{Facing: FacingUser}}, dev.calls)
	})

	t.Run("falls back to any camera", func(t *testing.T) {
		dev := &fakeDevice{front: errors.New("overconstrained"), stream: &fakeStream{}}
		stream, err := NewCapture(dev).OpenCamera(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, stream)
		assert.Equal(t, []Constraints{{Facing: FacingUser}, {Facing: FacingAny}}, dev.calls)
	})

	t.Run("denied when both fail", func(t *testing.T) {
		dev := &fakeDevice{front: errors.New("overconstrained"), any: errors.New("not allowed")}
		_, err := NewCapture(dev).OpenCamera(context.Background())

		var camErr *Error
		require.ErrorAs(t, err, &camErr)
		assert.Equal(t, ErrorDenied, camErr.Kind)
		assert.Contains(t, err.Error(), "not allowed")
	})
}

func TestCapture_CaptureStill(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, time.March, 8, 8, 0, 5, 0, time.UTC) }

	t.Run("encodes stamped jpeg and stops stream", func(t *testing.T) {
		stream := &fakeStream{frame: solid(320, 240, color.RGBA{R: 0, G: 0, B: 255, A: 255})}
		c := NewCapture(&fakeDevice{stream: stream}, WithClock(clock), WithLocation(time.UTC))

		data, err := c.CaptureStill(context.Background(), stream)
		require.NoError(t, err)
		assert.Equal(t, 1, stream.stopped)

		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())

		// top-right stays blue, bottom-left is covered by the overlay
		_, _, b, _ := img.At(310, 10).RGBA()
		assert.Greater(t, b>>8, uint32(200))
		_, _, b, _ = img.At(5, 220).RGBA()
		assert.Less(t, b>>8, uint32(200))
	})

	t.Run("downscales wide frames", func(t *testing.T) {
		stream := &fakeStream{frame: solid(2560, 1440, color.Gray{Y: 128})}
		c := NewCapture(&fakeDevice{stream: stream}, WithClock(clock))

		data, err := c.CaptureStill(context.Background(), stream)
		require.NoError(t, err)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxWidth, cfg.Width)
		assert.Equal(t, 720, cfg.Height)
	})

	t.Run("stream stopped on frame failure", func(t *testing.T) {
		stream := &fakeStream{err: errors.New("device lost")}
		c := NewCapture(&fakeDevice{stream: stream})

		_, err := c.CaptureStill(context.Background(), stream)
		var camErr *Error
		require.ErrorAs(t, err, &camErr)
		assert.Equal(t, ErrorCapture, camErr.Kind)
		assert.Equal(t, 1, stream.stopped)
	})
}

func writePNG(t *testing.T, path string, img image.Image, mod time.Time) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestDirectoryDevice(t *testing.T) {
	front := t.TempDir()
	other := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writePNG(t, filepath.Join(front, "old.png"), solid(4, 4, color.White), base)
	writePNG(t, filepath.Join(front, "new.png"), solid(8, 6, color.Black), base.Add(time.Minute))
	require.NoError(t, os.WriteFile(filepath.Join(front, "notes.txt"), []byte("x"), 0o644))

	dev := DirectoryDevice{FrontDir: front, Dir: other}

	stream, err := dev.Open(context.Background(), Constraints{Facing: FacingUser})
	require.NoError(t, err)

	frame, err := stream.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), frame.Bounds())

	stream.Stop()
	_, err = stream.Frame(context.Background())
	assert.ErrorIs(t, err, ErrStreamStopped)

	// unconstrained prefers Dir, which is empty
	stream, err = dev.Open(context.Background(), Constraints{Facing: FacingAny})
	require.NoError(t, err)
	_, err = stream.Frame(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)

	_, err = DirectoryDevice{FrontDir: filepath.Join(front, "missing")}.Open(context.Background(), Constraints{Facing: FacingUser})
	assert.Error(t, err)
}
