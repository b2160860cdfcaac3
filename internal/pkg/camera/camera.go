// Package camera captures evidence stills with a burned-in timestamp.
// The overlay is evidentiary only; it is not tamper-proof.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultJPEGQuality = 80
	DefaultMaxWidth    = 1280

	// TimestampLayout is the overlay format (dd/mm/yyyy hh:mm:ss).
	TimestampLayout = "02/01/2006 15:04:05"

	overlayPadding = 8
)

var ErrStreamStopped = errors.New("camera stream stopped")

type Facing int

const (
	FacingAny Facing = iota
	FacingUser
)

// Constraints narrows which camera a Device opens.
type Constraints struct {
	Facing Facing
}

// Device is the platform camera.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera. Stop releases it and is safe to call twice.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

type ErrorKind int

const (
	ErrorDenied ErrorKind = iota + 1
	ErrorCapture
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorDenied:
		return fmt.Sprintf("camera access denied: %v", e.Err)
	case ErrorCapture:
		return fmt.Sprintf("failed to capture photo: %v", e.Err)
	}
	return "camera error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Capture struct {
	device   Device
	quality  int
	maxWidth int
	location *time.Location
	now      func() time.Time
}

type Option func(*Capture)

func WithQuality(q int) Option {
	return func(c *Capture) {
		if q > 0 && q <= 100 {
			c.quality = q
		}
	}
}

func WithMaxWidth(w int) Option {
	return func(c *Capture) {
		if w > 0 {
			c.maxWidth = w
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(c *Capture) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Capture) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCapture(device Device, opts ...Option) *Capture {
	c := &Capture{
		device:   device,
		quality:  DefaultJPEGQuality,
		maxWidth: DefaultMaxWidth,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenCamera prefers the front camera and falls back to any camera.
func (c *Capture) OpenCamera(ctx context.Context) (Stream, error) {
	stream, err := c.device.Open(ctx, Constraints{Facing: FacingUser})
	if err == nil {
		return stream, nil
	}
	slog.Warn("Front camera unavailable, retrying without constraints", "error", err)

	stream, fallbackErr := c.device.Open(ctx, Constraints{Facing: FacingAny})
	if fallbackErr != nil {
		return nil, &Error{Kind: ErrorDenied, Err: errors.Join(err, fallbackErr)}
	}
	return stream, nil
}

// CaptureStill grabs the current frame, stamps it with the local time and
// encodes it as JPEG. The stream is always stopped.
func (c *Capture) CaptureStill(ctx context.Context, stream Stream) ([]byte, error) {
	defer stream.Stop()

	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, &Error{Kind: ErrorCapture, Err: err}
	}

	canvas := c.render(frame)
	drawTimestamp(canvas, c.now().In(c.location).Format(TimestampLayout))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, &Error{Kind: ErrorCapture, Err: fmt.Errorf("failed to encode image: %w", err)}
	}

	return buf.Bytes(), nil
}

// render copies frame into an RGBA buffer, downscaling wide frames.
func (c *Capture) render(frame image.Image) *image.RGBA {
	src := frame.Bounds()
	width, height := src.Dx(), src.Dy()

	if width > c.maxWidth {
		height = height * c.maxWidth / width
		width = c.maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == src.Dx() {
		xdraw.Draw(dst, dst.Bounds(), frame, src.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), frame, src, xdraw.Src, nil)
	}
	return dst
}

func drawTimestamp(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	textWidth := font.MeasureString(face, text).Ceil()

	bounds := dst.Bounds()
	baseline := bounds.Max.Y - overlayPadding - metrics.Descent.Ceil()
	left := bounds.Min.X + overlayPadding

	box := image.Rect(
		left-4,
		baseline-metrics.Ascent.Ceil()-4,
		left+textWidth+4,
		baseline+metrics.Descent.Ceil()+4,
	).Intersect(bounds)
	xdraw.Draw(dst, box, image.NewUniform(color.NRGBA{A: 160}), image.Point{}, xdraw.Over)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(left, baseline),
	}
	d.DrawString(text)
}
