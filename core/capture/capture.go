// Package capture turns frames of a shared screen into images that can be
// attached to a chat turn.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxWidth  = 1920
	DefaultMaxHeight = 1080
	DefaultQuality   = 85
)

var (
	ErrNotSharing   = errors.New("screen sharing is not active")
	ErrStreamClosed = errors.New("screen stream closed")
)

// Screen hands out streams of a display.
type Screen interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open share of a display.
type Stream interface {
	// Frame returns the most recent frame of the stream.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

type EncodeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
	}
}

// Encode draws frame onto an RGBA raster, shrinks it to fit the configured
// bounds and returns it as base64 encoded JPEG.
func Encode(frame image.Image, opts EncodeOptions) (string, error) {
	if frame == nil {
		return "", errors.New("no frame to encode")
	}
	bounds := frame.Bounds()
	if bounds.Empty() {
		return "", errors.New("frame is empty")
	}

	raster := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(raster, raster.Bounds(), frame, bounds.Min, draw.Src)

	var img image.Image = raster
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 &&
		(bounds.Dx() > opts.MaxWidth || bounds.Dy() > opts.MaxHeight) {
		img = imaging.Fit(raster, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode is the inverse of [Encode], used to inspect captured images.
func Decode(payload string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid jpeg payload: %w", err)
	}
	return img, nil
}
