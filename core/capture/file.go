package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// FileScreen shares an image file as if it were a display. Every frame is read
// from disk again, so replacing the file changes what gets captured.
type FileScreen struct {
	Path string
}

func NewFileScreen(path string) *FileScreen {
	return &FileScreen{Path: path}
}

func (s *FileScreen) Open(ctx context.Context) (Stream, error) {
	if s == nil || s.Path == "" {
		return nil, errors.New("no screen source configured")
	}
	if _, err := imaging.Open(s.Path); err != nil {
		return nil, fmt.Errorf("failed to open screen source: %w", err)
	}

	logger.DebugContext(ctx, "screen sharing started", "source", s.Path)
	return &fileStream{path: s.Path}, nil
}

type fileStream struct {
	path string

	mu     sync.Mutex
	closed bool
}

func (s *fileStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := imaging.Open(s.path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return frame, nil
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ImageScreen shares a fixed in-memory image.
type ImageScreen struct {
	Image image.Image
}

func (s ImageScreen) Open(context.Context) (Stream, error) {
	if s.Image == nil {
		return nil, errors.New("no image to share")
	}
	return &imageStream{img: s.Image}, nil
}

type imageStream struct {
	img image.Image

	mu     sync.Mutex
	closed bool
}

func (s *imageStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	return s.img, ctx.Err()
}

func (s *imageStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
