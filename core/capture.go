package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-lens/core/capture"
)

// captureBridge owns the screen share and turns its frames into images that
// can be attached to a turn.
type captureBridge struct {
	screen        capture.Screen
	encodeOptions capture.EncodeOptions

	mu     sync.Mutex
	stream capture.Stream
}

type captureResult struct {
	payload string
	err     error
}

func (c *captureBridge) start(ctx context.Context) error {
	if c.screen == nil {
		return ErrNoScreen
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	stream, err := c.screen.Open(ctx)
	if err != nil {
		return err
	}
	c.stream = stream
	return nil
}

func (c *captureBridge) stop() error {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.Close()
}

func (c *captureBridge) sharing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// captureFrame grabs and encodes one frame. The device is read in the
// background and its single result is delivered over a channel, so the call
// resolves exactly once even if ctx ends first.
func (c *captureBridge) captureFrame(ctx context.Context) (string, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return "", capture.ErrNotSharing
	}

	result := make(chan captureResult, 1)
	go func() {
		frame, err := stream.Frame(ctx)
		if err != nil {
			result <- captureResult{err: fmt.Errorf("failed to grab frame: %w", err)}
			return
		}

		payload, err := capture.Encode(frame, c.encodeOptions)
		result <- captureResult{payload: payload, err: err}
	}()

	select {
	case r := <-result:
		if r.err == nil && r.payload == "" {
			return "", errors.New("capture produced no image")
		}
		return r.payload, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
