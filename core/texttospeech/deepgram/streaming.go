package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-lens/core/texttospeech"
)

// closeGracePeriod bounds how long the reader waits for deepgram to close the
// socket after a Close message.
const closeGracePeriod = 2 * time.Second

// streamingRequest is a single speak websocket. Text is sent once, followed by
// a flush; the request ends when deepgram confirms every flush.
type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	options texttospeech.SpeechOptions

	pendingFlushes int
	textComplete   bool
	cancelled      bool
	closed         bool
	endedOnce      sync.Once
}

func (c *TextToSpeechClient) newStreamingRequest(ctx context.Context, voice deepgramVoice, options texttospeech.SpeechOptions) (*streamingRequest, error) {
	conn, err := c.connectWebsocket(ctx, voice, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	req := &streamingRequest{ws: conn, options: options}
	go req.processIncomingMessages(ctx)

	return req, nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice, options texttospeech.SpeechOptions) (*websocket.Conn, error) {
	endpoint := c.endpoint
	urlValues := endpoint.Query()
	urlValues.Set("encoding", string(options.EncodingInfo.Format))
	urlValues.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")
	endpoint.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *streamingRequest) processIncomingMessages(ctx context.Context) {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.WarnContext(ctx, "deepgram websocket read failed", "error", err)
				r.options.ErrorCallback(fmt.Errorf("deepgram websocket read failed: %w", err))
			}
			_ = r.ws.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.DebugContext(ctx, "failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.mu.Lock()
				if r.pendingFlushes > 0 {
					r.pendingFlushes--
				}
				finished := r.textComplete && r.pendingFlushes == 0
				r.mu.Unlock()

				if finished {
					r.endedOnce.Do(r.options.SpeechEndedCallback)
					_ = r.Close()
				}
			case "Warning":
				logger.WarnContext(ctx, "deepgram warning", "description", parsedMsg.Description)
			case "Error":
				r.options.ErrorCallback(fmt.Errorf("deepgram error: %s", parsedMsg.Description))
			}
		}
	}
}

func (r *streamingRequest) SendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writableLocked(); err != nil {
		return err
	}

	if err := r.ws.WriteJSON(sendTextMsg(text)); err != nil {
		return fmt.Errorf("failed to send websocket send text message: %w", err)
	}
	return nil
}

// EndOfText flushes the sent text; the request finishes once deepgram
// confirms the flush.
func (r *streamingRequest) EndOfText() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writableLocked(); err != nil {
		return err
	}

	if err := r.ws.WriteJSON(flushMsg); err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}
	r.pendingFlushes++
	r.textComplete = true
	return nil
}

func (r *streamingRequest) Cancel() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.cancelled = true
	err := r.ws.WriteJSON(clearMsg)
	r.mu.Unlock()

	closeErr := r.Close()
	if err != nil {
		return errors.Join(fmt.Errorf("failed to send websocket clear message: %w", err), closeErr)
	}
	return closeErr
}

func (r *streamingRequest) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.ws.WriteJSON(closeMsg); err != nil {
		if agressiveCloseErr := r.ws.Close(); agressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, agressiveCloseErr))
		}
		return nil
	}
	_ = r.ws.SetReadDeadline(time.Now().Add(closeGracePeriod))
	return nil
}

func (r *streamingRequest) writableLocked() error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func sendTextMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)
