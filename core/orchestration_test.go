package orchestration

import (
	"context"
	"errors"
	"image"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-lens/core/capture"
	"github.com/koscakluka/ema-lens/core/transport"
)

type transportStub struct {
	mu                sync.Mutex
	chatRequests      []transport.ChatRequest
	translateRequests []transport.TranslateRequest
	clearCalls        int

	chat      func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error)
	translate func(ctx context.Context, req transport.TranslateRequest) (*transport.TranslateResponse, error)
	clear     func(ctx context.Context) error
}

func (s *transportStub) Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
	s.mu.Lock()
	s.chatRequests = append(s.chatRequests, req)
	s.mu.Unlock()

	if s.chat == nil {
		return &transport.ChatResponse{Success: true, Response: "reply to " + req.Text, SessionID: "sess"}, nil
	}
	return s.chat(ctx, req)
}

func (s *transportStub) Translate(ctx context.Context, req transport.TranslateRequest) (*transport.TranslateResponse, error) {
	s.mu.Lock()
	s.translateRequests = append(s.translateRequests, req)
	s.mu.Unlock()

	if s.translate == nil {
		return &transport.TranslateResponse{Success: true, OriginalText: req.Text, TranslatedText: "translated " + req.Text}, nil
	}
	return s.translate(ctx, req)
}

func (s *transportStub) ClearContext(ctx context.Context) error {
	s.mu.Lock()
	s.clearCalls++
	s.mu.Unlock()

	if s.clear == nil {
		return nil
	}
	return s.clear(ctx)
}

func (s *transportStub) chatCalls() []transport.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.ChatRequest(nil), s.chatRequests...)
}

func (s *transportStub) translateCalls() []transport.TranslateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.TranslateRequest(nil), s.translateRequests...)
}

func unavailable() error {
	return &transport.Error{Kind: transport.KindUnavailable, StatusCode: http.StatusServiceUnavailable}
}

func TestSendMessageAppendsReplyAndStoresSession(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		return &transport.ChatResponse{Success: true, Response: "Hi there!", SessionID: "sess_42"}, nil
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	if err := o.SendMessage(context.Background(), "hello", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := o.Snapshot()
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(snapshot.Messages))
	}
	if snapshot.Messages[0].Role != RoleUser || snapshot.Messages[0].Content != "hello" || snapshot.Messages[0].HasImage {
		t.Fatalf("unexpected user message %+v", snapshot.Messages[0])
	}
	if snapshot.Messages[1].Role != RoleAssistant || snapshot.Messages[1].Content != "Hi there!" {
		t.Fatalf("unexpected assistant message %+v", snapshot.Messages[1])
	}
	if snapshot.Messages[0].ID >= snapshot.Messages[1].ID {
		t.Fatalf("expected increasing message ids, got %d and %d", snapshot.Messages[0].ID, snapshot.Messages[1].ID)
	}
	if snapshot.SessionID != "sess_42" {
		t.Fatalf("expected session id %q, got %q", "sess_42", snapshot.SessionID)
	}
	if snapshot.Session != SessionActive {
		t.Fatalf("expected active session, got %s", snapshot.Session)
	}
	if snapshot.IsSending {
		t.Fatalf("expected request guard to be released")
	}
}

func TestSendMessageRejectsEmptyInput(t *testing.T) {
	client := &transportStub{}
	o := NewOrchestrator(client)
	defer o.Close()

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := o.SendMessage(context.Background(), text, ""); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %q, got %v", text, err)
		}
	}

	if len(client.chatCalls()) != 0 {
		t.Fatalf("expected no chat calls, got %d", len(client.chatCalls()))
	}
	if len(o.Snapshot().Messages) != 0 {
		t.Fatalf("expected no messages")
	}
}

func TestSendMessageImageOnly(t *testing.T) {
	client := &transportStub{}
	o := NewOrchestrator(client)
	defer o.Close()

	if err := o.SendMessage(context.Background(), "", "aW1hZ2U="); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := client.chatCalls()
	if len(calls) != 1 || calls[0].Image != "aW1hZ2U=" || calls[0].Text != "" {
		t.Fatalf("expected image only request, got %+v", calls)
	}
	if !o.Snapshot().Messages[0].HasImage {
		t.Fatalf("expected user message to be marked as having an image")
	}
}

func TestSendMessageRejectsOverlappingSends(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		close(started)
		<-release
		return &transport.ChatResponse{Success: true, Response: "done", SessionID: "sess"}, nil
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	done := make(chan error, 1)
	go func() { done <- o.SendMessage(context.Background(), "first", "") }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first send")
	}

	if !o.Snapshot().IsSending {
		t.Fatalf("expected request guard to be set")
	}
	for i := 0; i < 3; i++ {
		if err := o.SendMessage(context.Background(), "second", ""); !errors.Is(err, ErrRequestInFlight) {
			t.Fatalf("expected ErrRequestInFlight, got %v", err)
		}
	}
	if err := o.RetryLastMessage(context.Background()); err == nil {
		t.Fatalf("expected retry to be rejected while a send is in flight")
	}

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first send to finish")
	}

	if len(client.chatCalls()) != 1 {
		t.Fatalf("expected exactly one chat call, got %d", len(client.chatCalls()))
	}
	if len(o.Snapshot().Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(o.Snapshot().Messages))
	}

	client.chat = nil
	if err := o.SendMessage(context.Background(), "third", ""); err != nil {
		t.Fatalf("expected send after release to succeed, got %v", err)
	}
}

func TestServiceUnavailableIsRetryable(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		return nil, unavailable()
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	if err := o.SendMessage(context.Background(), "hello", "aW1n"); err != nil {
		t.Fatalf("expected failure to be recorded, not returned, got %v", err)
	}

	snapshot := o.Snapshot()
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected user and error messages, got %d", len(snapshot.Messages))
	}
	last := snapshot.Messages[1]
	if !last.IsError || !last.IsRetryable {
		t.Fatalf("expected retryable error message, got %+v", last)
	}
	if last.Content != messageUnavailable {
		t.Fatalf("expected %q, got %q", messageUnavailable, last.Content)
	}
	if snapshot.Pending.Text != "hello" || snapshot.Pending.Image != "aW1n" {
		t.Fatalf("expected pending input to be restored, got %+v", snapshot.Pending)
	}
	if snapshot.Banner == nil || !snapshot.Banner.Retryable {
		t.Fatalf("expected retryable banner, got %+v", snapshot.Banner)
	}
	if snapshot.IsSending {
		t.Fatalf("expected request guard to be released")
	}
	if !snapshot.CanRetry() {
		t.Fatalf("expected snapshot to offer a retry")
	}
}

func TestNonRetryableFailureDoesNotRestoreInput(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		return nil, &transport.Error{Kind: transport.KindOther, StatusCode: http.StatusBadRequest, Message: "No text or image provided"}
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")

	snapshot := o.Snapshot()
	last := snapshot.Messages[len(snapshot.Messages)-1]
	if !last.IsError || last.IsRetryable {
		t.Fatalf("expected non-retryable error message, got %+v", last)
	}
	if snapshot.Pending.Text != "" {
		t.Fatalf("expected pending input to stay empty, got %q", snapshot.Pending.Text)
	}
	if snapshot.Banner == nil || snapshot.Banner.Retryable {
		t.Fatalf("expected non-retryable banner, got %+v", snapshot.Banner)
	}
}

func TestRequestTimeoutReleasesGuard(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	o := NewOrchestrator(client, WithRequestTimeout(20*time.Millisecond))
	defer o.Close()

	done := make(chan struct{})
	go func() {
		_ = o.SendMessage(context.Background(), "hello", "")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the request timeout")
	}

	snapshot := o.Snapshot()
	last := snapshot.Messages[len(snapshot.Messages)-1]
	if last.Content != messageTimeout || !last.IsRetryable {
		t.Fatalf("expected retryable timeout message, got %+v", last)
	}
	if snapshot.IsSending {
		t.Fatalf("expected request guard to be released")
	}
}

func TestRetryLastMessageReissuesOriginalInput(t *testing.T) {
	failures := atomic.Int32{}
	failures.Store(1)
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		if failures.Add(-1) >= 0 {
			return nil, unavailable()
		}
		return &transport.ChatResponse{Success: true, Response: "ok", SessionID: "sess"}, nil
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "what is on screen", "aW1n")
	if err := o.RetryLastMessage(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := client.chatCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 chat calls, got %d", len(calls))
	}
	if calls[1] != calls[0] {
		t.Fatalf("expected retry to reissue %+v, got %+v", calls[0], calls[1])
	}

	snapshot := o.Snapshot()
	for _, msg := range snapshot.Messages {
		if msg.IsError {
			t.Fatalf("expected error message to be removed, got %+v", snapshot.Messages)
		}
	}
	if len(snapshot.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(snapshot.Messages))
	}
	if snapshot.Pending.Text != "" || snapshot.Pending.Image != "" {
		t.Fatalf("expected pending input to be consumed, got %+v", snapshot.Pending)
	}
}

func TestRetryRemovesOnlyTrailingError(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		return nil, unavailable()
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")
	_ = o.RetryLastMessage(context.Background())

	snapshot := o.Snapshot()
	errorCount := 0
	for _, msg := range snapshot.Messages {
		if msg.IsError {
			errorCount++
		}
	}
	if errorCount != 1 {
		t.Fatalf("expected a single error message, got %d", errorCount)
	}
	if !snapshot.Messages[len(snapshot.Messages)-1].IsError {
		t.Fatalf("expected error message to be last")
	}
}

func TestNewMessageReplacesTrailingError(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		if req.Text == "first" {
			return nil, unavailable()
		}
		return &transport.ChatResponse{Success: true, Response: "ok", SessionID: "sess"}, nil
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "first", "")
	if !o.Snapshot().CanRetry() {
		t.Fatalf("expected the failed turn to be retryable")
	}
	if err := o.SendMessage(context.Background(), "second", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := o.Snapshot()
	for i, msg := range snapshot.Messages {
		if msg.IsError && i != len(snapshot.Messages)-1 {
			t.Fatalf("expected error message at index %d to be last, got %+v", i, snapshot.Messages)
		}
	}
	want := []string{"first", "second", "ok"}
	if len(snapshot.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), snapshot.Messages)
	}
	for i, content := range want {
		if snapshot.Messages[i].Content != content {
			t.Fatalf("expected message %d to be %q, got %q", i, content, snapshot.Messages[i].Content)
		}
	}
	if snapshot.CanRetry() {
		t.Fatalf("expected no retry after a successful turn")
	}
}

func TestRetryWithoutFailureSendsNothing(t *testing.T) {
	client := &transportStub{}
	o := NewOrchestrator(client)
	defer o.Close()

	if err := o.RetryLastMessage(context.Background()); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	_ = o.SendMessage(context.Background(), "hello", "")
	if err := o.RetryLastMessage(context.Background()); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput after a successful send, got %v", err)
	}
	if len(client.chatCalls()) != 1 {
		t.Fatalf("expected one chat call, got %d", len(client.chatCalls()))
	}
}

func TestClearContextResetsState(t *testing.T) {
	client := &transportStub{}
	o := NewOrchestrator(client,
		WithTranslation(true),
		WithScreen(capture.ImageScreen{Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}),
	)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")
	o.translators.Wait()
	_ = o.StartSharing(context.Background())
	_ = o.CaptureNow(context.Background())

	before := o.Snapshot()
	if len(before.Translations) != 1 || before.Pending.Image == "" || before.SessionID == "" {
		t.Fatalf("expected populated state before clearing, got %+v", before)
	}

	if err := o.ClearContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := o.Snapshot()
	if len(after.Messages) != 0 || len(after.Translations) != 0 {
		t.Fatalf("expected empty logs, got %d messages and %d translations", len(after.Messages), len(after.Translations))
	}
	if after.SessionID != "" || after.Session != SessionNone {
		t.Fatalf("expected no session, got %q (%s)", after.SessionID, after.Session)
	}
	if after.Pending.Image != "" {
		t.Fatalf("expected no pending image")
	}
}

func TestClearContextFailureKeepsState(t *testing.T) {
	client := &transportStub{clear: func(ctx context.Context) error {
		return &transport.Error{Kind: transport.KindNetwork, Message: "error sending request", Err: errors.New("connection refused")}
	}}
	o := NewOrchestrator(client,
		WithTranslation(true),
		WithScreen(capture.ImageScreen{Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}),
	)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")
	o.translators.Wait()
	_ = o.StartSharing(context.Background())
	_ = o.CaptureNow(context.Background())
	before := o.Snapshot()

	err := o.ClearContext(context.Background())
	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected *TurnError, got %v", err)
	}

	after := o.Snapshot()
	if len(after.Messages) != len(before.Messages) || len(after.Translations) != len(before.Translations) {
		t.Fatalf("expected logs to be untouched")
	}
	if after.SessionID != before.SessionID || after.Pending.Image != before.Pending.Image {
		t.Fatalf("expected session and pending image to be untouched")
	}
	if after.Banner == nil || after.Banner.Retryable {
		t.Fatalf("expected non-retryable banner, got %+v", after.Banner)
	}
}

func TestStartSessionResetsLocalState(t *testing.T) {
	client := &transportStub{chat: func(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
		return nil, unavailable()
	}}
	o := NewOrchestrator(client)
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")
	o.StartSession()
	o.StartSession()

	snapshot := o.Snapshot()
	if len(snapshot.Messages) != 0 || snapshot.Banner != nil || snapshot.Pending.Text != "" {
		t.Fatalf("expected fresh state, got %+v", snapshot)
	}
	if snapshot.Session != SessionActive {
		t.Fatalf("expected active session, got %s", snapshot.Session)
	}
	if len(client.chatCalls()) != 1 {
		t.Fatalf("expected starting a session not to call the service")
	}
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	o := NewOrchestrator(&transportStub{})
	defer o.Close()

	if err := o.SetLanguage("de"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
	if err := o.SetLanguage("ko"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Snapshot().Settings.Language != "ko" {
		t.Fatalf("expected language ko, got %q", o.Snapshot().Settings.Language)
	}
}

func TestStateChangedCallbackReceivesSnapshots(t *testing.T) {
	sending := atomic.Bool{}
	o := NewOrchestrator(&transportStub{}, WithStateChangedCallback(func(s Snapshot) {
		if s.IsSending {
			sending.Store(true)
		}
	}))
	defer o.Close()

	_ = o.SendMessage(context.Background(), "hello", "")
	if !sending.Load() {
		t.Fatalf("expected a snapshot while the request was in flight")
	}
}
