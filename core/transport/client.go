// Package transport performs the outbound calls of the assistant client: chat
// turns, translations and context management. Every call carries the cookies
// of previous responses so the service keeps the conversation bound to the
// same session.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/publicsuffix"
)

const requestIDHeader = "X-Request-Id"

type Client struct {
	baseURL    *url.URL
	endpoints  Endpoints
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithEndpoints(endpoints Endpoints) ClientOption {
	return func(c *Client) { c.endpoints = endpoints }
}

// WithHTTPClient replaces the default instrumented client. The cookie jar is
// only attached when the given client has none.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		endpoints:  DefaultEndpoints(),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("error creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.Chat, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if req.ConversationContext == nil {
		req.ConversationContext = []ContextMessage{}
	}

	var resp TranslateResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.Translate, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ClearContext(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.endpoints.ClearContext, nil, nil)
}

// Languages returns the translation targets the service accepts, keyed by
// language code.
func (c *Client) Languages(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Languages map[string]string `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, c.endpoints.Languages, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Languages, nil
}

func (c *Client) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	var resp SessionInfo
	if err := c.do(ctx, http.MethodGet, c.endpoints.SessionInfo, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, c.endpoints.Health, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (err error) {
	ctx, span := tracer.Start(ctx, "call assistant service")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	endpoint := c.baseURL.JoinPath(path)
	span.SetAttributes(
		attribute.String("request.method", method),
		attribute.String("request.url", endpoint.String()),
	)

	var reqBody io.Reader
	if body != nil {
		requestBodyBytes, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindOther, Message: "error marshalling JSON", Err: err}
		}
		reqBody = bytes.NewReader(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return &Error{Kind: KindOther, Message: "error creating HTTP request", Err: err}
	}

	requestID := uuid.NewString()
	span.SetAttributes(attribute.String("request.id", requestID))
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestError(fmt.Errorf("error reading response body: %w", err))
	}

	var env envelope
	_ = json.Unmarshal(bodyBytes, &env) // Non-JSON error pages are fine here

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := env.Error
		if message == "" {
			message = strings.TrimSpace(string(bodyBytes))
			if len(message) > 200 || strings.HasPrefix(message, "<") {
				message = ""
			}
		}
		logger.DebugContext(ctx, "assistant service returned an error status",
			"status_code", resp.StatusCode,
			"request_id", requestID,
			"error", message,
		)
		return statusError(resp.StatusCode, message)
	}

	if env.Success != nil && !*env.Success {
		message := env.Error
		if message == "" {
			message = "request was not successful"
		}
		return &Error{Kind: KindOther, Message: message}
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return &Error{Kind: KindOther, Message: "error unmarshalling response body", Err: err}
	}

	return nil
}
