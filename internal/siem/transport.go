package siem

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/retry"
)

// TransportConfig configures the shared HTTP transport.
type TransportConfig struct {
	Backend   string
	BaseURL   string
	Timeout   time.Duration
	VerifyTLS bool
	// Headers are attached to every request (auth tokens live here).
	Headers map[string]string
	// WrapTransport, when set, wraps the base round tripper. Used by
	// backends whose auth layer injects and refreshes tokens itself.
	WrapTransport func(http.RoundTripper) http.RoundTripper
	Retry         retry.Config
	Logger        logger.Interface
}

// Request describes one API call. Path is joined onto the base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// JSONBody, when non-nil, is marshalled and sent as application/json.
	JSONBody any
	// FormBody, when non-nil, is sent as application/x-www-form-urlencoded.
	FormBody url.Values
	// AcceptStatuses are non-2xx statuses returned to the caller as a
	// normal response instead of an error (e.g. 416 marking the end of
	// ranged pagination).
	AcceptStatuses []int
}

// Response is the materialized result of a Request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport wraps an http.Client with retry, auth headers and uniform
// error mapping for a single SIEM backend.
type Transport struct {
	config TransportConfig
	client *http.Client
	log    logger.Interface
}

// NewTransport builds a Transport from config. Timeout defaults to 60s.
func NewTransport(config TransportConfig) *Transport {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	var rt http.RoundTripper = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !config.VerifyTLS}, //nolint:gosec // operator opt-out for appliances with self-signed certs
	}
	if config.WrapTransport != nil {
		rt = config.WrapTransport(rt)
	}

	return &Transport{
		config: config,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: rt,
		},
		log: log,
	}
}

// Do executes the request with the configured retry policy.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	retryCfg := t.config.Retry
	if retryCfg.IsRetryable == nil {
		retryCfg = retry.DefaultConfig()
	}
	retryCfg.Logger = t.log

	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		var doErr error
		resp, doErr = t.doOnce(ctx, req)
		return doErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DoJSON executes the request and decodes a JSON response body into out.
func (t *Transport) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return DecodeJSON(t.config.Backend, resp.Body, out)
}

func (t *Transport) doOnce(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request %s %s: %w", t.config.Backend, req.Method, req.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", t.config.Backend, err)
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
	}
	for _, accepted := range req.AcceptStatuses {
		if httpResp.StatusCode == accepted {
			return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
		}
	}

	return nil, t.statusError(httpResp, body)
}

func (t *Transport) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	fullURL := strings.TrimRight(t.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSONBody != nil:
		payload, err := json.Marshal(req.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request body: %w", t.config.Backend, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.FormBody != nil:
		body = strings.NewReader(req.FormBody.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", t.config.Backend, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range t.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// statusError maps a non-success response to a StatusError, attaching the
// Retry-After hint and an actionable hint for auth failures.
func (t *Transport) statusError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if hint := authHint(resp.StatusCode); hint != "" {
		msg = hint
	}

	return &StatusError{
		Backend:    t.config.Backend,
		Code:       resp.StatusCode,
		Message:    msg,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter supports both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// DecodeJSON unmarshals body into out. A body that looks like an HTML
// page (a login portal or proxy error in the way of the API) gets a
// dedicated message instead of a cryptic unmarshal failure.
func DecodeJSON(backend string, body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return fmt.Errorf("%s: received HTML instead of JSON, check the API URL and network path", backend)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", backend, err)
	}
	return nil
}
