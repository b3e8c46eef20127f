package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ume-client/config"
	"ume-client/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	maxErrorBody = 1 << 20
)

// TokenSource provides the stored access token for bearer endpoints.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool, error)
}

var (
	newTransport = func(base http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(base)
	}
	newRequestID = uuid.NewString
	tokenExpiry  = utils.TokenExpiry
)

// Client talks to the UME backend REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	log       *zap.Logger
	now       func() time.Time
	listeners listeners
}

func New(cfg config.APIConfig, tokens TokenSource, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", cfg.BaseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(http.DefaultTransport),
		},
		tokens: tokens,
		log:    log.Named("client"),
		now:    time.Now,
	}, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	bearer      bool
}

func jsonBody(v interface{}) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(raw), nil
}

func (c *Client) bearerToken(ctx context.Context, path string) (string, error) {
	if c.tokens == nil {
		return "", ErrNotAuthenticated
	}
	token, ok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	if !ok {
		return "", ErrNotAuthenticated
	}
	if expiresAt, ok := tokenExpiry(token); ok && !c.now().Before(expiresAt) {
		c.log.Info("access token expired", zap.String("path", path), zap.Time("expires_at", expiresAt))
		c.emit(SessionEvent{Reason: ReasonExpired, Path: path})
		return "", ErrSessionExpired
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var token string
	if req.bearer {
		var err error
		if token, err = c.bearerToken(ctx, req.path); err != nil {
			closeBody(req.body)
			return err
		}
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: req.path, RawQuery: req.query.Encode()})
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), req.body)
	if err != nil {
		closeBody(req.body)
		return fmt.Errorf("build request: %w", err)
	}

	requestID := newRequestID()
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeAPIError(resp.StatusCode, body)
		if req.bearer && resp.StatusCode == http.StatusUnauthorized {
			c.log.Info("session rejected by backend", zap.String("path", req.path))
			c.emit(SessionEvent{Reason: ReasonUnauthorized, Path: req.path})
			return fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
		}
		c.log.Warn("api error",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
			zap.Int("field_errors", len(apiErr.Fields)),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", req.path, err)
	}
	return nil
}

// closeBody releases a request body the transport never saw.
func closeBody(body io.Reader) {
	if closer, ok := body.(io.Closer); ok {
		_ = closer.Close()
	}
}
