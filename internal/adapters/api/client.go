package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

const (
	DefaultBaseURL = "https://api.zpools.io/v1"

	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

// TokenSource supplies the bearer credential for authenticated requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         TokenSource
	RequestTimeout time.Duration
	UserAgent      string
	Logger         *zap.Logger
}

// envelope is the shape shared by every zpools.io response body.
type envelope[T any] struct {
	Message string `json:"message"`
	Detail  T      `json:"detail"`
}

type request struct {
	method        string
	path          string
	query         url.Values
	body          any
	authenticated bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint, err := buildAPIURL(c.baseURL(), req.path)
	if err != nil {
		return err
	}
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", req.path, err)
		}
		body = bytes.NewReader(payload)
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.path, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.authenticated {
		if c.Tokens == nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, domain.ErrCredentialsMissing)
		}
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolve credentials: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", req.method, req.path, domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w: %w", req.method, req.path, domain.ErrTransport, err)
	}

	c.logger().Debug("api request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Body:       data,
			RequestID:  requestID,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.path, err)
	}
	return nil
}

// Hello calls the authenticated greeting endpoint, which doubles as a
// credentials check.
func (c *Client) Hello(ctx context.Context) (string, error) {
	var resp envelope[json.RawMessage]
	if err := c.do(ctx, request{method: http.MethodGet, path: "hello", authenticated: true}, &resp); err != nil {
		return "", err
	}
	if resp.Message != "" {
		return resp.Message, nil
	}

	var detail string
	if err := json.Unmarshal(resp.Detail, &detail); err == nil {
		return detail, nil
	}
	return strings.TrimSpace(string(resp.Detail)), nil
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

// buildAPIURL resolves path below the base URL, keeping any path prefix such
// as /v1.
func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	endpoint, err := parsed.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}

func escapeID[T ~string](id T) string {
	return url.PathEscape(string(id))
}
