// Package transport is the single point of HTTP I/O for the SDK. It
// composes auth and app headers, classifies every failure into the
// typed error taxonomy, and delegates each call through the retry
// executor so only transient failures are reattempted. Nothing above
// this package ever sees a raw connection error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	ulserrors "github.com/AlvinCoded/universal-license-sdk-go/errors"
	"github.com/AlvinCoded/universal-license-sdk-go/internal/logging"
	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
	"github.com/AlvinCoded/universal-license-sdk-go/retry"
)

// DefaultTimeout applies when the config does not set one.
const DefaultTimeout = 30 * time.Second

// Config describes a transport instance.
type Config struct {
	// BaseURL of the license server, e.g. "https://license.example.com".
	BaseURL string

	// APIKey is the admin bearer token, sent as Authorization: Bearer.
	APIKey string

	// AppKey and AppCode are app-scoped credentials, sent as
	// X-ULS-App-Key and X-ULS-App-Code.
	AppKey  string
	AppCode string

	// Headers are caller-supplied custom headers, additive with the
	// credential headers above.
	Headers map[string]string

	// Timeout bounds each individual request attempt.
	Timeout time.Duration

	// Retry is the backoff policy. Zero value gets the defaults.
	Retry retry.Config

	// OnRetry is an optional observability hook invoked before each
	// retry, alongside (never instead of) the returned result.
	OnRetry retry.OnRetry

	// RateLimit throttles outgoing requests (requests per second,
	// zero disables). RateBurst defaults to 1 when a limit is set.
	RateLimit float64
	RateBurst int

	// Debug enables request/response logging. Off by default: request
	// bodies contain license keys and bearer tokens.
	Debug bool

	// Logger for debug and retry logging. Defaults to slog.Default().
	Logger *slog.Logger

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// Client issues HTTP requests against the license server.
type Client struct {
	baseURL    string
	apiKey     string
	appKey     string
	appCode    string
	headers    map[string]string
	httpClient *http.Client
	executor   *retry.Executor
	onRetry    retry.OnRetry
	limiter    *rate.Limiter
	debug      bool
	logger     *slog.Logger
}

// New creates a transport client.
func New(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryCfg := cfg.Retry
	if retryCfg.InitialDelay == 0 && retryCfg.BackoffMultiplier == 0 {
		maxRetries := retryCfg.MaxRetries
		retryCfg = retry.DefaultConfig()
		if maxRetries > 0 {
			retryCfg.MaxRetries = maxRetries
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		appKey:     cfg.AppKey,
		appCode:    cfg.AppCode,
		headers:    cfg.Headers,
		httpClient: httpClient,
		executor:   retry.NewExecutor(retryCfg),
		onRetry:    cfg.OnRetry,
		limiter:    limiter,
		debug:      cfg.Debug,
		logger:     logger,
	}, nil
}

// SetMaxRetries adjusts the retry budget at runtime. The rest of the
// retry policy is immutable per instance.
func (c *Client) SetMaxRetries(n int) {
	c.executor.SetMaxRetries(n)
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, "application/json", out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, payload, "application/json", out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, path, payload, "application/json", out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", out)
}

// PostForm issues a multipart/form-data POST: text fields plus one
// optional file part. The file is read fully up front so the body can
// be rebuilt on every retry attempt.
func (c *Client) PostForm(ctx context.Context, path string, fields map[string]string, fileField, filename string, file io.Reader, out any) error {
	var fileData []byte
	if file != nil {
		data, err := io.ReadAll(file)
		if err != nil {
			return ulserrors.NewLicenseError(ulserrors.CodeInvalidFormat,
				fmt.Sprintf("read upload: %v", err))
		}
		fileData = data
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write form field %q: %w", name, err)
		}
	}
	if fileData != nil {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(fileData); err != nil {
			return fmt.Errorf("write form file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType(), out)
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

// do runs one logical request through the retry executor. The body is
// a byte slice so each attempt gets a fresh reader.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)
	logger := logging.FromContext(ctx, c.logger)

	onRetry := func(err error, attempt int) {
		logger.Warn("retrying license server request",
			slog.String("method", method),
			slog.String("url", fullURL),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if c.onRetry != nil {
			c.onRetry(err, attempt)
		}
	}

	var responseBody []byte
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		data, err := c.attempt(ctx, method, fullURL, requestID, body, contentType)
		if err != nil {
			return err
		}
		responseBody = data
		return nil
	}, onRetry)
	if err != nil {
		return err
	}

	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return ulserrors.NewLicenseError(ulserrors.CodeInvalidFormat,
				fmt.Sprintf("decode response body: %v", err))
		}
	}
	return nil
}

// attempt performs a single HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, fullURL, requestID string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, ulserrors.NewLicenseError(ulserrors.CodeInvalidFormat,
			fmt.Sprintf("build request: %v", err))
	}

	c.applyHeaders(req, requestID, contentType)

	logger := logging.FromContext(ctx, c.logger)
	if c.debug {
		logger.Debug("license server request",
			slog.String("method", method),
			slog.String("url", fullURL),
			slog.Int("body_bytes", len(body)),
		)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetworkFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ulserrors.NewNetworkError(ulserrors.CodeConnectionRefused,
			"reading response body", err)
	}

	if c.debug {
		logger.Debug("license server response",
			slog.String("method", method),
			slog.String("url", fullURL),
			slog.Int("status", resp.StatusCode),
			slog.Int("body_bytes", len(data)),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, classifyStatus(resp.StatusCode, data)
}

// applyHeaders composes the three additive header sources: admin
// bearer, app credentials, and caller-supplied custom headers.
func (c *Client) applyHeaders(req *http.Request, requestID, contentType string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.appKey != "" {
		req.Header.Set("X-ULS-App-Key", c.appKey)
	}
	if c.appCode != "" {
		req.Header.Set("X-ULS-App-Code", c.appCode)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
}

// classifyStatus maps a non-2xx response onto the error taxonomy. The
// server's message is extracted from the generic error envelope.
func classifyStatus(status int, body []byte) *ulserrors.AppError {
	var envelope contracts.ErrorEnvelope
	_ = json.Unmarshal(body, &envelope)
	message := envelope.Reason()
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return ulserrors.NewValidationError(ulserrors.CodeUnauthorized, message).WithStatus(status)
	case status == http.StatusForbidden:
		return ulserrors.NewValidationError(ulserrors.CodeForbidden, message).WithStatus(status)
	case status == http.StatusNotFound:
		// Most 404s in this domain mean "license not found".
		return ulserrors.NewLicenseError(ulserrors.CodeInvalidLicense, message).WithStatus(status)
	case status == http.StatusConflict:
		return ulserrors.NewPurchaseError(ulserrors.CodeDuplicatePurchase, message).WithStatus(status)
	case status == http.StatusTooManyRequests:
		return ulserrors.NewNetworkError(ulserrors.CodeRateLimited, message, nil).WithStatus(status)
	case status >= 500:
		return ulserrors.NewNetworkError(ulserrors.CodeServerError, message, nil).WithStatus(status)
	default:
		return ulserrors.NewLicenseError(ulserrors.CodeValidationFailed, message).WithStatus(status)
	}
}

// classifyNetworkFailure wraps a no-response failure (refused, DNS,
// aborted, timed out) as a NETWORK error.
func classifyNetworkFailure(err error) *ulserrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return ulserrors.NewNetworkError(ulserrors.CodeTimeout, "request timed out", err)
	}
	return ulserrors.NewNetworkError(ulserrors.CodeConnectionRefused,
		"license server unreachable", err)
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
