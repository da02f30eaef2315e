package ulsdk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AlvinCoded/universal-license-sdk-go/cache"
	ulserrors "github.com/AlvinCoded/universal-license-sdk-go/errors"
	"github.com/AlvinCoded/universal-license-sdk-go/fingerprint"
	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
	"github.com/AlvinCoded/universal-license-sdk-go/retry"
	"github.com/AlvinCoded/universal-license-sdk-go/signature"
	"github.com/AlvinCoded/universal-license-sdk-go/store"
	"github.com/AlvinCoded/universal-license-sdk-go/transport"
)

// Client talks to the Universal License Server. Each instance owns its
// transport, cache and storage adapter exclusively; instances are safe
// for concurrent use.
type Client struct {
	config      Config
	transport   *transport.Client
	cache       *cache.LicenseCache
	fingerprint *fingerprint.Manager
	session     *store.SessionStore
	flight      singleflight.Group
	logger      *slog.Logger
	metrics     *clientMetrics
}

// New creates a client. The zero values of optional Config fields get
// the documented defaults.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	headers["User-Agent"] = "universal-license-sdk-go/" + Version
	for name, value := range cfg.Headers {
		headers[name] = value
	}

	retryCfg := transportRetryConfig(cfg)
	tp, err := transport.New(transport.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		AppKey:    cfg.AppKey,
		AppCode:   cfg.AppCode,
		Headers:   headers,
		Timeout:   cfg.Timeout,
		Retry:     retryCfg,
		OnRetry:   cfg.OnRetry,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Debug:     cfg.Debug,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:      cfg,
		transport:   tp,
		fingerprint: fingerprint.NewManager(),
		logger:      cfg.Logger,
		metrics:     newClientMetrics(),
	}

	if !cfg.DisableCache {
		s, session, err := buildStore(cfg)
		if err != nil {
			return nil, err
		}
		c.session = session
		c.cache = cache.New(s,
			cache.WithTTL(cfg.CacheTTL),
			cache.WithLogger(cfg.Logger),
		)
	}

	return c, nil
}

func transportRetryConfig(cfg Config) retry.Config {
	if cfg.RetryPolicy != nil {
		return *cfg.RetryPolicy
	}
	out := retry.DefaultConfig()
	out.MaxRetries = cfg.Retries
	return out
}

func buildStore(cfg Config) (store.Store, *store.SessionStore, error) {
	if cfg.Store != nil {
		return cfg.Store, nil, nil
	}
	switch cfg.CacheBackend {
	case BackendFile:
		opts := []store.FileOption{store.WithFilePrefix(cfg.StorePrefix)}
		if cfg.StorePassphrase != "" {
			opts = append(opts, store.WithPassphrase(cfg.StorePassphrase))
		}
		fs, err := store.NewFileStore(cfg.StorePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case BackendSession:
		opts := []store.FileOption{store.WithFilePrefix(cfg.StorePrefix)}
		if cfg.StorePassphrase != "" {
			opts = append(opts, store.WithPassphrase(cfg.StorePassphrase))
		}
		ss, err := store.NewSessionStore("", opts...)
		if err != nil {
			return nil, nil, err
		}
		return ss, ss, nil
	default:
		return store.NewMemoryStore(store.WithMemoryPrefix(cfg.StorePrefix)), nil, nil
	}
}

// ValidateOption adjusts a single validation call.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	deviceID         string
	requiredTier     contracts.Tier
	requiredFeatures []string
	bypassCache      bool
}

// WithDeviceID overrides the device fingerprint for this call.
func WithDeviceID(deviceID string) ValidateOption {
	return func(o *validateOptions) { o.deviceID = deviceID }
}

// WithRequiredTier asks the server to enforce a minimum tier.
func WithRequiredTier(tier contracts.Tier) ValidateOption {
	return func(o *validateOptions) { o.requiredTier = tier }
}

// WithRequiredFeatures asks the server to enforce feature flags.
func WithRequiredFeatures(features ...string) ValidateOption {
	return func(o *validateOptions) { o.requiredFeatures = features }
}

// WithoutCache forces a network validation for this call.
func WithoutCache() ValidateOption {
	return func(o *validateOptions) { o.bypassCache = true }
}

// ValidateLicense validates a license key against the server, serving
// from cache when a fresh result exists. Domain failures come back as
// a ValidationResponse with Valid=false and a Reason; infrastructure
// failures are returned as typed errors. Concurrent validations of the
// same (key, device) pair share a single network request.
func (c *Client) ValidateLicense(ctx context.Context, licenseKey string, opts ...ValidateOption) (*contracts.ValidationResponse, error) {
	var options validateOptions
	for _, opt := range opts {
		opt(&options)
	}
	deviceID := options.deviceID
	if deviceID == "" {
		deviceID = c.DeviceID()
	}

	if c.cache != nil && !options.bypassCache {
		if cached := c.cache.GetValidation(licenseKey, deviceID); cached != nil {
			c.metrics.validationServedFromCache()
			return validationFromCache(cached), nil
		}
	}

	flightKey := licenseKey + "|" + deviceID
	result, err, _ := c.flight.Do(flightKey, func() (any, error) {
		req := contracts.ValidateRequest{
			LicenseKey:       licenseKey,
			DeviceID:         deviceID,
			RequiredTier:     options.requiredTier,
			RequiredFeatures: options.requiredFeatures,
		}
		var resp contracts.ValidationResponse
		if err := c.transport.Post(ctx, "/licenses/validate", req, &resp); err != nil {
			c.metrics.validationFailed()
			return nil, err
		}
		c.metrics.validationCompleted(resp.Valid)

		if c.cache != nil {
			c.cache.SetValidation(licenseKey, deviceID, &cache.Validation{
				Valid:        resp.Valid,
				Reason:       resp.Reason,
				License:      resp.License,
				Signature:    resp.Signature,
				SignatureKid: resp.SignatureKid,
				CheckedAt:    time.Now(),
			})
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*contracts.ValidationResponse), nil
}

func validationFromCache(v *cache.Validation) *contracts.ValidationResponse {
	return &contracts.ValidationResponse{
		Valid:        v.Valid,
		Reason:       v.Reason,
		License:      v.License,
		Signature:    v.Signature,
		SignatureKid: v.SignatureKid,
	}
}

// GetLicense fetches a license record directly. Requires admin or app
// credentials. A successful fetch refreshes the license cache entry;
// this is the only writer besides the validation path.
func (c *Client) GetLicense(ctx context.Context, licenseKey string) (*contracts.License, error) {
	var license contracts.License
	if err := c.transport.Get(ctx, "/licenses/"+licenseKey, &license); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(licenseKey, &license)
	}
	return &license, nil
}

// ActivateLicense activates a license for this device.
func (c *Client) ActivateLicense(ctx context.Context, licenseKey, email string) (*contracts.ActivationResponse, error) {
	key, err := NormalizeKey(licenseKey)
	if err != nil {
		return nil, ulserrors.NewLicenseError(ulserrors.CodeInvalidFormat, err.Error())
	}

	req := contracts.ActivateRequest{
		LicenseKey: key,
		Email:      email,
		DeviceID:   c.DeviceID(),
	}
	var resp contracts.ActivationResponse
	if err := c.transport.Post(ctx, "/licenses/activate", req, &resp); err != nil {
		return nil, err
	}
	if resp.Success && resp.License != nil && c.cache != nil {
		c.cache.Set(key, resp.License)
	}
	return &resp, nil
}

// TestConnection checks server reachability via GET /health and
// reports the measured round-trip latency. Transient failures are
// retried under the configured budget before the check is reported
// unhealthy.
func (c *Client) TestConnection(ctx context.Context) (*contracts.HealthStatus, error) {
	start := time.Now()
	var out struct {
		Status string `json:"status"`
	}
	err := c.transport.Get(ctx, "/health", &out)
	status := &contracts.HealthStatus{
		Healthy: err == nil,
		Status:  out.Status,
		Latency: time.Since(start),
	}
	if err != nil {
		return status, err
	}
	return status, nil
}

// GetPublicKeys fetches the server's signing key material. Both the
// legacy single-key and the rotation-aware keyset shapes are returned
// as-is; freshness matters for rotation, so the result is not cached.
// Refetch periodically.
func (c *Client) GetPublicKeys(ctx context.Context) (*contracts.PublicKeyResponse, error) {
	var resp contracts.PublicKeyResponse
	if err := c.transport.Get(ctx, "/licenses/keys/public", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOffline checks a validation response's signature against
// previously fetched key material, enabling trust decisions with no
// live connection.
func (c *Client) VerifyOffline(resp *contracts.ValidationResponse, keys *contracts.PublicKeyResponse) (signature.Result, error) {
	return signature.VerifyResponse(resp, keys)
}

// IsLicenseValid answers from the cache alone: active status and
// unexpired. False for missing, expired or any non-active status. No
// network round trip.
func (c *Client) IsLicenseValid(licenseKey string) bool {
	if c.cache == nil {
		return false
	}
	return c.cache.IsValid(licenseKey)
}

// DaysUntilExpiry answers from the cache alone; ok is false when no
// entry exists or the cached license has no expiry date.
func (c *Client) DaysUntilExpiry(licenseKey string) (days int, ok bool) {
	if c.cache == nil {
		return 0, false
	}
	return c.cache.DaysUntilExpiry(licenseKey)
}

// ImportLicenses uploads a license file (CSV or JSON) for bulk import.
// Requires admin credentials.
func (c *Client) ImportLicenses(ctx context.Context, filename string, r io.Reader) (*contracts.ImportResult, error) {
	var resp contracts.ImportResult
	err := c.transport.PostForm(ctx, "/licenses/import", nil, "file", filename, r, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetRetries adjusts the retry budget at runtime. The rest of the
// retry policy is fixed for the client's lifetime.
func (c *Client) SetRetries(n int) {
	c.transport.SetMaxRetries(n)
}

// RemoveCachedLicense drops a single license from the cache, along
// with this device's validation entry for it. Used after a revocation
// notice.
func (c *Client) RemoveCachedLicense(licenseKey string) {
	if c.cache != nil {
		c.cache.Remove(licenseKey)
		c.cache.RemoveValidation(licenseKey, c.DeviceID())
	}
}

// ClearCache drops every SDK cache entry.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// DeviceID returns the configured device identifier, or the derived
// device fingerprint.
func (c *Client) DeviceID() string {
	if c.config.DeviceID != "" {
		return c.config.DeviceID
	}
	return c.fingerprint.Fingerprint()
}

// Close releases session-scoped resources. Safe to call on any client.
func (c *Client) Close() error {
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			return fmt.Errorf("close session store: %w", err)
		}
	}
	return nil
}
