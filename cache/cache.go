// Package cache layers license-domain semantics on top of a storage
// adapter. Two expiry mechanisms apply on every read: the adapter TTL
// bounds staleness of the fetch, the license's own expiry bounds
// validity. Whichever is stricter wins; a license past its expires_at
// is gone even when the adapter TTL has not elapsed.
package cache

import (
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
	"github.com/AlvinCoded/universal-license-sdk-go/store"
)

const (
	licenseKeyPrefix    = "license:"
	validationKeyPrefix = "validation:"
)

// DefaultTTL bounds staleness when the caller does not configure one.
const DefaultTTL = time.Hour

// Validation is the composite cache entry for a (licenseKey, deviceID)
// validation result. Distinct from the plain license entry keyed by
// the license key alone; a successful validation writes both.
type Validation struct {
	Valid        bool               `json:"valid"`
	Reason       string             `json:"reason,omitempty"`
	License      *contracts.License `json:"license,omitempty"`
	Signature    string             `json:"signature,omitempty"`
	SignatureKid string             `json:"signatureKid,omitempty"`
	CheckedAt    time.Time          `json:"checkedAt"`
}

// LicenseCache owns exactly one storage adapter for its lifetime.
type LicenseCache struct {
	store   store.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a LicenseCache.
type Option func(*LicenseCache)

// WithTTL overrides the default cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *LicenseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger injects the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LicenseCache) { c.logger = logger }
}

// New creates a license cache over the given adapter.
func New(s store.Store, opts ...Option) *LicenseCache {
	c := &LicenseCache{
		store:   s,
		ttl:     DefaultTTL,
		logger:  slog.Default(),
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached license, or nil on a miss. Expiry is
// re-derived from the license's own timestamp at read time; a stale
// status field never overrides the clock.
func (c *LicenseCache) Get(licenseKey string) *contracts.License {
	data, ok := c.store.Get(licenseKeyPrefix + licenseKey)
	if !ok {
		c.metrics.miss()
		return nil
	}

	var license contracts.License
	if err := json.Unmarshal(data, &license); err != nil {
		c.logger.Warn("corrupt license cache entry dropped",
			slog.String("license_key", licenseKey),
			slog.String("error", err.Error()),
		)
		c.store.Remove(licenseKeyPrefix + licenseKey)
		c.metrics.miss()
		return nil
	}

	if license.Expired(time.Now()) {
		c.store.Remove(licenseKeyPrefix + licenseKey)
		c.metrics.expired()
		return nil
	}

	c.metrics.hit()
	return &license
}

// Set stores a license with the configured cache TTL, independent of
// the license's own expiry.
func (c *LicenseCache) Set(licenseKey string, license *contracts.License) {
	if license == nil {
		return
	}
	data, err := json.Marshal(license)
	if err != nil {
		c.logger.Warn("license cache write skipped",
			slog.String("license_key", licenseKey),
			slog.String("error", err.Error()),
		)
		return
	}
	c.store.Set(licenseKeyPrefix+licenseKey, data, c.ttl)
}

// IsValid reports whether the cached license is currently valid:
// status active and not past its expiry. Missing, expired, revoked,
// suspended and pending all report false.
func (c *LicenseCache) IsValid(licenseKey string) bool {
	license := c.Get(licenseKey)
	if license == nil {
		return false
	}
	return license.Status == contracts.StatusActive && !license.Expired(time.Now())
}

// DaysUntilExpiry returns the whole days left on the cached license,
// floored at zero. ok is false when no entry exists or the cached
// license carries no expiry date; a perpetual license has no
// countdown, use Get or IsValid to test its presence. Zero with true
// means "already expired but the entry is still present", which is
// distinct from a miss, so it reads the raw entry without the expiry
// deletion Get performs.
func (c *LicenseCache) DaysUntilExpiry(licenseKey string) (int, bool) {
	data, ok := c.store.Get(licenseKeyPrefix + licenseKey)
	if !ok {
		return 0, false
	}
	var license contracts.License
	if err := json.Unmarshal(data, &license); err != nil {
		return 0, false
	}
	if license.ExpiresAt.IsZero() {
		return 0, false
	}
	days := int(math.Ceil(time.Until(license.ExpiresAt).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return days, true
}

// SetValidation caches a validation result under its composite
// (licenseKey, deviceID) key. Only a successful validation upserts the
// plain license entry; failures must never populate it.
func (c *LicenseCache) SetValidation(licenseKey, deviceID string, v *Validation) {
	if v == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("validation cache write skipped",
			slog.String("license_key", licenseKey),
			slog.String("error", err.Error()),
		)
		return
	}
	c.store.Set(validationKey(licenseKey, deviceID), data, c.ttl)

	if v.Valid && v.License != nil {
		c.Set(licenseKey, v.License)
	}
}

// GetValidation returns the cached validation result for the composite
// key, re-deriving the embedded license's expiry first.
func (c *LicenseCache) GetValidation(licenseKey, deviceID string) *Validation {
	data, ok := c.store.Get(validationKey(licenseKey, deviceID))
	if !ok {
		c.metrics.miss()
		return nil
	}

	var v Validation
	if err := json.Unmarshal(data, &v); err != nil {
		c.store.Remove(validationKey(licenseKey, deviceID))
		c.metrics.miss()
		return nil
	}

	// A validation asserting validity for a license now past expiry is
	// domain-stale regardless of the adapter TTL.
	if v.Valid && v.License != nil && v.License.Expired(time.Now()) {
		c.store.Remove(validationKey(licenseKey, deviceID))
		c.metrics.expired()
		return nil
	}

	c.metrics.hit()
	return &v
}

// Remove drops the license entry. Validation entries carry the device
// in their key; use RemoveValidation or Clear for those.
func (c *LicenseCache) Remove(licenseKey string) {
	c.store.Remove(licenseKeyPrefix + licenseKey)
}

// RemoveValidation drops a single composite validation entry.
func (c *LicenseCache) RemoveValidation(licenseKey, deviceID string) {
	c.store.Remove(validationKey(licenseKey, deviceID))
}

// Clear drops every SDK cache entry, used after revocation or logout.
func (c *LicenseCache) Clear() {
	c.store.Clear()
}

// TTL returns the configured cache TTL.
func (c *LicenseCache) TTL() time.Duration {
	return c.ttl
}

func validationKey(licenseKey, deviceID string) string {
	return validationKeyPrefix + licenseKey + ":" + deviceID
}
