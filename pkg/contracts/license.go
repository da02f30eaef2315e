// Package contracts contains the wire and domain types shared by every
// layer of the SDK. These types mirror the Universal License Server
// REST API and serve as the single source of truth for all bindings.
package contracts

import (
	"time"
)

// LicenseStatus is the server-side lifecycle state of a license.
type LicenseStatus string

const (
	StatusPending   LicenseStatus = "pending"
	StatusActive    LicenseStatus = "active"
	StatusExpired   LicenseStatus = "expired"
	StatusRevoked   LicenseStatus = "revoked"
	StatusSuspended LicenseStatus = "suspended"
)

// Tier is an ordered capability level. Higher tiers satisfy lower-tier
// requirements.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

var tierRank = map[Tier]int{
	TierStandard:   1,
	TierPro:        2,
	TierEnterprise: 3,
}

// Satisfies reports whether t meets a required tier. Unknown tiers
// never satisfy anything.
func (t Tier) Satisfies(required Tier) bool {
	if required == "" {
		return true
	}
	have, ok := tierRank[t]
	if !ok {
		return false
	}
	want, ok := tierRank[required]
	if !ok {
		return false
	}
	return have >= want
}

// License is a server-issued entitlement record.
type License struct {
	Key       string          `json:"key" validate:"required,min=10"`
	Tier      Tier            `json:"tier"`
	Status    LicenseStatus   `json:"status"`
	Features  map[string]bool `json:"features,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
	IssuedAt  time.Time       `json:"issuedAt,omitempty"`
	Email     string          `json:"email,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// Expired reports whether the license is past its expiry timestamp.
// Always derived from the clock, never from the stored status field.
func (l *License) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}

// CurrentlyValid reports whether the license is active and unexpired.
func (l *License) CurrentlyValid(now time.Time) bool {
	return l.Status == StatusActive && !l.Expired(now)
}

// HasFeature reports whether a feature flag is present and enabled.
func (l *License) HasFeature(name string) bool {
	return l.Features[name]
}

// Validation failure reasons returned by the server.
const (
	ReasonInvalidKey       = "INVALID_KEY"
	ReasonRevoked          = "REVOKED"
	ReasonSuspended        = "SUSPENDED"
	ReasonExpired          = "EXPIRED"
	ReasonDeviceMismatch   = "DEVICE_MISMATCH"
	ReasonInsufficientTier = "INSUFFICIENT_TIER"
	ReasonMissingFeatures  = "MISSING_FEATURES"
)
