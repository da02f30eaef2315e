package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
	"github.com/AlvinCoded/universal-license-sdk-go/store"
)

func newTestCache(opts ...Option) *LicenseCache {
	return New(store.NewMemoryStore(), opts...)
}

func activeLicense(key string, expiresIn time.Duration) *contracts.License {
	return &contracts.License{
		Key:       key,
		Tier:      contracts.TierPro,
		Status:    contracts.StatusActive,
		Features:  map[string]bool{"export": true},
		ExpiresAt: time.Now().Add(expiresIn),
		IssuedAt:  time.Now().Add(-24 * time.Hour),
	}
}

func TestLicenseCache_RoundTrip(t *testing.T) {
	c := newTestCache()
	license := activeLicense("ABC-ORG-2025-1111-2222-3333", 30*24*time.Hour)

	c.Set(license.Key, license)
	got := c.Get(license.Key)

	require.NotNil(t, got)
	assert.Equal(t, license.Key, got.Key)
	assert.Equal(t, contracts.TierPro, got.Tier)
	assert.Equal(t, contracts.StatusActive, got.Status)
	assert.True(t, got.HasFeature("export"))
	assert.WithinDuration(t, license.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestLicenseCache_MissReturnsNil(t *testing.T) {
	c := newTestCache()
	assert.Nil(t, c.Get("never-stored"))
}

func TestLicenseCache_DomainExpiryWinsOverTTL(t *testing.T) {
	// Adapter TTL of an hour, but the license itself expired yesterday:
	// the entry must be gone on the very next read.
	c := newTestCache(WithTTL(time.Hour))
	license := activeLicense("EXPIRED-KEY-0001", -24*time.Hour)

	c.Set(license.Key, license)
	assert.Nil(t, c.Get(license.Key), "domain expiry is re-derived at read time")
	assert.Nil(t, c.Get(license.Key), "entry was deleted, not just hidden")
}

func TestLicenseCache_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		license *contracts.License
		valid   bool
	}{
		{"active and future expiry", activeLicense("K-ACTIVE-000001", time.Hour), true},
		{"revoked with future expiry", func() *contracts.License {
			l := activeLicense("K-REVOKED-00001", time.Hour)
			l.Status = contracts.StatusRevoked
			return l
		}(), false},
		{"suspended", func() *contracts.License {
			l := activeLicense("K-SUSPEND-00001", time.Hour)
			l.Status = contracts.StatusSuspended
			return l
		}(), false},
		{"pending", func() *contracts.License {
			l := activeLicense("K-PENDING-00001", time.Hour)
			l.Status = contracts.StatusPending
			return l
		}(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache()
			c.Set(tt.license.Key, tt.license)
			assert.Equal(t, tt.valid, c.IsValid(tt.license.Key))
		})
	}

	t.Run("missing key", func(t *testing.T) {
		c := newTestCache()
		assert.False(t, c.IsValid("absent"))
	})
}

func TestLicenseCache_DaysUntilExpiry(t *testing.T) {
	t.Run("future expiry rounds up", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-DAYS-00000001", 10*24*time.Hour+time.Minute)
		c.Set(license.Key, license)

		days, ok := c.DaysUntilExpiry(license.Key)
		require.True(t, ok)
		assert.Equal(t, 11, days, "partial days round up")
	})

	t.Run("expires within the day", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-TODAY-0000001", time.Hour)
		c.Set(license.Key, license)

		days, ok := c.DaysUntilExpiry(license.Key)
		require.True(t, ok)
		assert.Equal(t, 1, days)
	})

	t.Run("already expired but still present returns zero", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-PAST-00000001", -48*time.Hour)
		c.Set(license.Key, license)

		days, ok := c.DaysUntilExpiry(license.Key)
		require.True(t, ok, "entry is still present, so not a miss")
		assert.Zero(t, days, "floored at zero, never negative")
	})

	t.Run("absent key is a miss, not zero", func(t *testing.T) {
		c := newTestCache()
		days, ok := c.DaysUntilExpiry("absent")
		assert.False(t, ok)
		assert.Zero(t, days)
	})

	t.Run("perpetual license has no countdown", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-FOREVER-00001", time.Hour)
		license.ExpiresAt = time.Time{}
		c.Set(license.Key, license)

		days, ok := c.DaysUntilExpiry(license.Key)
		assert.False(t, ok, "no expiry date means no countdown")
		assert.Zero(t, days)
		assert.True(t, c.IsValid(license.Key), "the entry itself is present and valid")
	})
}

func TestLicenseCache_SetValidation(t *testing.T) {
	t.Run("successful validation writes both entries", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-BOTH-00000001", time.Hour)

		c.SetValidation(license.Key, "device-1", &Validation{
			Valid:        true,
			License:      license,
			Signature:    "c2ln",
			SignatureKid: "2025-01",
			CheckedAt:    time.Now(),
		})

		v := c.GetValidation(license.Key, "device-1")
		require.NotNil(t, v)
		assert.True(t, v.Valid)
		assert.Equal(t, "2025-01", v.SignatureKid)

		assert.NotNil(t, c.Get(license.Key), "license entry upserted from validation path")
	})

	t.Run("failed validation never populates license entry", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("ABC-ORG-2025-1111-2222-3333", -time.Hour)

		c.SetValidation(license.Key, "device-1", &Validation{
			Valid:     false,
			Reason:    contracts.ReasonExpired,
			License:   license,
			CheckedAt: time.Now(),
		})

		assert.Nil(t, c.Get(license.Key), "only successful validations write through")

		v := c.GetValidation(license.Key, "device-1")
		require.NotNil(t, v, "the failure itself is cached")
		assert.False(t, v.Valid)
		assert.Equal(t, contracts.ReasonExpired, v.Reason)
	})

	t.Run("composite key separates devices", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-DEV-000000001", time.Hour)

		c.SetValidation(license.Key, "device-a", &Validation{Valid: true, License: license})
		assert.NotNil(t, c.GetValidation(license.Key, "device-a"))
		assert.Nil(t, c.GetValidation(license.Key, "device-b"))
	})

	t.Run("valid result with expired license is dropped on read", func(t *testing.T) {
		c := newTestCache()
		license := activeLicense("K-STALE-0000001", 20*time.Millisecond)

		c.SetValidation(license.Key, "device-1", &Validation{Valid: true, License: license})
		time.Sleep(40 * time.Millisecond)

		assert.Nil(t, c.GetValidation(license.Key, "device-1"))
	})
}

func TestLicenseCache_RemoveAndClear(t *testing.T) {
	c := newTestCache()
	license := activeLicense("K-RM-0000000001", time.Hour)

	c.Set(license.Key, license)
	c.SetValidation(license.Key, "device-1", &Validation{Valid: true, License: license})

	c.Remove(license.Key)
	assert.Nil(t, c.Get(license.Key))
	assert.NotNil(t, c.GetValidation(license.Key, "device-1"), "Remove only drops the license entry")

	c.RemoveValidation(license.Key, "device-1")
	assert.Nil(t, c.GetValidation(license.Key, "device-1"))

	c.Set(license.Key, license)
	c.Clear()
	assert.Nil(t, c.Get(license.Key))
}

func TestLicenseCache_AdapterTTLExpiry(t *testing.T) {
	c := newTestCache(WithTTL(15 * time.Millisecond))
	license := activeLicense("K-TTL-000000001", time.Hour)

	c.Set(license.Key, license)
	require.NotNil(t, c.Get(license.Key))

	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, c.Get(license.Key), "adapter TTL bounds staleness even for valid licenses")
}

func TestLicenseCache_CorruptEntryDropped(t *testing.T) {
	s := store.NewMemoryStore()
	c := New(s)

	s.Set("license:BAD", []byte(`{not json`), time.Hour)
	assert.Nil(t, c.Get("BAD"))
	assert.False(t, s.Has("license:BAD"), "corrupt entries are removed")
}
