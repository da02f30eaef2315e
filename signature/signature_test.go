package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
)

type signer struct {
	priv *rsa.PrivateKey
	pem  string
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	return &signer{priv: priv, pem: string(block)}
}

func (s *signer) sign(t *testing.T, data []byte) string {
	t.Helper()
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func TestVerifyPEM(t *testing.T) {
	s := newSigner(t)
	payload := []byte(`{"key":"ABC-1234","tier":"pro"}`)
	sig := s.sign(t, payload)

	t.Run("valid signature", func(t *testing.T) {
		ok, err := VerifyPEM(payload, sig, s.pem)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("tampered payload fails without error", func(t *testing.T) {
		ok, err := VerifyPEM([]byte(`{"key":"ABC-1234","tier":"enterprise"}`), sig, s.pem)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong key fails without error", func(t *testing.T) {
		other := newSigner(t)
		ok, err := VerifyPEM(payload, sig, other.pem)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed key material propagates error", func(t *testing.T) {
		_, err := VerifyPEM(payload, sig, "not a pem block")
		assert.Error(t, err)
	})

	t.Run("malformed signature encoding propagates error", func(t *testing.T) {
		_, err := VerifyPEM(payload, "%%%not-base64%%%", s.pem)
		assert.Error(t, err)
	})
}

func TestParsePublicKey_PKCS1(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PublicKey(&priv.PublicKey)
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: der})

	key, err := ParsePublicKey(string(block))
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey.N, key.N)
}

func TestVerifyWithKeySet(t *testing.T) {
	keyA := newSigner(t)
	keyB := newSigner(t)

	payload := []byte(`{"key":"KS-0001","tier":"standard"}`)
	sigByA := keyA.sign(t, payload)

	keysetAB := []contracts.SigningKey{
		{Kid: "2024-01", PublicKey: keyA.pem, Status: "retired"},
		{Kid: "2025-01", PublicKey: keyB.pem, Status: "active"},
	}

	t.Run("brute force finds older key when kid omitted", func(t *testing.T) {
		result, err := VerifyWithKeySet(payload, sigByA, keysetAB, "")
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, "2024-01", result.Kid, "reports which kid verified for pinning")
	})

	t.Run("fails when signing key not in set", func(t *testing.T) {
		result, err := VerifyWithKeySet(payload, sigByA, keysetAB[1:], "")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Empty(t, result.Kid)
	})

	t.Run("kid pins to single entry", func(t *testing.T) {
		result, err := VerifyWithKeySet(payload, sigByA, keysetAB, "2024-01")
		require.NoError(t, err)
		assert.True(t, result.Valid)

		// Pinned to the wrong key: no fallback to the others.
		result, err = VerifyWithKeySet(payload, sigByA, keysetAB, "2025-01")
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("unknown kid matches nothing", func(t *testing.T) {
		result, err := VerifyWithKeySet(payload, sigByA, keysetAB, "2099-12")
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("malformed keyset entry propagates error", func(t *testing.T) {
		broken := []contracts.SigningKey{{Kid: "bad", PublicKey: "garbage"}}
		_, err := VerifyWithKeySet(payload, sigByA, broken, "")
		assert.Error(t, err)
	})
}

func TestLicensePayload_Canonical(t *testing.T) {
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	license := &contracts.License{
		Key:       "ABC-ORG-2025-1111-2222-3333",
		Tier:      contracts.TierEnterprise,
		Status:    contracts.StatusActive,
		ExpiresAt: expires,
		Email:     "ignored@example.com",
		Features:  map[string]bool{"ignored": true},
	}

	payload, err := LicensePayload(license)
	require.NoError(t, err)

	// Fixed field order and presence; extraneous license fields are
	// not part of the signed contract.
	assert.JSONEq(t,
		`{"key":"ABC-ORG-2025-1111-2222-3333","tier":"enterprise","status":"active","expiresAt":1780272000000}`,
		string(payload))

	_, err = LicensePayload(nil)
	assert.Error(t, err)
}

func TestVerifyResponse(t *testing.T) {
	s := newSigner(t)
	license := &contracts.License{
		Key:       "RESP-0000000001",
		Tier:      contracts.TierPro,
		Status:    contracts.StatusActive,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour).Truncate(time.Millisecond),
	}
	payload, err := LicensePayload(license)
	require.NoError(t, err)
	sig := s.sign(t, payload)

	t.Run("legacy single key shape", func(t *testing.T) {
		result, err := VerifyResponse(
			&contracts.ValidationResponse{Valid: true, License: license, Signature: sig},
			&contracts.PublicKeyResponse{PublicKey: s.pem},
		)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("rotation-aware keyset shape", func(t *testing.T) {
		result, err := VerifyResponse(
			&contracts.ValidationResponse{Valid: true, License: license, Signature: sig, SignatureKid: "2025-01"},
			&contracts.PublicKeyResponse{
				PublicKey: s.pem,
				Kid:       "2025-01",
				Keys:      []contracts.SigningKey{{Kid: "2025-01", PublicKey: s.pem}},
			},
		)
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, "2025-01", result.Kid)
	})

	t.Run("unsigned response is not valid", func(t *testing.T) {
		result, err := VerifyResponse(
			&contracts.ValidationResponse{Valid: true, License: license},
			&contracts.PublicKeyResponse{PublicKey: s.pem},
		)
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
}
