// Package signature verifies server-issued license signatures for
// offline trust decisions. Verification is RSA PKCS#1 v1.5 over a
// SHA-256 digest of the exact byte sequence the server signed; callers
// must reconstruct that payload identically: field order and presence
// matter, which is a documented contract rather than something the
// verifier can enforce.
package signature

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
)

// Result reports the outcome of a keyset verification, including which
// key id succeeded so callers can pin to it going forward.
type Result struct {
	Valid bool
	Kid   string
}

// ParsePublicKey decodes a PEM-encoded RSA public key. Both PKIX
// ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings are accepted.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key material")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return key, nil
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, want *rsa.PublicKey", parsed)
		}
		return key, nil
	}
}

// Verify checks sig (raw bytes) against data using the given key.
// A failed verification returns false, never an error.
func Verify(data, sig []byte, key *rsa.PublicKey) bool {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
}

// VerifyPEM checks a base64-encoded signature against data using
// PEM-encoded key material. Malformed key material or signature
// encoding is an error; a signature that simply does not verify is
// (false, nil).
func VerifyPEM(data []byte, sigB64, pemKey string) (bool, error) {
	key, err := ParsePublicKey(pemKey)
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	return Verify(data, sig, key), nil
}

// VerifyWithKeySet checks a signature against a rotated keyset. With a
// kid, only the matching entry is tried. Without one, every key is
// tried in listed order until one verifies, so a client that received a
// signature before observing the newest key can still verify against
// an older, still-listed key. Malformed key material propagates as an
// error; exhausting the set returns {Valid: false}.
func VerifyWithKeySet(data []byte, sigB64 string, keys []contracts.SigningKey, kid string) (Result, error) {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return Result{}, fmt.Errorf("decode signature: %w", err)
	}

	for _, entry := range keys {
		if kid != "" && entry.Kid != kid {
			continue
		}
		key, err := ParsePublicKey(entry.PublicKey)
		if err != nil {
			return Result{}, fmt.Errorf("keyset entry %q: %w", entry.Kid, err)
		}
		if Verify(data, sig, key) {
			return Result{Valid: true, Kid: entry.Kid}, nil
		}
	}
	return Result{}, nil
}

// VerifyResponse checks a validation response's embedded signature
// against the server's published key material, accepting both the
// legacy single-key and the rotation-aware keyset shapes.
func VerifyResponse(resp *contracts.ValidationResponse, keys *contracts.PublicKeyResponse) (Result, error) {
	if resp == nil || resp.Signature == "" || resp.License == nil {
		return Result{}, nil
	}

	payload, err := LicensePayload(resp.License)
	if err != nil {
		return Result{}, err
	}

	if len(keys.Keys) > 0 {
		return VerifyWithKeySet(payload, resp.Signature, keys.Keys, resp.SignatureKid)
	}

	ok, err := VerifyPEM(payload, resp.Signature, keys.PublicKey)
	if err != nil {
		return Result{}, err
	}
	return Result{Valid: ok, Kid: keys.Kid}, nil
}

// signedLicense fixes the field set and order of the byte sequence the
// server signs. Changing this struct breaks verification of every
// previously issued signature.
type signedLicense struct {
	Key       string `json:"key"`
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expiresAt"`
}

// LicensePayload reconstructs the canonical byte sequence the server
// signed for a license.
func LicensePayload(license *contracts.License) ([]byte, error) {
	if license == nil {
		return nil, fmt.Errorf("no license to build payload from")
	}
	return json.Marshal(signedLicense{
		Key:       license.Key,
		Tier:      string(license.Tier),
		Status:    string(license.Status),
		ExpiresAt: license.ExpiresAt.UnixMilli(),
	})
}
