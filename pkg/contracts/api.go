package contracts

import "time"

// ValidateRequest is the body of POST /licenses/validate.
type ValidateRequest struct {
	LicenseKey       string   `json:"licenseKey" validate:"required,min=10"`
	DeviceID         string   `json:"deviceId" validate:"required"`
	RequiredTier     Tier     `json:"requiredTier,omitempty"`
	RequiredFeatures []string `json:"requiredFeatures,omitempty"`
}

// ValidationResponse is the result of a license validation. Domain
// failures arrive here with Valid=false and a Reason; infrastructure
// failures never reach this type.
type ValidationResponse struct {
	Valid           bool     `json:"valid"`
	License         *License `json:"license,omitempty"`
	Signature       string   `json:"signature,omitempty"`
	SignatureKid    string   `json:"signatureKid,omitempty"`
	Error           string   `json:"error,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	CurrentTier     Tier     `json:"currentTier,omitempty"`
	RequiredTier    Tier     `json:"requiredTier,omitempty"`
	MissingFeatures []string `json:"missingFeatures,omitempty"`
}

// ActivateRequest is the body of POST /licenses/activate.
type ActivateRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required,min=10"`
	Email      string `json:"email" validate:"required,email"`
	DeviceID   string `json:"deviceId,omitempty"`
}

// ActivationResponse is the result of a license activation.
type ActivationResponse struct {
	Success   bool     `json:"success"`
	License   *License `json:"license,omitempty"`
	Message   string   `json:"message,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
}

// SigningKey is one entry of the server's rotated signing keyset.
type SigningKey struct {
	Kid       string    `json:"kid"`
	PublicKey string    `json:"publicKey"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// PublicKeyResponse is the payload of GET /licenses/keys/public. The
// legacy shape carries only PublicKey; rotation-aware servers add Kid
// and the full keyset. Consumers must accept both.
type PublicKeyResponse struct {
	PublicKey string       `json:"publicKey"`
	Kid       string       `json:"kid,omitempty"`
	Keys      []SigningKey `json:"keys,omitempty"`
}

// HealthStatus is the client-side view of GET /health.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Status  string        `json:"status,omitempty"`
	Latency time.Duration `json:"latency"`
}

// ImportResult summarizes a bulk license import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ErrorEnvelope is the generic non-2xx response body.
type ErrorEnvelope struct {
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// Reason returns the human-readable failure reason, preferring the
// error field over message.
func (e ErrorEnvelope) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
