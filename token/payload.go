package token

import (
	"encoding/json"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/pkg/errors"
)

// Permissions records what the issuing teacher allowed for the session.
type Permissions struct {
	AllowedMethods   []string `json:"allowedMethods"`
	MaxAttempts      int      `json:"maxAttempts"`
	RequireProximity bool     `json:"requireProximity"`
	RequireBiometric bool     `json:"requireBiometric"`
}

// Payload is the plaintext session token, created once per session and
// immutable afterwards. ExpiresAt is fixed at issuance as IssuedAt plus the
// session duration; validators never trust a client-supplied expiry.
type Payload struct {
	SessionID   string                  `json:"sessionId"`
	TeacherID   string                  `json:"teacherId"`
	CourseID    string                  `json:"courseId"`
	IssuedAt    int64                   `json:"issuedAtEpochMs"`
	ExpiresAt   int64                   `json:"expiresAtEpochMs"`
	Fingerprint fingerprint.Fingerprint `json:"embeddedFingerprint"`
	Nonce       string                  `json:"randomNonce"`
	Permissions Permissions             `json:"permissions"`
}

// IssuedToken is the wire shape a QR code or manual code distributes. The
// validation hash is a non-secret correlation value for display and debugging;
// it carries no cryptographic guarantee.
type IssuedToken struct {
	SessionKey     string               `json:"sessionKey"`
	Token          codec.EncryptedToken `json:"token"`
	ValidationHash string               `json:"validationHash"`
	Timestamp      int64                `json:"timestamp"`
}

func encodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "[token.encodePayload] json.Marshal")
	}
	return data, nil
}

func decodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "[token.decodePayload] json.Unmarshal")
	}
	return &p, nil
}
