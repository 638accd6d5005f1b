package token

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// DefaultSessionDuration applies when the issue request does not name one.
	DefaultSessionDuration = 15 * time.Minute

	sessionKeyBytes     = 4  // 8 hex chars, short enough to type as a manual code
	validationHashBytes = 16 // display/debug correlation only
)

// IssueRequest describes the session a token should be minted for.
type IssueRequest struct {
	SessionID   string
	TeacherID   string
	CourseID    string
	Duration    time.Duration
	Fingerprint fingerprint.Fingerprint // captured on the teacher's device
	Permissions Permissions
}

// Issuer mints one encrypted session token per classroom session.
type Issuer struct {
	codec   *codec.Codec
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerNowFunc sets the clock (primarily for testing).
func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(c *codec.Codec, options ...IssuerOption) (*Issuer, error) {
	if c == nil {
		return nil, errors.New("[NewIssuer] codec is required")
	}

	issuer := &Issuer{codec: c, nowFunc: time.Now}
	for _, opt := range options {
		opt(issuer)
	}
	return issuer, nil
}

// Issue builds the payload, seals it, and wraps it in the QR wire format.
func (i *Issuer) Issue(req IssueRequest) (*IssuedToken, *Payload, error) {
	if req.SessionID == "" {
		return nil, nil, errors.New("[Issuer.Issue] session ID is required")
	}
	if req.Duration <= 0 {
		req.Duration = DefaultSessionDuration
	}

	now := i.nowFunc()
	payload := Payload{
		SessionID:   req.SessionID,
		TeacherID:   req.TeacherID,
		CourseID:    req.CourseID,
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(req.Duration).UnixMilli(),
		Fingerprint: req.Fingerprint,
		Nonce:       uuid.New().String(),
		Permissions: req.Permissions,
	}

	plaintext, err := encodePayload(payload)
	if err != nil {
		return nil, nil, err
	}

	sealed, err := i.codec.Encrypt(plaintext)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Issuer.Issue] codec.Encrypt")
	}

	sessionKey, err := randomHex(sessionKeyBytes)
	if err != nil {
		return nil, nil, err
	}
	validationHash, err := randomHex(validationHashBytes)
	if err != nil {
		return nil, nil, err
	}

	return &IssuedToken{
		SessionKey:     sessionKey,
		Token:          sealed,
		ValidationHash: validationHash,
		Timestamp:      now.UnixMilli(),
	}, &payload, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", errors.Wrap(err, "[token.randomHex] rand.Read")
	}
	return hex.EncodeToString(b), nil
}
