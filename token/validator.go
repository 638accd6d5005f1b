package token

import (
	"time"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/internal/utils"
	"github.com/campuskit/go-attendance-engine/proximity"
	"github.com/campuskit/go-attendance-engine/ratelimit"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/pkg/errors"
)

// Validation thresholds and score adjustments. These are the protocol's
// tunable parameters, kept in one place so they stay auditable.
const (
	// Fingerprint match bands.
	fingerprintErrorBelow   = 0.3
	fingerprintWarningBelow = 0.7

	// Location drift bands, in meters.
	driftErrorAboveMeters   = 100.0
	driftWarningAboveMeters = 50.0
	driftBonusBelowMeters   = 10.0

	// MaxTokenAge is a defence-in-depth cap beyond the embedded expiry.
	MaxTokenAge = 24 * time.Hour

	// Composite score arithmetic.
	baseScore            = 100
	errorPenalty         = 25
	warningPenalty       = 10
	fingerprintBonus     = 10
	fingerprintBonusOver = 0.9
	macBonus             = 15
	driftBonus           = 5

	// MinValidScore is the floor a result must reach to be valid.
	MinValidScore = 70
)

// Context carries everything about one check-in attempt that is not inside
// the token itself. Ephemeral; one per attempt.
type Context struct {
	SessionID         string
	StudentID         string
	Submitted         fingerprint.Fingerprint
	EnrolledCourseIDs []string

	// SkipMACCheck disables the strict MAC comparison, for sessions whose
	// policy does not require it.
	SkipMACCheck bool
}

// Details exposes the intermediate findings behind a result. Pointers are nil
// when the corresponding check could not run.
type Details struct {
	FingerprintMatch *fingerprint.MatchResult `json:"fingerprintMatch,omitempty"`
	MACMatched       *bool                    `json:"macMatch,omitempty"`
	LocationDriftM   *float64                 `json:"locationDrift,omitempty"`
	RateLimit        *ratelimit.Decision      `json:"rateLimit,omitempty"`
	IntegrityOK      bool                     `json:"integrity"`
}

// Result is the structured outcome of validating one token against one
// attempt. Produced fresh per attempt and never persisted as-is.
type Result struct {
	Valid         bool          `json:"isValid"`
	Errors        []ErrorCode   `json:"errors"`
	Warnings      []WarningCode `json:"warnings"`
	SecurityScore int           `json:"securityScore"`
	Details       Details       `json:"details"`

	// Payload is the decrypted token, nil when decryption failed.
	Payload *Payload `json:"-"`
}

func (r *Result) addError(code ErrorCode) {
	r.Errors = append(r.Errors, code)
}

func (r *Result) addWarning(code WarningCode) {
	r.Warnings = append(r.Warnings, code)
}

// HasError reports whether the result carries the given error code.
func (r *Result) HasError(code ErrorCode) bool {
	for _, c := range r.Errors {
		if c == code {
			return true
		}
	}
	return false
}

// Validator decrypts session tokens and scores check-in attempts against
// them. It is a pure, short-lived computation apart from the rate limiter's
// injected store, and is safe to call from any number of request handlers.
type Validator struct {
	codec   *codec.Codec
	limiter *ratelimit.Limiter
	nowFunc func() time.Time
}

type ValidatorOption func(*Validator)

// WithValidatorNowFunc sets the clock (primarily for testing).
func WithValidatorNowFunc(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = now
	}
}

func NewValidator(c *codec.Codec, limiter *ratelimit.Limiter, options ...ValidatorOption) (*Validator, error) {
	if c == nil {
		return nil, errors.New("[NewValidator] codec is required")
	}
	if limiter == nil {
		return nil, errors.New("[NewValidator] rate limiter is required")
	}

	v := &Validator{codec: c, limiter: limiter, nowFunc: time.Now}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Validate runs the full check sequence. Expected validation failures come
// back as codes on the result, never as Go errors; only internal faults (a
// broken store, unmarshalable plaintext) surface as errors.
func (v *Validator) Validate(tok codec.EncryptedToken, ctx Context) (*Result, error) {
	res := &Result{}

	// Decryption failure is fatal and short-circuits everything.
	plaintext, err := v.codec.Decrypt(tok)
	if err != nil {
		res.addError(CodeDecryptionFailed)
		res.SecurityScore = 0
		return res, nil
	}
	payload, err := decodePayload(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "[Validator.Validate] decodePayload")
	}
	res.Payload = payload

	// Time bounds, from the embedded payload only.
	nowMs := v.nowFunc().UnixMilli()
	if nowMs > payload.ExpiresAt {
		res.addError(CodeTokenExpired)
		res.finalize()
		return res, nil
	}
	if nowMs < payload.IssuedAt {
		res.addError(CodeInvalidTimestamp)
		res.finalize()
		return res, nil
	}

	v.checkFingerprint(res, payload, ctx)
	v.checkMAC(res, payload, ctx)
	v.checkLocationDrift(res, payload, ctx)
	if err := v.checkRateLimit(res, ctx); err != nil {
		return nil, err
	}
	v.checkIntegrity(res, payload, ctx, nowMs)

	res.finalize()
	return res, nil
}

func (v *Validator) checkFingerprint(res *Result, payload *Payload, ctx Context) {
	match := fingerprint.Match(payload.Fingerprint, ctx.Submitted)
	res.Details.FingerprintMatch = &match

	switch {
	case match.Score < fingerprintErrorBelow:
		res.addError(CodeFingerprintMismatch)
	case match.Score < fingerprintWarningBelow:
		res.addWarning(CodePartialNetworkMatch)
	}
}

// checkMAC only runs when both sides reported a MAC. Absence is handled by
// the weighted matcher; an outright mismatch of two present MACs is fatal.
func (v *Validator) checkMAC(res *Result, payload *Payload, ctx Context) {
	if ctx.SkipMACCheck {
		return
	}
	original, origOK := payload.Fingerprint.MACAddress.Get()
	submitted, subOK := ctx.Submitted.MACAddress.Get()
	if !origOK || !subOK {
		return
	}

	matched := fingerprint.NormalizeMAC(original) == fingerprint.NormalizeMAC(submitted)
	res.Details.MACMatched = &matched
	if !matched {
		res.addError(CodeMACMismatch)
	}
}

func (v *Validator) checkLocationDrift(res *Result, payload *Payload, ctx Context) {
	orig, origOK := payload.Fingerprint.Geolocation.Get()
	sub, subOK := ctx.Submitted.Geolocation.Get()
	if !origOK || !subOK {
		return
	}

	drift := proximity.HaversineMeters(orig.Lat, orig.Lng, sub.Lat, sub.Lng)
	res.Details.LocationDriftM = &drift

	switch {
	case drift > driftErrorAboveMeters:
		res.addError(CodeExcessiveDrift)
	case drift > driftWarningAboveMeters:
		res.addWarning(CodeModerateDrift)
	}
}

func (v *Validator) checkRateLimit(res *Result, ctx Context) error {
	decision, err := v.limiter.Check(ctx.StudentID, ctx.SessionID)
	if err != nil {
		return errors.Wrap(err, "[Validator.checkRateLimit] limiter.Check")
	}
	res.Details.RateLimit = &decision
	if !decision.Allowed {
		res.addError(CodeRateLimitExceeded)
	}
	return nil
}

// checkIntegrity binds the token to the attempt: same session, an enrolled
// student, and a token no older than the hard age cap.
func (v *Validator) checkIntegrity(res *Result, payload *Payload, ctx Context, nowMs int64) {
	ok := true

	if payload.SessionID != ctx.SessionID {
		ok = false
	}
	if len(ctx.EnrolledCourseIDs) > 0 && !containsString(ctx.EnrolledCourseIDs, payload.CourseID) {
		ok = false
	}
	if nowMs-payload.IssuedAt > MaxTokenAge.Milliseconds() {
		ok = false
	}

	res.Details.IntegrityOK = ok
	if !ok {
		res.addError(CodeIntegrityViolation)
	}
}

// finalize computes the composite score and the validity verdict.
func (r *Result) finalize() {
	score := baseScore
	score -= errorPenalty * len(r.Errors)
	score -= warningPenalty * len(r.Warnings)

	if m := r.Details.FingerprintMatch; m != nil && m.Score > fingerprintBonusOver {
		score += fingerprintBonus
	}
	if r.Details.MACMatched != nil && *r.Details.MACMatched {
		score += macBonus
	}
	if d := r.Details.LocationDriftM; d != nil && *d < driftBonusBelowMeters {
		score += driftBonus
	}

	r.SecurityScore = utils.Clamp(score, 0, 100)
	r.Valid = len(r.Errors) == 0 && r.SecurityScore >= MinValidScore
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
