// Package attendance composes the proximity, spoofing and token validation
// signals into a single accept/reject verdict per check-in attempt.
package attendance

import (
	"time"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/internal/utils"
	"github.com/campuskit/go-attendance-engine/proximity"
	"github.com/campuskit/go-attendance-engine/spoofing"
	"github.com/campuskit/go-attendance-engine/token"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/pkg/errors"
)

// Decision scoring parameters. Behavioural contract values, kept together.
const (
	decisionBaseScore       = 100
	proximityFailurePenalty = 30

	// tokenScoreHeadroom caps the overall score at the token's security
	// score plus this margin: the token result dominates when present.
	tokenScoreHeadroom = 20

	riskLowMin    = 80
	riskMediumMin = 60
	riskHighMin   = 40
)

// RiskLevel buckets an overall score for audit display.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Audit flag names collected on a decision.
const (
	FlagSpoofingDetected   = "spoofing_detected"
	FlagMACMismatch        = "mac_mismatch"
	FlagLocationAnomaly    = "location_anomaly"
	FlagRateLimitViolation = "rate_limit_violation"
)

// SecurityMetrics is the summarised subset of a decision that callers are
// expected to persist alongside an attendance record.
type SecurityMetrics struct {
	OverallScore int       `json:"overallScore"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	Flags        []string  `json:"flags,omitempty"`
}

// Reasons names the category of each rejection without exposing the scoring
// weights behind it, so a rejected caller cannot calibrate spoofed inputs.
type Reasons struct {
	Proximity string `json:"proximity,omitempty"`
	Security  string `json:"security,omitempty"`
	Spoofing  string `json:"spoofing,omitempty"`
}

// Decision is the engine's verdict for one attempt.
type Decision struct {
	Accepted      bool             `json:"accepted"`
	AlreadyMarked bool             `json:"alreadyMarked,omitempty"`
	Proximity     proximity.Result `json:"proximity"`
	Spoofing      spoofing.Result  `json:"spoofing"`
	Token         *token.Result    `json:"token,omitempty"`
	Metrics       SecurityMetrics  `json:"securityMetrics"`
	Reasons       Reasons          `json:"reasons"`
}

// CheckInRequest is one attempt as received from the API collaborator. The
// student identity comes from the caller's authentication, never the body.
type CheckInRequest struct {
	SessionID         string
	StudentID         string
	Method            string
	Network           fingerprint.Snapshot
	Token             *codec.EncryptedToken
	EnrolledCourseIDs []string
}

// Repos holds the engine's storage boundaries.
type Repos struct {
	Sessions SessionRepo
	Records  RecordRepo
}

// Engine orchestrates the validators. Stateless apart from the injected
// repositories; safe for concurrent use.
type Engine struct {
	repos     Repos
	validator *token.Validator
	detector  *spoofing.Detector
	nowFunc   func() time.Time
}

type EngineOption func(*Engine)

// WithEngineNowFunc sets the clock (primarily for testing).
func WithEngineNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

// WithDetector replaces the default spoofing detector, e.g. to register
// additional heuristics.
func WithDetector(d *spoofing.Detector) EngineOption {
	return func(e *Engine) {
		e.detector = d
	}
}

func NewEngine(repos Repos, validator *token.Validator, options ...EngineOption) (*Engine, error) {
	if repos.Sessions == nil {
		return nil, errors.New("[NewEngine] Sessions repo is required")
	}
	if repos.Records == nil {
		return nil, errors.New("[NewEngine] Records repo is required")
	}
	if validator == nil {
		return nil, errors.New("[NewEngine] token validator is required")
	}

	e := &Engine{
		repos:     repos,
		validator: validator,
		detector:  spoofing.NewDetector(),
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// CheckIn runs the full attempt flow: load the session, validate, decide, and
// persist the mark when accepted. A concurrent duplicate mark comes back as
// AlreadyMarked on an otherwise accepted decision.
func (e *Engine) CheckIn(req CheckInRequest) (*Decision, error) {
	session, err := e.repos.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, errors.Wrap(ErrSessionNotFound, "[Engine.CheckIn] Sessions.Get")
	}

	submitted := fingerprint.Build(req.Network)

	var tokenResult *token.Result
	if req.Token != nil {
		tokenResult, err = e.validator.Validate(*req.Token, token.Context{
			SessionID:         req.SessionID,
			StudentID:         req.StudentID,
			Submitted:         submitted,
			EnrolledCourseIDs: req.EnrolledCourseIDs,
			SkipMACCheck:      session.Policy.SkipMACValidation,
		})
		if err != nil {
			return nil, errors.Wrap(err, "[Engine.CheckIn] validator.Validate")
		}
	}

	decision := e.Decide(session, submitted, tokenResult)
	if !decision.Accepted {
		return decision, nil
	}

	record := &Record{
		StudentID:     req.StudentID,
		SessionID:     session.ID,
		CourseID:      session.CourseID,
		Method:        req.Method,
		MarkedAt:      e.nowFunc(),
		SecurityScore: decision.Metrics.OverallScore,
		RiskLevel:     decision.Metrics.RiskLevel,
		Flags:         decision.Metrics.Flags,
	}
	if err := e.repos.Records.Create(record); err != nil {
		if errors.Is(err, ErrAlreadyMarked) {
			decision.AlreadyMarked = true
			return decision, nil
		}
		return nil, errors.Wrap(err, "[Engine.CheckIn] Records.Create")
	}

	return decision, nil
}

// Decide merges the independent signals into one verdict. Proximity and
// spoofing always run; tokenResult is nil for check-in methods that carry no
// token, in which case acceptance rests on the other factors alone.
func (e *Engine) Decide(session *SessionRecord, submitted fingerprint.Fingerprint, tokenResult *token.Result) *Decision {
	prox := proximity.Validate(session.Network, submitted, proximity.Options{
		GeofenceRadiusMeters: session.Policy.GeofenceRadiusMeters,
		RequireGeolocation:   session.Policy.RequireGeolocation,
		PrimaryThreshold:     session.Policy.PrimaryFactorThreshold,
	})
	spoof := e.detector.Detect(session.Network, submitted)

	decision := &Decision{
		Proximity: prox,
		Spoofing:  spoof,
		Token:     tokenResult,
	}

	proximityOK := !session.Policy.RequireProximity || prox.Overall
	sameIPOK := !session.Policy.RequireSameIP || submitted.IPAddress == session.Policy.ExpectedPublicIP
	tokenOK := tokenResult == nil || tokenResult.Valid

	decision.Accepted = proximityOK && !spoof.Suspicious && sameIPOK && tokenOK
	decision.Metrics = e.score(session, prox, spoof, tokenResult, proximityOK)

	if !proximityOK || !sameIPOK {
		decision.Reasons.Proximity = "proximity requirements not met"
	}
	if spoof.Suspicious {
		decision.Reasons.Spoofing = "submission flagged as suspicious"
	}
	if !tokenOK {
		decision.Reasons.Security = "session token validation failed"
	}

	return decision
}

func (e *Engine) score(session *SessionRecord, prox proximity.Result, spoof spoofing.Result, tokenResult *token.Result, proximityOK bool) SecurityMetrics {
	score := decisionBaseScore
	if !proximityOK {
		score -= proximityFailurePenalty
	}
	if tokenResult != nil {
		if capped := tokenResult.SecurityScore + tokenScoreHeadroom; capped < score {
			score = capped
		}
	}
	score = utils.Clamp(score, 0, decisionBaseScore)

	var flags []string
	if spoof.Suspicious {
		flags = append(flags, FlagSpoofingDetected)
	}
	if tokenResult != nil {
		if tokenResult.HasError(token.CodeMACMismatch) {
			flags = append(flags, FlagMACMismatch)
		}
		if tokenResult.HasError(token.CodeExcessiveDrift) {
			flags = append(flags, FlagLocationAnomaly)
		}
		if tokenResult.HasError(token.CodeRateLimitExceeded) {
			flags = append(flags, FlagRateLimitViolation)
		}
	}
	if session.Policy.RequireGeolocation && prox.Geolocation.Evaluated && !prox.Geolocation.Passed && !hasFlag(flags, FlagLocationAnomaly) {
		flags = append(flags, FlagLocationAnomaly)
	}

	return SecurityMetrics{
		OverallScore: score,
		RiskLevel:    bucketRisk(score),
		Flags:        flags,
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func bucketRisk(score int) RiskLevel {
	switch {
	case score >= riskLowMin:
		return RiskLow
	case score >= riskMediumMin:
		return RiskMedium
	case score >= riskHighMin:
		return RiskHigh
	default:
		return RiskCritical
	}
}
