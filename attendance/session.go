package attendance

import (
	"time"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/token/codec"
)

// Policy is the per-session validation policy supplied by the session
// management collaborator. Zero values mean "not required".
type Policy struct {
	RequireProximity       bool    `json:"requireProximity"`
	RequireGeolocation     bool    `json:"requireGeolocation"`
	GeofenceRadiusMeters   float64 `json:"geofenceRadiusMeters"`
	PrimaryFactorThreshold int     `json:"primaryFactorThreshold"`
	RequireSameIP          bool    `json:"requireSameIP"`
	ExpectedPublicIP       string  `json:"expectedPublicIP,omitempty"`

	// SkipMACValidation turns off the strict MAC comparison during token
	// validation. The comparison stays on by default.
	SkipMACValidation bool `json:"skipMACValidation,omitempty"`
}

// SessionRecord is the engine's view of one open check-in session. Persistence
// of these records belongs to the session-management collaborator; the engine
// only reads them through SessionRepo.
type SessionRecord struct {
	ID             string                  // session identifier
	TeacherID      string                  //
	CourseID       string                  //
	CreatedAt      time.Time               //
	ExpiresAt      time.Time               //
	Network        fingerprint.Fingerprint // captured on the teacher's device at creation
	Policy         Policy                  //
	SessionKey     string                  // short code distributed alongside the QR payload
	ValidationHash string                  // display/debug correlation value
	Token          codec.EncryptedToken    // the issued session token
}

// Record is one persisted attendance mark. Exactly one exists per
// (student, session) pair; the repo enforces that on write.
type Record struct {
	StudentID     string    `json:"studentId"`
	SessionID     string    `json:"sessionId"`
	CourseID      string    `json:"courseId"`
	Method        string    `json:"method"`
	MarkedAt      time.Time `json:"markedAt"`
	SecurityScore int       `json:"securityScore"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	Flags         []string  `json:"flags,omitempty"`
}
