package server

import (
	"encoding/json"
	"net/http"

	"github.com/campuskit/go-attendance-engine/attendance"
	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CheckInRequest is the student-side attempt body. The student identity is
// never read from here; it comes from the authenticated bearer token.
type CheckInRequest struct {
	Method        string                `json:"method"`
	NetworkInfo   fingerprint.Snapshot  `json:"networkInfo"`
	Token         *codec.EncryptedToken `json:"token,omitempty"`
	BiometricData string                `json:"biometricData,omitempty"`
}

// CheckInResponse surfaces the verdict categories without exposing the
// scoring weights behind them.
type CheckInResponse struct {
	Accepted      bool                 `json:"accepted"`
	AlreadyMarked bool                 `json:"alreadyMarked,omitempty"`
	SecurityScore int                  `json:"securityScore"`
	RiskLevel     attendance.RiskLevel `json:"riskLevel"`
	Flags         []string             `json:"flags,omitempty"`
	Reasons       attendance.Reasons   `json:"reasons"`
}

func (s *Server) CheckInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		studentID := subjectFromContext(r.Context())
		decision, err := s.engine.CheckIn(attendance.CheckInRequest{
			SessionID:         r.PathValue("sessionID"),
			StudentID:         studentID,
			Method:            req.Method,
			Network:           req.NetworkInfo,
			Token:             req.Token,
			EnrolledCourseIDs: coursesFromContext(r.Context()),
		})
		if err != nil {
			if errors.Is(err, attendance.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			log.Error().Err(err).Str("student", studentID).Msg("check-in failed")
			writeError(w, http.StatusInternalServerError, "check-in failed")
			return
		}

		resp := CheckInResponse{
			Accepted:      decision.Accepted,
			AlreadyMarked: decision.AlreadyMarked,
			SecurityScore: decision.Metrics.OverallScore,
			RiskLevel:     decision.Metrics.RiskLevel,
			Flags:         decision.Metrics.Flags,
			Reasons:       decision.Reasons,
		}

		status := http.StatusOK
		if !decision.Accepted {
			status = http.StatusForbidden
		}
		writeJSON(w, status, resp)
	}
}
