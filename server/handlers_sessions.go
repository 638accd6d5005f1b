package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campuskit/go-attendance-engine/attendance"
	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/token"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CreateSessionRequest opens a time-boxed check-in session. The network
// snapshot comes from the teacher's device and becomes the proximity
// reference for every attempt.
type CreateSessionRequest struct {
	CourseID        string               `json:"courseId"`
	DurationMinutes int                  `json:"durationMinutes,omitempty"`
	NetworkInfo     fingerprint.Snapshot `json:"networkInfo"`
	Policy          attendance.Policy    `json:"policy"`
	AllowedMethods  []string             `json:"allowedMethods,omitempty"`
	MaxAttempts     int                  `json:"maxAttempts,omitempty"`
}

// CreateSessionResponse carries the QR wire payload back to the teacher UI.
type CreateSessionResponse struct {
	SessionID string             `json:"sessionId"`
	ExpiresAt int64              `json:"expiresAtEpochMs"`
	QRPayload *token.IssuedToken `json:"qrPayload"`
}

func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CourseID == "" {
			writeError(w, http.StatusBadRequest, "courseId is required")
			return
		}

		teacherID := subjectFromContext(r.Context())
		sessionID := uuid.New().String()
		duration := s.config.GetSessionDuration()
		if req.DurationMinutes > 0 {
			duration = time.Duration(req.DurationMinutes) * time.Minute
		}

		network := fingerprint.Build(req.NetworkInfo)
		issued, payload, err := s.issuer.Issue(token.IssueRequest{
			SessionID:   sessionID,
			TeacherID:   teacherID,
			CourseID:    req.CourseID,
			Duration:    duration,
			Fingerprint: network,
			Permissions: token.Permissions{
				AllowedMethods:   req.AllowedMethods,
				MaxAttempts:      req.MaxAttempts,
				RequireProximity: req.Policy.RequireProximity,
			},
		})
		if err != nil {
			log.Error().Err(err).Msg("issuing session token")
			writeError(w, http.StatusInternalServerError, "failed to issue session token")
			return
		}

		policy := req.Policy
		if policy.GeofenceRadiusMeters <= 0 {
			policy.GeofenceRadiusMeters = s.config.GetGeofenceRadiusMeters()
		}
		if policy.PrimaryFactorThreshold <= 0 {
			policy.PrimaryFactorThreshold = s.config.GetPrimaryFactorThreshold()
		}

		record := &attendance.SessionRecord{
			ID:             sessionID,
			TeacherID:      teacherID,
			CourseID:       req.CourseID,
			CreatedAt:      time.UnixMilli(payload.IssuedAt),
			ExpiresAt:      time.UnixMilli(payload.ExpiresAt),
			Network:        network,
			Policy:         policy,
			SessionKey:     issued.SessionKey,
			ValidationHash: issued.ValidationHash,
			Token:          issued.Token,
		}
		if err := s.repos.Sessions.Upsert(record); err != nil {
			log.Error().Err(err).Msg("storing session record")
			writeError(w, http.StatusInternalServerError, "failed to store session")
			return
		}

		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			SessionID: sessionID,
			ExpiresAt: payload.ExpiresAt,
			QRPayload: issued,
		})
	}
}

// SessionByKeyHandler resolves a short manual code to the session and its
// token, for clients that cannot scan the QR code.
func (s *Server) SessionByKeyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.repos.Sessions.GetBySessionKey(r.PathValue("sessionKey"))
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		writeJSON(w, http.StatusOK, token.IssuedToken{
			SessionKey:     session.SessionKey,
			Token:          session.Token,
			ValidationHash: session.ValidationHash,
			Timestamp:      session.CreatedAt.UnixMilli(),
		})
	}
}

func (s *Server) EndSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")
		session, err := s.repos.Sessions.Get(sessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if session.TeacherID != subjectFromContext(r.Context()) {
			writeError(w, http.StatusForbidden, "not the session owner")
			return
		}

		if err := s.repos.Sessions.Delete(sessionID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to end session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) SessionRecordsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")
		session, err := s.repos.Sessions.Get(sessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if session.TeacherID != subjectFromContext(r.Context()) {
			writeError(w, http.StatusForbidden, "not the session owner")
			return
		}

		records, err := s.repos.Records.ListBySession(sessionID)
		if err != nil && !errors.Is(err, attendance.ErrRecordNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to list records")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
