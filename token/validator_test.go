package token_test

import (
	"testing"
	"time"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/ratelimit"
	"github.com/campuskit/go-attendance-engine/token"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/stretchr/testify/require"
)

type validatorFixture struct {
	issuer    *token.Issuer
	validator *token.Validator
	now       time.Time
}

// newValidatorFixture issues at testNow and validates one minute later.
func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()

	f := &validatorFixture{now: testNow.Add(time.Minute)}

	c, err := codec.New(testSecret)
	require.NoError(t, err)

	issuer, err := token.NewIssuer(c, token.WithIssuerNowFunc(func() time.Time { return testNow }))
	require.NoError(t, err)
	f.issuer = issuer

	limiter, err := ratelimit.NewLimiter(ratelimit.NewInMemoryWindowRepo(), ratelimit.WithNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)

	validator, err := token.NewValidator(c, limiter, token.WithValidatorNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.validator = validator

	return f
}

func (f *validatorFixture) issue(t *testing.T, duration time.Duration) codec.EncryptedToken {
	t.Helper()
	issued, _, err := f.issuer.Issue(token.IssueRequest{
		SessionID:   testSessionID,
		TeacherID:   testTeacherID,
		CourseID:    testCourseID,
		Duration:    duration,
		Fingerprint: fingerprint.Build(teacherSnapshot()),
	})
	require.NoError(t, err)
	return issued.Token
}

func (f *validatorFixture) context(snap fingerprint.Snapshot) token.Context {
	return token.Context{
		SessionID: testSessionID,
		StudentID: testStudentID,
		Submitted: fingerprint.Build(snap),
	}
}

func TestValidate(t *testing.T) {
	t.Run("perfect attempt caps the score at 100", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Empty(t, res.Errors)
		require.Equal(t, 100, res.SecurityScore)
		require.NotNil(t, res.Details.FingerprintMatch)
		require.Greater(t, res.Details.FingerprintMatch.Score, 0.9)
		require.NotNil(t, res.Details.MACMatched)
		require.True(t, *res.Details.MACMatched)
		require.NotNil(t, res.Details.LocationDriftM)
		require.Less(t, *res.Details.LocationDriftM, 10.0)
	})

	t.Run("decryption failure is fatal and short-circuits", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)
		sealed.AuthTagHex = "00" + sealed.AuthTagHex[2:]

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeDecryptionFailed))
		require.Zero(t, res.SecurityScore)
		require.Nil(t, res.Payload)
		require.Nil(t, res.Details.FingerprintMatch)
	})

	t.Run("expired token always fails regardless of other inputs", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)
		f.now = testNow.Add(16 * time.Minute)

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeTokenExpired))
		require.Nil(t, res.Details.FingerprintMatch) // short-circuited
	})

	t.Run("token from the future fails with invalid timestamp", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)
		f.now = testNow.Add(-time.Minute)

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeInvalidTimestamp))
	})

	t.Run("unrelated fingerprint is a mismatch error", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		res, err := f.validator.Validate(sealed, f.context(fingerprint.Snapshot{
			IPAddress: "10.9.8.7",
			UserAgent: "curl/8.0",
			Platform:  "Linux",
		}))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeFingerprintMismatch))
	})

	t.Run("partial fingerprint overlap is only a warning", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		// Same IP and platform, no MAC, different network and agent.
		res, err := f.validator.Validate(sealed, f.context(fingerprint.Snapshot{
			IPAddress: "192.168.1.10",
			WiFiSSID:  "other-network",
			UserAgent: "curl/8.0",
			Platform:  "macOS",
		}))
		require.NoError(t, err)
		require.False(t, res.HasError(token.CodeFingerprintMismatch))
		require.Contains(t, res.Warnings, token.CodePartialNetworkMatch)
		require.True(t, res.Valid) // warnings alone do not invalidate
	})

	t.Run("conflicting MAC addresses are fatal", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		snap := teacherSnapshot()
		snap.MACAddress = "00:11:22:33:44:55"
		res, err := f.validator.Validate(sealed, f.context(snap))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeMACMismatch))
		require.NotNil(t, res.Details.MACMatched)
		require.False(t, *res.Details.MACMatched)
	})

	t.Run("policy may skip the strict MAC comparison", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		snap := teacherSnapshot()
		snap.MACAddress = "00:11:22:33:44:55"
		ctx := f.context(snap)
		ctx.SkipMACCheck = true

		res, err := f.validator.Validate(sealed, ctx)
		require.NoError(t, err)
		require.False(t, res.HasError(token.CodeMACMismatch))
		require.Nil(t, res.Details.MACMatched)
	})

	t.Run("location drift bands", func(t *testing.T) {
		drifts := []struct {
			name    string
			latOff  float64 // ~111km per degree
			error   bool
			warning bool
		}{
			{name: "70m drift warns", latOff: 0.00063, warning: true},
			{name: "130m drift errors", latOff: 0.0012, error: true},
			{name: "5m drift is clean", latOff: 0.000045},
		}

		for _, tc := range drifts {
			t.Run(tc.name, func(t *testing.T) {
				f := newValidatorFixture(t)
				sealed := f.issue(t, 15*time.Minute)

				snap := teacherSnapshot()
				snap.Geolocation = &fingerprint.Coordinates{Lat: 52.5200 + tc.latOff, Lng: 13.4050}
				res, err := f.validator.Validate(sealed, f.context(snap))
				require.NoError(t, err)
				require.Equal(t, tc.error, res.HasError(token.CodeExcessiveDrift))
				hasWarning := false
				for _, w := range res.Warnings {
					hasWarning = hasWarning || w == token.CodeModerateDrift
				}
				require.Equal(t, tc.warning, hasWarning)
			})
		}
	})

	t.Run("sixth rapid attempt is rate limited even when perfect", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		for i := 0; i < 5; i++ {
			res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
			require.NoError(t, err)
			require.True(t, res.Valid)
			f.now = f.now.Add(5 * time.Second) // all within 30 seconds
		}

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeRateLimitExceeded))
		require.NotNil(t, res.Details.RateLimit)
		require.False(t, res.Details.RateLimit.Allowed)
	})

	t.Run("session ID mismatch violates integrity", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		ctx := f.context(teacherSnapshot())
		ctx.SessionID = "another-session"
		res, err := f.validator.Validate(sealed, ctx)
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.True(t, res.HasError(token.CodeIntegrityViolation))
		require.False(t, res.Details.IntegrityOK)
	})

	t.Run("unenrolled student violates integrity", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		ctx := f.context(teacherSnapshot())
		ctx.EnrolledCourseIDs = []string{"course-9"}
		res, err := f.validator.Validate(sealed, ctx)
		require.NoError(t, err)
		require.True(t, res.HasError(token.CodeIntegrityViolation))

		ctx.EnrolledCourseIDs = []string{"course-9", testCourseID}
		res, err = f.validator.Validate(sealed, ctx)
		require.NoError(t, err)
		require.False(t, res.HasError(token.CodeIntegrityViolation))
	})

	t.Run("tokens older than 24h violate integrity even before expiry", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 48*time.Hour)
		f.now = testNow.Add(25 * time.Hour)

		res, err := f.validator.Validate(sealed, f.context(teacherSnapshot()))
		require.NoError(t, err)
		require.False(t, res.HasError(token.CodeTokenExpired))
		require.True(t, res.HasError(token.CodeIntegrityViolation))
	})

	t.Run("score arithmetic stays within bounds", func(t *testing.T) {
		f := newValidatorFixture(t)
		sealed := f.issue(t, 15*time.Minute)

		// Mismatched fingerprint plus rate-limit exhaustion piles on errors.
		bad := f.context(fingerprint.Snapshot{IPAddress: "10.9.8.7", UserAgent: "curl", Platform: "Linux"})
		for i := 0; i < 6; i++ {
			res, err := f.validator.Validate(sealed, bad)
			require.NoError(t, err)
			require.GreaterOrEqual(t, res.SecurityScore, 0)
			require.LessOrEqual(t, res.SecurityScore, 100)
		}
	})
}
