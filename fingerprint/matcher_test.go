package fingerprint_test

import (
	"testing"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	t.Run("identical fingerprints score 1.0 with high confidence", func(t *testing.T) {
		fp := fingerprint.Build(testSnapshot())
		res := fingerprint.Match(fp, fp)
		require.InDelta(t, 1.0, res.Score, 1e-9)
		require.True(t, res.Valid)
		require.Equal(t, fingerprint.ConfidenceHigh, res.Confidence)
	})

	t.Run("nothing in common scores 0", func(t *testing.T) {
		a := fingerprint.Build(testSnapshot())
		b := fingerprint.Build(fingerprint.Snapshot{
			IPAddress:  "10.1.2.3",
			MACAddress: "00:11:22:33:44:55",
			WiFiSSID:   "other-network",
			UserAgent:  "curl/8.0",
			Platform:   "Linux",
		})
		res := fingerprint.Match(a, b)
		require.Less(t, res.Score, 0.3)
		require.False(t, res.Valid)
		require.Equal(t, fingerprint.ConfidenceLow, res.Confidence)
	})

	t.Run("missing MAC earns half credit, not a mismatch", func(t *testing.T) {
		snap := testSnapshot()
		snap.MACAddress = ""
		a := fingerprint.Build(snap)
		b := fingerprint.Build(snap)

		res := fingerprint.Match(a, b)
		// 30 + 12.5 + 20 + 15 + 10 of 100
		require.InDelta(t, 0.875, res.Score, 1e-9)
		require.True(t, res.Valid)
		require.False(t, res.Fields["mac"].Matched)
		require.InDelta(t, 0.5, res.Fields["mac"].Similarity, 1e-9)
	})

	t.Run("MAC comparison is case and separator insensitive", func(t *testing.T) {
		a := testSnapshot()
		b := testSnapshot()
		b.MACAddress = "aa-bb-cc-dd-ee-ff"

		res := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b))
		require.True(t, res.Fields["mac"].Matched)
		require.InDelta(t, 1.0, res.Score, 1e-9)
	})

	t.Run("near-identical user agents earn scaled partial credit", func(t *testing.T) {
		a := testSnapshot()
		b := testSnapshot()
		b.UserAgent = a.UserAgent + "x" // one edit

		res := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b))
		ua := res.Fields["userAgent"]
		require.True(t, ua.Matched) // similarity above 0.8 reports as matched
		require.Greater(t, ua.Similarity, 0.95)
		require.Less(t, ua.Points, 15.0)
	})

	t.Run("unrelated user agents earn little credit", func(t *testing.T) {
		a := testSnapshot()
		b := testSnapshot()
		b.UserAgent = "curl/8.0"

		res := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b))
		require.False(t, res.Fields["userAgent"].Matched)
	})

	t.Run("adding a matching field never decreases the score", func(t *testing.T) {
		a := testSnapshot()
		b := fingerprint.Snapshot{IPAddress: a.IPAddress, UserAgent: "none", Platform: "other"}

		prev := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b)).Score

		b.WiFiSSID = a.WiFiSSID
		withSSID := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b)).Score
		require.GreaterOrEqual(t, withSSID, prev)

		b.MACAddress = a.MACAddress
		withMAC := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b)).Score
		require.GreaterOrEqual(t, withMAC, withSSID)

		b.Platform = a.Platform
		withPlatform := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b)).Score
		require.GreaterOrEqual(t, withPlatform, withMAC)
	})

	t.Run("confidence buckets", func(t *testing.T) {
		// IP + MAC + SSID + platform, entirely different UA: 85 points.
		a := testSnapshot()
		b := testSnapshot()
		b.UserAgent = "other"
		res := fingerprint.Match(fingerprint.Build(a), fingerprint.Build(b))
		require.GreaterOrEqual(t, res.Score, 0.7)
		require.Less(t, res.Score, 0.9)
		require.Equal(t, fingerprint.ConfidenceMedium, res.Confidence)
	})
}
