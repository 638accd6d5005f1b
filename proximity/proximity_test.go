package proximity_test

import (
	"testing"

	"github.com/campuskit/go-attendance-engine/fingerprint"
	"github.com/campuskit/go-attendance-engine/proximity"
	"github.com/stretchr/testify/require"
)

func sessionFingerprint() fingerprint.Fingerprint {
	return fingerprint.Build(fingerprint.Snapshot{
		IPAddress:   "192.168.1.10",
		MACAddress:  "AA:BB:CC:DD:EE:FF",
		WiFiSSID:    "lecture-hall-2",
		Geolocation: &fingerprint.Coordinates{Lat: 52.5200, Lng: 13.4050},
		UserAgent:   "teacher-device",
		Platform:    "macOS",
	})
}

func TestHaversineMeters(t *testing.T) {
	t.Run("identical coordinates are zero meters apart", func(t *testing.T) {
		require.Zero(t, proximity.HaversineMeters(52.52, 13.405, 52.52, 13.405))
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		d := proximity.HaversineMeters(0, 0, 1, 0)
		require.InDelta(t, 111000, d, 1110) // within 1%
	})
}

func TestValidate(t *testing.T) {
	t.Run("matching IP and SSID with close geolocation passes", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress: "192.168.1.77",
			WiFiSSID:  "lecture-hall-2",
			// ~20m north of the session coordinates
			Geolocation: &fingerprint.Coordinates{Lat: 52.52018, Lng: 13.4050},
			UserAgent:   "student-device",
			Platform:    "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{
			GeofenceRadiusMeters: 50,
			RequireGeolocation:   true,
		})

		require.True(t, res.IP.Passed)
		require.True(t, res.WiFi.Passed)
		require.True(t, res.Geolocation.Passed)
		require.Equal(t, 2, res.PrimaryFactorsPassed)
		require.True(t, res.Overall)
		require.NotNil(t, res.DistanceMeters)
		require.InDelta(t, 20, *res.DistanceMeters, 2)
	})

	t.Run("no overlapping factors fails the primary vote", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress: "10.0.0.5",
			WiFiSSID:  "home-wifi",
			UserAgent: "student-device",
			Platform:  "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{})
		require.Equal(t, 0, res.PrimaryFactorsPassed)
		require.False(t, res.Overall)
	})

	t.Run("IP comparison uses the first three octets", func(t *testing.T) {
		session := sessionFingerprint()

		same := fingerprint.Build(fingerprint.Snapshot{IPAddress: "192.168.1.254", UserAgent: "x", Platform: "y"})
		require.True(t, proximity.Validate(session, same, proximity.Options{}).IP.Passed)

		other := fingerprint.Build(fingerprint.Snapshot{IPAddress: "192.168.2.10", UserAgent: "x", Platform: "y"})
		require.False(t, proximity.Validate(session, other, proximity.Options{}).IP.Passed)
	})

	t.Run("bluetooth matches the reference MAC case-insensitively", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress:        "10.0.0.5",
			BluetoothDevices: []string{"11:22:33:44:55:66", "aa-bb-cc-dd-ee-ff"},
			UserAgent:        "student-device",
			Platform:         "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{})
		require.True(t, res.Bluetooth.Evaluated)
		require.True(t, res.Bluetooth.Passed)
		require.Equal(t, 1, res.PrimaryFactorsPassed)
		require.True(t, res.Overall)
	})

	t.Run("geofence is skipped when either side lacks coordinates", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress: "192.168.1.20",
			UserAgent: "student-device",
			Platform:  "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{RequireGeolocation: true})
		require.False(t, res.Geolocation.Evaluated)
		require.True(t, res.Overall)
		require.Nil(t, res.DistanceMeters)
	})

	t.Run("geofence failure blocks overall when geolocation is required", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress: "192.168.1.20",
			// ~1.1km away
			Geolocation: &fingerprint.Coordinates{Lat: 52.53, Lng: 13.4050},
			UserAgent:   "student-device",
			Platform:    "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{RequireGeolocation: true})
		require.True(t, res.Geolocation.Evaluated)
		require.False(t, res.Geolocation.Passed)
		require.False(t, res.Overall)

		// Without the geolocation requirement the same attempt passes.
		relaxed := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{})
		require.True(t, relaxed.Overall)
	})

	t.Run("primary threshold above the passing count fails", func(t *testing.T) {
		submitted := fingerprint.Build(fingerprint.Snapshot{
			IPAddress: "192.168.1.20",
			UserAgent: "student-device",
			Platform:  "iOS",
		})

		res := proximity.Validate(sessionFingerprint(), submitted, proximity.Options{PrimaryThreshold: 2})
		require.Equal(t, 1, res.PrimaryFactorsPassed)
		require.False(t, res.Overall)
	})
}
