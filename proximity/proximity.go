// Package proximity performs the physical-presence checks for a check-in
// attempt: IP subnet, Wi-Fi SSID, Bluetooth overlap and geofence distance.
// Each check is an independent binary signal; a configurable vote over the
// primary factors decides the overall outcome.
package proximity

import (
	"strings"

	"github.com/campuskit/go-attendance-engine/fingerprint"
)

const (
	// DefaultGeofenceRadiusMeters bounds how far a submission may sit from
	// the session's captured coordinates.
	DefaultGeofenceRadiusMeters = 50.0

	// DefaultPrimaryThreshold is the number of primary factors (IP, Wi-Fi,
	// Bluetooth) that must pass. Browsers frequently cannot report SSIDs or
	// Bluetooth peers, so requiring a single factor is the realistic default.
	DefaultPrimaryThreshold = 1

	ipPrefixOctets = 3
)

// Options tunes a validation run. Zero values fall back to the defaults.
type Options struct {
	GeofenceRadiusMeters float64
	RequireGeolocation   bool
	PrimaryThreshold     int
}

// Check is the outcome of one independent proximity signal. A check that
// could not run (a side lacking the field) is reported as not evaluated and
// never counts as passed.
type Check struct {
	Evaluated bool `json:"evaluated"`
	Passed    bool `json:"passed"`
}

// Result aggregates all proximity checks for one attempt.
type Result struct {
	IP                   Check    `json:"ip"`
	WiFi                 Check    `json:"wifi"`
	Bluetooth            Check    `json:"bluetooth"`
	Geolocation          Check    `json:"geolocation"`
	DistanceMeters       *float64 `json:"distanceMeters,omitempty"`
	PrimaryFactorsPassed int      `json:"primaryFactorsPassed"`
	PrimaryThreshold     int      `json:"primaryThreshold"`
	Overall              bool     `json:"overall"`
}

// Validate compares the session's captured network info against a submitted
// fingerprint. sessionInfo is the fingerprint recorded at session creation on
// the teacher's device.
func Validate(sessionInfo, submitted fingerprint.Fingerprint, opts Options) Result {
	if opts.GeofenceRadiusMeters <= 0 {
		opts.GeofenceRadiusMeters = DefaultGeofenceRadiusMeters
	}
	if opts.PrimaryThreshold <= 0 {
		opts.PrimaryThreshold = DefaultPrimaryThreshold
	}

	res := Result{
		IP:               checkIPPrefix(sessionInfo.IPAddress, submitted.IPAddress),
		WiFi:             checkSSID(sessionInfo.WiFiSSID, submitted.WiFiSSID),
		Bluetooth:        checkBluetooth(sessionInfo.MACAddress, submitted.BluetoothDevices),
		PrimaryThreshold: opts.PrimaryThreshold,
	}
	res.Geolocation, res.DistanceMeters = checkGeofence(sessionInfo.Geolocation, submitted.Geolocation, opts.GeofenceRadiusMeters)

	for _, c := range []Check{res.IP, res.WiFi, res.Bluetooth} {
		if c.Evaluated && c.Passed {
			res.PrimaryFactorsPassed++
		}
	}

	geofenceOK := !opts.RequireGeolocation || !res.Geolocation.Evaluated || res.Geolocation.Passed
	res.Overall = res.PrimaryFactorsPassed >= res.PrimaryThreshold && geofenceOK
	return res
}

// checkIPPrefix passes when both addresses share their first three
// dotted-decimal octets, the usual /24 assumption for a shared classroom LAN.
func checkIPPrefix(sessionIP, submittedIP string) Check {
	if sessionIP == "" || submittedIP == "" {
		return Check{}
	}
	a := strings.Split(sessionIP, ".")
	b := strings.Split(submittedIP, ".")
	if len(a) < ipPrefixOctets+1 || len(b) < ipPrefixOctets+1 {
		return Check{Evaluated: true}
	}
	for i := 0; i < ipPrefixOctets; i++ {
		if a[i] != b[i] {
			return Check{Evaluated: true}
		}
	}
	return Check{Evaluated: true, Passed: true}
}

func checkSSID(session, submitted fingerprint.Optional[string]) Check {
	sv, sok := session.Get()
	bv, bok := submitted.Get()
	if !sok || !bok {
		return Check{}
	}
	return Check{Evaluated: true, Passed: sv == bv}
}

// checkBluetooth matches the session's reference MAC against the submitter's
// reported peer list, case-insensitively.
func checkBluetooth(sessionMAC fingerprint.Optional[string], devices []string) Check {
	ref, ok := sessionMAC.Get()
	if !ok || len(devices) == 0 {
		return Check{}
	}
	want := fingerprint.NormalizeMAC(ref)
	for _, dev := range devices {
		if fingerprint.NormalizeMAC(dev) == want {
			return Check{Evaluated: true, Passed: true}
		}
	}
	return Check{Evaluated: true}
}

// checkGeofence only runs when both sides captured coordinates; a missing fix
// on either side skips the check rather than failing it.
func checkGeofence(session, submitted fingerprint.Optional[fingerprint.Coordinates], radiusMeters float64) (Check, *float64) {
	sc, sok := session.Get()
	bc, bok := submitted.Get()
	if !sok || !bok {
		return Check{}, nil
	}
	dist := HaversineMeters(sc.Lat, sc.Lng, bc.Lat, bc.Lng)
	return Check{Evaluated: true, Passed: dist <= radiusMeters}, &dist
}
