// Package spoofing flags anomalies that suggest a submitted fingerprint was
// captured, replayed or fabricated rather than read from a real device.
// Heuristics are intentionally conservative: a flag only deducts from the
// composite score, it does not hard-reject on its own.
package spoofing

import "github.com/campuskit/go-attendance-engine/fingerprint"

// Flag names surfaced to the audit trail.
const (
	FlagIdenticalUserAgents = "identical_user_agents"
	FlagInvalidCoordinates  = "invalid_coordinates"
)

// Heuristic is one pure predicate over the session's fingerprint and the
// submitted one. Returning true appends Name to the attempt's flags.
type Heuristic struct {
	Name  string
	Check func(session, submitted fingerprint.Fingerprint) bool
}

// Result is the outcome of running every registered heuristic.
type Result struct {
	Suspicious bool     `json:"isSuspicious"`
	Flags      []string `json:"flags"`
}

// Detector runs a registry of heuristics. New checks are added by
// registration, not by editing orchestration logic.
type Detector struct {
	heuristics []Heuristic
}

// NewDetector builds a detector with the default heuristics plus any extras.
func NewDetector(extra ...Heuristic) *Detector {
	d := &Detector{
		heuristics: []Heuristic{
			{Name: FlagIdenticalUserAgents, Check: identicalUserAgents},
			{Name: FlagInvalidCoordinates, Check: invalidCoordinates},
		},
	}
	d.heuristics = append(d.heuristics, extra...)
	return d
}

// Register appends a heuristic to the detector.
func (d *Detector) Register(h Heuristic) {
	d.heuristics = append(d.heuristics, h)
}

// Detect runs every heuristic and collects the flags it raises.
func (d *Detector) Detect(session, submitted fingerprint.Fingerprint) Result {
	var res Result
	for _, h := range d.heuristics {
		if h.Check(session, submitted) {
			res.Flags = append(res.Flags, h.Name)
		}
	}
	res.Suspicious = len(res.Flags) > 0
	return res
}

// identicalUserAgents fires when both sides report byte-identical user agent
// strings. Two genuinely distinct devices rarely agree to the byte; an exact
// copy usually means a captured fingerprint was replayed.
func identicalUserAgents(session, submitted fingerprint.Fingerprint) bool {
	return session.UserAgent != "" && session.UserAgent == submitted.UserAgent
}

// invalidCoordinates fires when either side reports a fix outside the valid
// latitude/longitude ranges.
func invalidCoordinates(session, submitted fingerprint.Fingerprint) bool {
	return outOfRange(session.Geolocation) || outOfRange(submitted.Geolocation)
}

func outOfRange(geo fingerprint.Optional[fingerprint.Coordinates]) bool {
	c, ok := geo.Get()
	if !ok {
		return false
	}
	return c.Lat > 90 || c.Lat < -90 || c.Lng > 180 || c.Lng < -180
}
