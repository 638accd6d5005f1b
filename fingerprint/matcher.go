package fingerprint

// Similarity weights. These sum to 100 and are behavioural contract values:
// changing them changes which submissions pass validation.
const (
	weightIP        = 30.0
	weightMAC       = 25.0
	weightSSID      = 20.0
	weightUserAgent = 15.0
	weightPlatform  = 10.0
	totalWeight     = weightIP + weightMAC + weightSSID + weightUserAgent + weightPlatform

	// macUnavailableCredit is awarded when either side lacks a MAC address.
	// Unavailable is not a mismatch; most browsers cannot report one.
	macUnavailableCredit = weightMAC / 2

	// uaMatchedSimilarity is the edit-distance similarity above which a
	// user agent counts as matched for reporting purposes.
	uaMatchedSimilarity = 0.8

	// MatchThreshold is the minimum score for a comparison to be considered
	// valid on its own.
	MatchThreshold = 0.7

	confidenceHighMin   = 0.9
	confidenceMediumMin = 0.7
)

// Confidence buckets a match score for human-facing reporting.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FieldMatch describes how a single fingerprint field compared.
type FieldMatch struct {
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	Points     float64 `json:"points"`
}

// MatchResult is the outcome of comparing two fingerprints.
type MatchResult struct {
	Score      float64               `json:"score"`
	Valid      bool                  `json:"valid"`
	Confidence Confidence            `json:"confidence"`
	Fields     map[string]FieldMatch `json:"fields"`
}

// Match scores how closely current resembles original. No single field is
// trusted on its own: a forged IP cannot pass without the user agent,
// platform and remaining fields also lining up.
func Match(original, current Fingerprint) MatchResult {
	fields := map[string]FieldMatch{
		"ip":        matchExact(original.IPAddress, current.IPAddress, weightIP),
		"mac":       matchMAC(original.MACAddress, current.MACAddress),
		"ssid":      matchOptional(original.WiFiSSID, current.WiFiSSID, weightSSID),
		"userAgent": matchUserAgent(original.UserAgent, current.UserAgent),
		"platform":  matchExact(original.Platform, current.Platform, weightPlatform),
	}

	points := 0.0
	for _, f := range fields {
		points += f.Points
	}
	score := points / totalWeight

	return MatchResult{
		Score:      score,
		Valid:      score >= MatchThreshold,
		Confidence: bucketConfidence(score),
		Fields:     fields,
	}
}

func bucketConfidence(score float64) Confidence {
	switch {
	case score >= confidenceHighMin:
		return ConfidenceHigh
	case score >= confidenceMediumMin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func matchExact(a, b string, weight float64) FieldMatch {
	if a != "" && a == b {
		return FieldMatch{Matched: true, Similarity: 1, Points: weight}
	}
	return FieldMatch{}
}

func matchOptional(a, b Optional[string], weight float64) FieldMatch {
	av, aok := a.Get()
	bv, bok := b.Get()
	if aok && bok && av == bv {
		return FieldMatch{Matched: true, Similarity: 1, Points: weight}
	}
	return FieldMatch{}
}

func matchMAC(a, b Optional[string]) FieldMatch {
	av, aok := a.Get()
	bv, bok := b.Get()
	if !aok || !bok {
		return FieldMatch{Similarity: 0.5, Points: macUnavailableCredit}
	}
	if NormalizeMAC(av) == NormalizeMAC(bv) {
		return FieldMatch{Matched: true, Similarity: 1, Points: weightMAC}
	}
	return FieldMatch{}
}

func matchUserAgent(a, b string) FieldMatch {
	if a == "" || b == "" {
		return FieldMatch{}
	}
	if a == b {
		return FieldMatch{Matched: true, Similarity: 1, Points: weightUserAgent}
	}
	sim := editSimilarity(a, b)
	return FieldMatch{
		Matched:    sim > uaMatchedSimilarity,
		Similarity: sim,
		Points:     sim * weightUserAgent,
	}
}

// editSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)), in [0,1].
func editSimilarity(a, b string) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

// levenshtein computes edit distance with a two-row DP over bytes.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
