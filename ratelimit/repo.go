package ratelimit

// Key identifies one student's attempt window against one session. Keying per
// pair keeps one student's abuse from throttling anyone else.
type Key struct {
	StudentID string
	SessionID string
}

// TakeResult is the store's answer to one atomic take.
type TakeResult struct {
	Allowed  bool  // whether the attempt was recorded
	Attempts int   // attempts in the window after this take
	OldestMs int64 // oldest surviving attempt, 0 when the window is empty
}

// WindowRepo stores per-key attempt timestamps. Take must perform its
// prune-check-append as one atomic step per key: concurrent takers for the
// same key serialise, takers for different keys do not block each other.
type WindowRepo interface {
	// Take prunes timestamps older than nowMs-windowMs, rejects without
	// recording when max attempts already remain, otherwise records nowMs.
	Take(key Key, nowMs, windowMs int64, max int) (TakeResult, error)

	// DeleteExpired evicts keys whose newest attempt is older than cutoffMs.
	// The engine never calls this itself; session housekeeping does.
	DeleteExpired(cutoffMs int64) error
}
