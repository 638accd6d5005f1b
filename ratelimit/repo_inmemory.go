package ratelimit

import "sync"

var _ WindowRepo = (*InMemoryWindowRepo)(nil)

// InMemoryWindowRepo is a process-local WindowRepo. Each key owns its own
// lock, so attempts for different (student, session) pairs never contend.
type InMemoryWindowRepo struct {
	lock    sync.RWMutex
	windows map[Key]*window
}

type window struct {
	lock     sync.Mutex
	attempts []int64
}

func NewInMemoryWindowRepo() *InMemoryWindowRepo {
	return &InMemoryWindowRepo{windows: make(map[Key]*window)}
}

func (r *InMemoryWindowRepo) Take(key Key, nowMs, windowMs int64, max int) (TakeResult, error) {
	w := r.window(key)

	w.lock.Lock()
	defer w.lock.Unlock()

	cutoff := nowMs - windowMs
	kept := w.attempts[:0]
	for _, ts := range w.attempts {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	w.attempts = kept

	if len(w.attempts) >= max {
		return TakeResult{Attempts: len(w.attempts), OldestMs: w.attempts[0]}, nil
	}

	w.attempts = append(w.attempts, nowMs)
	return TakeResult{Allowed: true, Attempts: len(w.attempts), OldestMs: w.attempts[0]}, nil
}

func (r *InMemoryWindowRepo) DeleteExpired(cutoffMs int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for key, w := range r.windows {
		w.lock.Lock()
		stale := len(w.attempts) == 0 || w.attempts[len(w.attempts)-1] < cutoffMs
		w.lock.Unlock()
		if stale {
			delete(r.windows, key)
		}
	}
	return nil
}

func (r *InMemoryWindowRepo) window(key Key) *window {
	r.lock.RLock()
	w, ok := r.windows[key]
	r.lock.RUnlock()
	if ok {
		return w
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if w, ok = r.windows[key]; ok {
		return w
	}
	w = &window{}
	r.windows[key] = w
	return w
}
