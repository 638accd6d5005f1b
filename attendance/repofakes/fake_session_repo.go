package repofakes

import (
	"sync"

	"github.com/campuskit/go-attendance-engine/attendance"
)

var _ attendance.SessionRepo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]*attendance.SessionRecord
	byKey    map[string]string // sessionKey to session ID
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*attendance.SessionRecord),
		byKey:    make(map[string]string),
	}
}

func (r *FakeSessionRepo) Upsert(session *attendance.SessionRecord) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.sessions[session.ID] = session
	if session.SessionKey != "" {
		r.byKey[session.SessionKey] = session.ID
	}
	return nil
}

func (r *FakeSessionRepo) Get(sessionID string) (*attendance.SessionRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, attendance.ErrSessionNotFound
	}
	return session, nil
}

func (r *FakeSessionRepo) GetBySessionKey(sessionKey string) (*attendance.SessionRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	sessionID, ok := r.byKey[sessionKey]
	if !ok {
		return nil, attendance.ErrSessionNotFound
	}
	return r.sessions[sessionID], nil
}

func (r *FakeSessionRepo) Delete(sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return attendance.ErrSessionNotFound
	}
	delete(r.byKey, session.SessionKey)
	delete(r.sessions, sessionID)
	return nil
}
