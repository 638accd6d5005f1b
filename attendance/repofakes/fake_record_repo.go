package repofakes

import (
	"sync"

	"github.com/campuskit/go-attendance-engine/attendance"
)

var _ attendance.RecordRepo = (*FakeRecordRepo)(nil)

type recordKey struct {
	studentID string
	sessionID string
}

// FakeRecordRepo enforces the one-mark-per-(student, session) invariant the
// way a real store would, via a conflict on Create.
type FakeRecordRepo struct {
	lock    sync.RWMutex
	records map[recordKey]*attendance.Record
}

func NewFakeRecordRepo() *FakeRecordRepo {
	return &FakeRecordRepo{records: make(map[recordKey]*attendance.Record)}
}

func (r *FakeRecordRepo) Create(record *attendance.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := recordKey{studentID: record.StudentID, sessionID: record.SessionID}
	if _, exists := r.records[key]; exists {
		return attendance.ErrAlreadyMarked
	}
	r.records[key] = record
	return nil
}

func (r *FakeRecordRepo) Get(studentID, sessionID string) (*attendance.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	record, ok := r.records[recordKey{studentID: studentID, sessionID: sessionID}]
	if !ok {
		return nil, attendance.ErrRecordNotFound
	}
	return record, nil
}

func (r *FakeRecordRepo) ListBySession(sessionID string) ([]*attendance.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var out []*attendance.Record
	for key, record := range r.records {
		if key.sessionID == sessionID {
			out = append(out, record)
		}
	}
	return out, nil
}
