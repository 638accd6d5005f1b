package attendance

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyMarked   = errors.New("attendance already marked")
	ErrRecordNotFound  = errors.New("attendance record not found")
)
