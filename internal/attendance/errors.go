package attendance

import "errors"

var (
	ErrNotStudent         = errors.New("student access required")
	ErrNoBatch            = errors.New("student has no batch")
	ErrStudentNotFound    = errors.New("student not found")
	ErrWindowNotFound     = errors.New("attendance window not found")
	ErrWindowNotActive    = errors.New("attendance window not active")
	ErrBatchMismatch      = errors.New("attendance window belongs to another batch")
	ErrHallMismatch       = errors.New("hall does not match attendance window")
	ErrAlreadyMarked      = errors.New("attendance already marked")
	ErrUnknownMethod      = errors.New("unknown verification method")
	ErrVerificationFailed = errors.New("face verification failed")
	ErrBeaconRequired     = errors.New("beacon reading required")
	ErrBeaconMismatch     = errors.New("beacon does not belong to hall")
	ErrBeaconOutOfRange   = errors.New("beacon out of range")
	ErrCapturedInFuture   = errors.New("captured_at is in the future")
)
