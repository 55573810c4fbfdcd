package alerts

import "errors"

var (
	// ErrNotFound indicates a missing alert record.
	ErrNotFound = errors.New("alert: not found")
	// ErrDuplicateActive indicates a non-terminal alert already exists
	// for the device.
	ErrDuplicateActive = errors.New("alert: active alert exists for device")
	// ErrNoCoverage indicates no responder station could be assigned.
	ErrNoCoverage = errors.New("alert: no responder coverage")
	// ErrConflict indicates the record changed since it was read.
	ErrConflict = errors.New("alert: concurrent update conflict")
	// ErrContention indicates conflict retries were exhausted; the
	// operation can be retried by the caller.
	ErrContention = errors.New("alert: update contention, retry")
	// ErrTerminal indicates a mutation of a resolved or false-alarm alert.
	ErrTerminal = errors.New("alert: already closed")
	// ErrNotPending indicates the alert left pending before the action.
	ErrNotPending = errors.New("alert: no longer pending")
	// ErrNotAssigned indicates the station never appeared in the
	// alert's escalation history.
	ErrNotAssigned = errors.New("alert: station was not assigned")
	// ErrTooLate indicates the station's assignment was already closed
	// by a newer escalation.
	ErrTooLate = errors.New("alert: assignment already superseded")
	// ErrNotAssignee indicates the caller is not the current assignee.
	ErrNotAssignee = errors.New("alert: not the assigned station")
	// ErrInvalidTransition indicates an illegal status progression.
	ErrInvalidTransition = errors.New("alert: invalid status transition")
)
