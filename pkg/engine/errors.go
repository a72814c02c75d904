package engine

// ErrorKind classifies why a session failed. The set is closed; every
// failed session carries exactly one kind.
type ErrorKind string

const (
	ErrKindNone              ErrorKind = ""
	ErrKindConnection        ErrorKind = "connection_error"
	ErrKindCommand           ErrorKind = "command_error"
	ErrKindValidationBlocked ErrorKind = "validation_blocked"
	ErrKindUserAborted       ErrorKind = "user_aborted"
	ErrKindRollbackFailed    ErrorKind = "rollback_failed"
	ErrKindRollbackSkipped   ErrorKind = "rollback_skipped"
)
