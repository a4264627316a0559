package updater

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error.
const (
	ErrCodeInvalidState   = "INVALID_STATE"   // another update step is in progress
	ErrCodeBusy           = "BUSY"            // the guard refused, capture is running
	ErrCodeCheckFailed    = "CHECK_FAILED"    // release lookup failed
	ErrCodeNotFound       = "NOT_FOUND"       // repository has no releases
	ErrCodeNoUpdate       = "NO_UPDATE"       // already on the latest release
	ErrCodeApplyFailed    = "APPLY_FAILED"    // download or replace failed, backup restored
	ErrCodeBackupFailed   = "BACKUP_FAILED"   // could not copy the running binary aside
	ErrCodeRollbackFailed = "ROLLBACK_FAILED" // could not restore the backup
	ErrCodeNoBackup       = "NO_BACKUP"
	ErrCodeDisabled       = "DISABLED" // binary is not replaceable
)

// Error is an update failure with a machine readable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}
