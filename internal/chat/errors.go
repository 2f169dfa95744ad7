package chat

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned when an operation needs a wallet-backed session
// and none is attached.
var ErrNoSession = errors.New("chat: no wallet session")

// ValidationError reports input that fails the local constraints. It never
// reaches the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chat: invalid %s: %s", e.Field, e.Reason)
}

// RemoteError reports a call the ledger declined. The reason is surfaced
// verbatim; this layer does not interpret it.
type RemoteError struct {
	Op     string
	Reason string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("chat: %s rejected: %s", e.Op, e.Reason)
}

// IsRemote reports whether err is (or wraps) a ledger rejection.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsValidation reports whether err is (or wraps) a local input violation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
