package fleet

import "errors"

var (
	// ErrInvalidTransition reports a lifecycle operation attempted from
	// a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrResourceConflict reports two lifecycle claims contending for
	// the same vehicle. The first committed claim wins; the loser gets
	// this error and the caller may re-fetch and retry.
	ErrResourceConflict = errors.New("resource conflict")
)
