package domain

import "errors"

// Error kinds shared by every rollout component. Callers match them with errors.Is;
// the wrapping message carries the step or contract that failed.
var (
	ErrNotFound             = errors.New("deployment record not found")
	ErrStoreCorruption      = errors.New("deployment record is corrupted")
	ErrStoreLocked          = errors.New("deployment record is locked by another run")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrMissingRecord        = errors.New("contract was never deployed")
	ErrTransactionFailure   = errors.New("transaction failed")
	ErrAlreadyConfigured    = errors.New("contract is already configured")
	ErrReadBackMismatch     = errors.New("configuration read back does not match")
)
