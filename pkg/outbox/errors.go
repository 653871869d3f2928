package outbox

import "fmt"

// ClaimError wraps a failure to fetch-and-claim a batch of outbox rows.
type ClaimError struct {
	Err error
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("outbox: claim batch: %v", e.Err)
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}

// MarkError wraps a failure to delete delivered rows from the outbox.
type MarkError struct {
	Err error
}

func (e *MarkError) Error() string {
	return fmt.Sprintf("outbox: mark delivered: %v", e.Err)
}

func (e *MarkError) Unwrap() error {
	return e.Err
}
