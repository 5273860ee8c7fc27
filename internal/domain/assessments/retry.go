package assessments

import "fmt"

// RetryLaterError is the distinguished signal a plugin returns when an
// external system has not finished yet: call again after a delay, this is
// neither a result nor a hard failure.
type RetryLaterError struct {
	Reason string
}

func (e *RetryLaterError) Error() string {
	return fmt.Sprintf("retry later: %s", e.Reason)
}

// RetryLater builds a retry-later signal.
func RetryLater(reason string) *RetryLaterError {
	return &RetryLaterError{Reason: reason}
}
