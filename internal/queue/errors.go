package queue

import "errors"

var (
	// ErrNotFound indicates the requested job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrNotProcessing indicates a transition was attempted on a job that is
	// not in the processing state. Completing or failing an already-terminal
	// job returns this instead of mutating the row.
	ErrNotProcessing = errors.New("job is not processing")

	// ErrInvalidURL indicates an enqueue request carried a URL that is not
	// absolute http or https.
	ErrInvalidURL = errors.New("target url must be absolute http or https")
)
