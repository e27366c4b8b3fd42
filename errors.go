package occplot

import "errors"

var (
	// ErrMissingInput marks an input unit that does not exist. Runs skip it.
	ErrMissingInput = errors.New("missing input")
	// ErrUnreadableInput marks an input unit whose structure could not be read.
	// Runs skip it.
	ErrUnreadableInput = errors.New("unreadable input")
	// ErrEmptyResult is returned when a run accepted no photons at all.
	ErrEmptyResult = errors.New("no photons accepted")
	// ErrInvalidConfiguration is returned before any processing starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
