package schemas

import "errors"

var (
	// ErrCollaboratorUnavailable wraps any failure of the rendering session or
	// document parser, including timeouts.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrPreconditionNotMet marks an observation that cannot be judged yet,
	// such as an image that has not finished loading.
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrResultFinalized is returned when a check result is finalized twice.
	ErrResultFinalized = errors.New("check result already finalized")
)
