package services

import "errors"

var (
	// ErrValidation rejects malformed input before any scoring runs.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound surfaces a missing hospital, ambulance or incident.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyAssigned is the claim-conflict outcome: the unit or the
	// incident was taken by a concurrent claimant. The loser re-enters
	// the matching pool, so this is distinct from a generic failure.
	ErrAlreadyAssigned = errors.New("already assigned")

	// ErrInvalidTransition rejects a lifecycle move the state machine
	// does not allow from the current status.
	ErrInvalidTransition = errors.New("invalid mission transition")

	// ErrNonEmergency is the policy rejection for submissions the
	// classifier is certain are not emergencies. No incident is created.
	ErrNonEmergency = errors.New("submission is not an emergency")

	// ErrNoCandidates means no hospital survived filtering for a match.
	ErrNoCandidates = errors.New("no matching hospitals available")
)
