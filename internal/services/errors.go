// Package services defines the business logic for the post ledger: recording
// observed posts, tracking media-download completion, and archiving records
// that no longer need full fidelity. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; mapping
// to exit codes or user-facing messages belongs to the embedding command.
package services

import "errors"

var (
	// ErrPostNotFound indicates that the referenced status id is absent from
	// the ledger the operation targeted.
	ErrPostNotFound = errors.New("post not found")

	// ErrAlreadyArchived is returned when the archival transition is
	// re-attempted for a status id that is already archived. Idempotent
	// callers should treat it as success.
	ErrAlreadyArchived = errors.New("post already archived")

	// ErrEmptyStatusID is returned when an operation is given a blank
	// external post identifier.
	ErrEmptyStatusID = errors.New("status id is empty")
)
