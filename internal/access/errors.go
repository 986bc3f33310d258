package access

import "errors"

var (
	// ErrUnlinkedFamilyMember means a family identity has no usable patient link
	ErrUnlinkedFamilyMember = errors.New("could not find connected patient")
	// ErrUnknownIdentity means the identity is neither a patient nor a family member
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrNotFound is returned for memories outside the caller's subject, so
	// their existence is never confirmed
	ErrNotFound = errors.New("memory not found")
	// ErrStoreUnavailable wraps record store failures
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrUnknownAction is returned for actions Authorize does not know
	ErrUnknownAction = errors.New("unknown action")
)
