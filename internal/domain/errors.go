package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for the failure modes each component contract can produce. The
// websocket boundary is the single place they are translated into the
// client-facing "error" event.
var (
	// ErrUnauthenticated indicates a missing, invalid, or expired credential.
	// It is fatal to the connection attempt: the handshake is rejected and no
	// event handlers are attached.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrProfileNotFound indicates the identity provider accepted the
	// credential but no matching profile exists in the store.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNotAuthorized indicates the acting user is not an authorized
	// participant of the room. Deliberately covers both "no such room" and
	// "not a member" so room existence cannot be enumerated.
	ErrNotAuthorized = errors.New("not authorized for room")

	// ErrPersistenceFailed indicates the store rejected a write. No broadcast
	// occurs and the sender must be told the send did not take effect.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotFound is the generic absence error for store reads.
	ErrNotFound = errors.New("requested resource not found")
)

// Media verification rejection reasons. They are distinguished internally for
// logging and testing; ErrMediaNotEligible wraps them at the client boundary.
var (
	ErrMediaNotFound    = errors.New("media attachment not found")
	ErrMediaNotOwner    = errors.New("media attachment owned by another user")
	ErrMediaNotApproved = errors.New("media attachment not approved")
	ErrMediaExpired     = errors.New("media attachment expired")

	// ErrMediaNotEligible is the coalesced, client-facing rejection.
	ErrMediaNotEligible = errors.New("media attachment not eligible")
)
