package types

import "errors"

// Not-found errors.
var (
	ErrTripNotFound         = errors.New("trip not found")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrTokenNotFound        = errors.New("share token not found")
	ErrDriverProfileMissing = errors.New("driver profile not found, complete driver onboarding first")
)

// Authorization errors. Each case keeps a distinct message so that
// ownership violations are never reported as a generic failure.
var (
	ErrRoleNotAllowed    = errors.New("role cannot perform this operation")
	ErrTripAccessDenied  = errors.New("access denied for trip")
	ErrNotAssignedDriver = errors.New("trip is not assigned to this driver")
	ErrNotTokenCreator   = errors.New("not allowed to revoke this token")
	ErrNotTripRider      = errors.New("cannot rate a trip you did not take")
)

// State-conflict errors. ErrInvalidTransition, ErrOfferAlready and
// ErrCannotStartTrip are wrapped with the offending states appended.
var (
	ErrDriverNotVerified   = errors.New("driver must be verified before going online")
	ErrTripAlreadyFinished = errors.New("trip already finished")
	ErrTripNotCompleted    = errors.New("trip must be completed before rating")
	ErrTripNoDriver        = errors.New("trip has no assigned driver")
	ErrTripAlreadyRated    = errors.New("trip already rated")
	ErrOfferNotOwned       = errors.New("offer does not belong to driver")
	ErrTokenRevoked        = errors.New("share token revoked")
	ErrTokenExpired        = errors.New("share token expired")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrOfferAlready        = errors.New("offer already")
	ErrCannotStartTrip     = errors.New("cannot start trip in state")
)

// PIN verification errors.
var (
	ErrPinSessionNotFound  = errors.New("pin session not found")
	ErrPinExpired          = errors.New("pin expired")
	ErrPinRequired         = errors.New("pin is required to start this trip")
	ErrPinAttemptsExceeded = errors.New("pin verification blocked due to too many attempts")
	ErrPinMismatch         = errors.New("invalid pin")
)

// Validation errors.
var (
	ErrInvalidRatingScore  = errors.New("rating score must be between 1 and 5")
	ErrImplausibleLocation = errors.New("suspicious location update rejected")
)
