package types

// TripState is the lifecycle state of a trip.
type TripState string

const (
	StateCreated              TripState = "CREATED"
	StateMatching             TripState = "MATCHING"
	StateDriverAssigned       TripState = "DRIVER_ASSIGNED"
	StateDriverArriving       TripState = "DRIVER_ARRIVING"
	StatePinVerification      TripState = "PIN_VERIFICATION"
	StateInProgress           TripState = "IN_PROGRESS"
	StateCompleted            TripState = "COMPLETED"
	StateCancelledByPassenger TripState = "CANCELLED_BY_PASSENGER"
	StateCancelledByDriver    TripState = "CANCELLED_BY_DRIVER"
	StateNoDriverFound        TripState = "NO_DRIVER_FOUND"
)

func (s TripState) String() string {
	return string(s)
}

// OfferStatus is the lifecycle state of a dispatch offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "PENDING"
	OfferAccepted OfferStatus = "ACCEPTED"
	OfferDeclined OfferStatus = "DECLINED"
	OfferExpired  OfferStatus = "EXPIRED"
)

// UserRole is the role carried by an authenticated principal.
type UserRole string

const (
	RoleRider  UserRole = "rider"
	RoleDriver UserRole = "driver"
	RoleAdmin  UserRole = "admin"
)

func (r UserRole) String() string {
	return string(r)
}

// RideType selects the fare class of a trip.
type RideType string

const (
	RideStandard RideType = "standard"
	RidePremium  RideType = "premium"
)

// PaymentMethod identifies the capture strategy used on completion.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
)

// IncidentCategory classifies a safety incident report.
type IncidentCategory string

const (
	IncidentSOS     IncidentCategory = "SOS"
	IncidentSupport IncidentCategory = "SUPPORT"
)

// IncidentStatus is the handling state of a safety incident.
type IncidentStatus string

const (
	IncidentOpen         IncidentStatus = "OPEN"
	IncidentAcknowledged IncidentStatus = "ACKNOWLEDGED"
	IncidentResolved     IncidentStatus = "RESOLVED"
)

// Idempotency actions. The store keys stored responses as "<action>:<key>".
const (
	ActionCreateTrip   = "trip.create"
	ActionStartTrip    = "trip.start"
	ActionCompleteTrip = "trip.complete"
	ActionCancelTrip   = "trip.cancel"
)
