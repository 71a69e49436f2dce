package dto

import (
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/pkg/validator"
)

type CreateTripRequest struct {
	PickupLatitude   float64 `json:"pickup_latitude"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	PickupAddress    string  `json:"pickup_address"`
	DropoffLatitude  float64 `json:"dropoff_latitude"`
	DropoffLongitude float64 `json:"dropoff_longitude"`
	DropoffAddress   string  `json:"dropoff_address"`
	DistanceMeters   float64 `json:"distance_meters"`
	DurationSeconds  float64 `json:"duration_seconds"`
	RideType         string  `json:"ride_type"`
	PaymentMethod    string  `json:"payment_method"`
	IdempotencyKey   string  `json:"idempotency_key,omitempty"`
}

func (r *CreateTripRequest) Validate(v *validator.Validator) {
	checkCoordinates(v, r.PickupLatitude, r.PickupLongitude, "pickup")
	checkCoordinates(v, r.DropoffLatitude, r.DropoffLongitude, "dropoff")

	v.Check(r.PickupAddress != "", "pickup_address", "must be provided")
	v.Check(len(r.PickupAddress) <= 255, "pickup_address", "must not be more than 255 characters long")
	v.Check(r.DropoffAddress != "", "dropoff_address", "must be provided")
	v.Check(len(r.DropoffAddress) <= 255, "dropoff_address", "must not be more than 255 characters long")

	v.Check(r.DistanceMeters >= 0, "distance_meters", "must not be negative")
	v.Check(r.DurationSeconds >= 0, "duration_seconds", "must not be negative")

	checkRideType(v, r.RideType)
	v.Check(types.PaymentMethod(r.PaymentMethod) == types.PaymentCash, "payment_method", "must be CASH")
}

type EstimateFareRequest struct {
	PickupLatitude   float64 `json:"pickup_latitude"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	DropoffLatitude  float64 `json:"dropoff_latitude"`
	DropoffLongitude float64 `json:"dropoff_longitude"`
	DistanceMeters   float64 `json:"distance_meters"`
	DurationSeconds  float64 `json:"duration_seconds"`
	RideType         string  `json:"ride_type"`
}

func (r *EstimateFareRequest) Validate(v *validator.Validator) {
	checkCoordinates(v, r.PickupLatitude, r.PickupLongitude, "pickup")
	checkCoordinates(v, r.DropoffLatitude, r.DropoffLongitude, "dropoff")
	v.Check(r.DistanceMeters >= 0, "distance_meters", "must not be negative")
	v.Check(r.DurationSeconds >= 0, "duration_seconds", "must not be negative")
	checkRideType(v, r.RideType)
}

type StartTripRequest struct {
	Pin            string `json:"pin,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type CancelTripRequest struct {
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (r *CancelTripRequest) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= 500, "reason", "must not be more than 500 characters long")
}

type SubmitRatingRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

func (r *SubmitRatingRequest) Validate(v *validator.Validator) {
	v.Check(r.Score >= 1 && r.Score <= 5, "score", "must be between 1 and 5")
	v.Check(len(r.Feedback) <= 1000, "feedback", "must not be more than 1000 characters long")
}

type RespondOfferRequest struct {
	Accept bool `json:"accept"`
}

type NearbyDriversRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

func (r *NearbyDriversRequest) Validate(v *validator.Validator) {
	v.Check(r.Latitude >= -90 && r.Latitude <= 90, "latitude", "must be between -90 and 90")
	v.Check(r.Longitude >= -180 && r.Longitude <= 180, "longitude", "must be between -180 and 180")
	v.Check(r.RadiusKm >= 0, "radius_km", "must not be negative")
	v.Check(r.Limit >= 0, "limit", "must not be negative")
}

func checkCoordinates(v *validator.Validator, lat, lng float64, prefix string) {
	v.Check(lat >= -90 && lat <= 90, prefix+"_latitude", "must be between -90 and 90")
	v.Check(lng >= -180 && lng <= 180, prefix+"_longitude", "must be between -180 and 180")
}

func checkRideType(v *validator.Validator, rideType string) {
	switch types.RideType(rideType) {
	case types.RideStandard, types.RidePremium:
	default:
		v.AddError("ride_type", "must be standard or premium")
	}
}
