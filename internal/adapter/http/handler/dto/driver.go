package dto

import (
	"github.com/safarigo/ridehail/pkg/validator"
)

type DriverStatusRequest struct {
	IsOnline  bool     `json:"is_online"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (r *DriverStatusRequest) Validate(v *validator.Validator) {
	if r.Latitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
	}
	if r.Longitude != nil {
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	}
	v.Check((r.Latitude == nil) == (r.Longitude == nil), "latitude", "latitude and longitude must be provided together")
}

type DriverLocationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	TripID    string   `json:"trip_id,omitempty"`
}

func (r *DriverLocationRequest) Validate(v *validator.Validator) {
	v.Check(r.Latitude >= -90 && r.Latitude <= 90, "latitude", "must be between -90 and 90")
	v.Check(r.Longitude >= -180 && r.Longitude <= 180, "longitude", "must be between -180 and 180")
	if r.Heading != nil {
		v.Check(*r.Heading >= 0 && *r.Heading < 360, "heading", "must be between 0 and 360")
	}
	if r.Speed != nil {
		v.Check(*r.Speed >= 0, "speed", "must not be negative")
	}
}

type RegisterDriverRequest struct {
	UserID       int64  `json:"user_id"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehicleColor string `json:"vehicle_color"`
	PlateNumber  string `json:"plate_number"`
	Verified     *bool  `json:"verified,omitempty"`
}

func (r *RegisterDriverRequest) Validate(v *validator.Validator) {
	v.Check(r.UserID > 0, "user_id", "must be provided")
	v.Check(r.VehicleMake != "", "vehicle_make", "must be provided")
	v.Check(r.VehicleModel != "", "vehicle_model", "must be provided")
	v.Check(r.PlateNumber != "", "plate_number", "must be provided")
}

type VerifyDriverRequest struct {
	Verified bool `json:"verified"`
}
