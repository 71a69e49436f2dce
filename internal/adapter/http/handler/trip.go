package handler

import (
	"context"
	"net/http"

	"github.com/safarigo/ridehail/internal/adapter/http/handler/dto"
	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/service/ratings"
	"github.com/safarigo/ridehail/internal/service/trip"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
	"github.com/safarigo/ridehail/pkg/validator"
)

type Trip struct {
	service TripService
	l       logger.Logger
}

type TripService interface {
	EstimateFare(in trip.EstimateInput) trip.FareEstimate
	CreateTrip(ctx context.Context, p models.Principal, in trip.CreateTripInput) (models.Trip, error)
	GetTrip(ctx context.Context, p models.Principal, tripID string) (trip.TripView, error)
	ListRiderTrips(ctx context.Context, p models.Principal, limit int) ([]models.Trip, error)
	ListTripLocations(ctx context.Context, p models.Principal, tripID string, limit int) ([]models.TripLocation, error)
	DriverArrived(ctx context.Context, p models.Principal, tripID string) (trip.TripView, error)
	StartTrip(ctx context.Context, p models.Principal, tripID, pin, key string) (models.Trip, error)
	CompleteTrip(ctx context.Context, p models.Principal, tripID, key string) (trip.CompleteResult, error)
	CancelTrip(ctx context.Context, p models.Principal, tripID, reason, key string) (models.Trip, error)
	SubmitRating(ctx context.Context, p models.Principal, tripID string, score int, feedback string) (ratings.SubmitResult, error)
}

func NewTrip(service TripService, l logger.Logger) *Trip {
	return &Trip{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Request a trip
// @Description  Creates a trip with a snapshotted fare and starts driver matching
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateTripRequest  true  "Trip request"
// @Success      201      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips [post]
func (h *Trip) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_trip")

	var req dto.CreateTripRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	created, err := h.service.CreateTrip(ctx, principal(r), trip.CreateTripInput{
		Pickup:          models.GeoPoint{Lat: req.PickupLatitude, Lng: req.PickupLongitude},
		Dropoff:         models.GeoPoint{Lat: req.DropoffLatitude, Lng: req.DropoffLongitude},
		PickupAddress:   req.PickupAddress,
		DropoffAddress:  req.DropoffAddress,
		DistanceMeters:  req.DistanceMeters,
		DurationSeconds: req.DurationSeconds,
		RideType:        types.RideType(req.RideType),
		PaymentMethod:   types.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  idempotencyKey(r, req.IdempotencyKey),
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create trip", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"trip": created}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "trip created", "trip_id", created.ID, "state", created.State)
}

// Estimate godoc
// @Summary      Estimate a fare
// @Description  Quotes the fare for a prospective trip without creating one
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request  body      dto.EstimateFareRequest  true  "Route to quote"
// @Success      200      {object}  map[string]any
// @Router       /v1/fare/estimate [post]
func (h *Trip) Estimate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "estimate_fare")

	var req dto.EstimateFareRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	estimate := h.service.EstimateFare(trip.EstimateInput{
		Pickup:          models.GeoPoint{Lat: req.PickupLatitude, Lng: req.PickupLongitude},
		Dropoff:         models.GeoPoint{Lat: req.DropoffLatitude, Lng: req.DropoffLongitude},
		DistanceMeters:  req.DistanceMeters,
		DurationSeconds: req.DurationSeconds,
		RideType:        types.RideType(req.RideType),
	})

	if err := writeJSON(w, http.StatusOK, envelope{"estimate": estimate}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Get godoc
// @Summary      Get a trip
// @Description  Returns the trip with its audit trail and assigned driver
// @Tags         Trips
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id} [get]
func (h *Trip) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_trip")

	view, err := h.service.GetTrip(ctx, principal(r), r.PathValue("trip_id"))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get trip", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": view}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// History godoc
// @Summary      Rider trip history
// @Description  Returns the caller's trips, newest first
// @Tags         Trips
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of trips"
// @Success      200    {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips [get]
func (h *Trip) History(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_history")

	trips, err := h.service.ListRiderTrips(ctx, principal(r), readLimit(r, 20))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list trips", err)
		serviceErrorResponse(w, err)
		return
	}
	if trips == nil {
		trips = []models.Trip{}
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trips": trips}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Locations godoc
// @Summary      Trip breadcrumbs
// @Description  Returns the most recent location reports recorded for the trip
// @Tags         Trips
// @Produce      json
// @Param        trip_id  path      string  true   "Trip ID"
// @Param        limit    query     int     false  "Maximum number of points"
// @Success      200      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/locations [get]
func (h *Trip) Locations(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_locations")

	points, err := h.service.ListTripLocations(ctx, principal(r), r.PathValue("trip_id"), readLimit(r, 50))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list trip locations", err)
		serviceErrorResponse(w, err)
		return
	}
	if points == nil {
		points = []models.TripLocation{}
	}

	if err := writeJSON(w, http.StatusOK, envelope{"locations": points}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Arrived godoc
// @Summary      Driver arrived at pickup
// @Description  Marks the assigned driver at the pickup point
// @Tags         Trips
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/arrived [post]
func (h *Trip) Arrived(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_arrived")

	view, err := h.service.DriverArrived(ctx, principal(r), r.PathValue("trip_id"))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to mark driver arrived", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": view}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver arrived", "trip_id", view.ID, "state", view.State)
}

// Start godoc
// @Summary      Start a trip
// @Description  Moves the trip into progress, verifying the rider's PIN when required
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        trip_id  path      string                true  "Trip ID"
// @Param        request  body      dto.StartTripRequest  true  "Start parameters"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Failure      429      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/start [post]
func (h *Trip) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "start_trip")

	var req dto.StartTripRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	started, err := h.service.StartTrip(ctx, principal(r), r.PathValue("trip_id"), req.Pin, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to start trip", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": started}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "trip started", "trip_id", started.ID)
}

// Complete godoc
// @Summary      Complete a trip
// @Description  Finishes the ride, frees the driver and captures the fare
// @Tags         Trips
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/complete [post]
func (h *Trip) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "complete_trip")

	result, err := h.service.CompleteTrip(ctx, principal(r), r.PathValue("trip_id"), idempotencyKey(r, ""))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to complete trip", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"result": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "trip completed", "trip_id", result.Trip.ID)
}

// Cancel godoc
// @Summary      Cancel a trip
// @Description  Cancels a non-terminal trip, applying a cancellation fee when a driver was already assigned
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        trip_id  path      string                 true  "Trip ID"
// @Param        request  body      dto.CancelTripRequest  true  "Cancellation reason"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/cancel [post]
func (h *Trip) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_trip")

	var req dto.CancelTripRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	cancelled, err := h.service.CancelTrip(ctx, principal(r), r.PathValue("trip_id"), req.Reason, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel trip", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": cancelled}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "trip cancelled", "trip_id", cancelled.ID, "state", cancelled.State)
}

// Rate godoc
// @Summary      Rate a trip
// @Description  Submits the rider's rating for a completed trip
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        trip_id  path      string                   true  "Trip ID"
// @Param        request  body      dto.SubmitRatingRequest  true  "Rating"
// @Success      201      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/rating [post]
func (h *Trip) Rate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "rate_trip")

	var req dto.SubmitRatingRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	result, err := h.service.SubmitRating(ctx, principal(r), r.PathValue("trip_id"), req.Score, req.Feedback)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to submit rating", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"rating": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "rating submitted", "trip_id", r.PathValue("trip_id"), "score", req.Score)
}
