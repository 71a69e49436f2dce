package handler

import (
	"context"
	"net/http"

	"github.com/safarigo/ridehail/internal/adapter/http/handler/dto"
	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/service/trip"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
	"github.com/safarigo/ridehail/pkg/validator"
)

type Driver struct {
	service DriverService
	l       logger.Logger
}

type DriverService interface {
	SetDriverStatus(ctx context.Context, p models.Principal, in trip.StatusInput) (models.DriverStatus, error)
	UpdateDriverLocation(ctx context.Context, p models.Principal, in trip.LocationInput) (models.DriverStatus, error)
	ListDriverOffers(ctx context.Context, p models.Principal) ([]models.DispatchOffer, error)
	RespondToOffer(ctx context.Context, p models.Principal, offerID string, accept bool) (models.DispatchOffer, error)
	DriverDashboard(ctx context.Context, p models.Principal) (trip.Dashboard, error)
	ListNearbyDrivers(ctx context.Context, p models.Principal, in trip.NearbyInput) (trip.NearbyResult, error)
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

// Status godoc
// @Summary      Set availability
// @Description  Toggles the driver online or offline, optionally with a starting position
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        request  body      dto.DriverStatusRequest  true  "Desired status"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/drivers/status [post]
func (h *Driver) Status(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_status")

	var req dto.DriverStatusRequest
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

	status, err := h.service.SetDriverStatus(ctx, principal(r), trip.StatusInput{
		IsOnline: req.IsOnline,
		Lat:      req.Latitude,
		Lng:      req.Longitude,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver status", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver status updated", "driver_id", status.DriverID, "is_online", status.IsOnline)
}

// Location godoc
// @Summary      Report position
// @Description  Records a driver position report, rejecting implausible jumps
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        request  body      dto.DriverLocationRequest  true  "Position report"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/drivers/location [post]
func (h *Driver) Location(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_driver_location")

	var req dto.DriverLocationRequest
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

	status, err := h.service.UpdateDriverLocation(ctx, principal(r), trip.LocationInput{
		Lat:     req.Latitude,
		Lng:     req.Longitude,
		Heading: req.Heading,
		Speed:   req.Speed,
		TripID:  req.TripID,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update driver location", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Offers godoc
// @Summary      Pending offers
// @Description  Returns the driver's live dispatch offers
// @Tags         Drivers
// @Produce      json
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/drivers/offers [get]
func (h *Driver) Offers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_driver_offers")

	offers, err := h.service.ListDriverOffers(ctx, principal(r))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list offers", err)
		serviceErrorResponse(w, err)
		return
	}
	if offers == nil {
		offers = []models.DispatchOffer{}
	}

	if err := writeJSON(w, http.StatusOK, envelope{"offers": offers}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Respond godoc
// @Summary      Respond to an offer
// @Description  Accepts or declines a dispatch offer
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        offer_id  path      string                  true  "Offer ID"
// @Param        request   body      dto.RespondOfferRequest  true  "Decision"
// @Success      200       {object}  map[string]any
// @Failure      409       {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/drivers/offers/{offer_id}/respond [post]
func (h *Driver) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "respond_to_offer")

	var req dto.RespondOfferRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	offer, err := h.service.RespondToOffer(ctx, principal(r), r.PathValue("offer_id"), req.Accept)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to respond to offer", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"offer": offer}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "offer responded", "offer_id", offer.ID, "status", offer.Status)
}

// Dashboard godoc
// @Summary      Driver dashboard
// @Description  Aggregates the driver's profile, status, offers and trips
// @Tags         Drivers
// @Produce      json
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/drivers/dashboard [get]
func (h *Driver) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_dashboard")

	dashboard, err := h.service.DriverDashboard(ctx, principal(r))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to build dashboard", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"dashboard": dashboard}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// Nearby godoc
// @Summary      Nearby drivers
// @Description  Returns free verified drivers around a point, closest first
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        request  body      dto.NearbyDriversRequest  true  "Center point"
// @Success      200      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/nearby-drivers [post]
func (h *Driver) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_nearby_drivers")

	var req dto.NearbyDriversRequest
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

	radiusKm := req.RadiusKm
	if radiusKm == 0 {
		radiusKm = 5
	}
	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	result, err := h.service.ListNearbyDrivers(ctx, principal(r), trip.NearbyInput{
		Pickup:   models.GeoPoint{Lat: req.Latitude, Lng: req.Longitude},
		RadiusKm: radiusKm,
		Limit:    limit,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list nearby drivers", err)
		serviceErrorResponse(w, err)
		return
	}
	if result.Drivers == nil {
		result.Drivers = []models.NearbyDriver{}
	}

	if err := writeJSON(w, http.StatusOK, envelope{"nearby": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}
