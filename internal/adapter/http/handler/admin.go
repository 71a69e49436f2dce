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

type Admin struct {
	service AdminService
	l       logger.Logger
}

type AdminService interface {
	RegisterDriver(ctx context.Context, p models.Principal, targetUserID int64, in trip.DriverProfileInput) (models.DriverProfile, error)
	VerifyDriver(ctx context.Context, p models.Principal, driverID string, verified bool) (models.DriverProfile, error)
}

func NewAdmin(service AdminService, l logger.Logger) *Admin {
	return &Admin{
		service: service,
		l:       l,
	}
}

// RegisterDriver godoc
// @Summary      Register a driver
// @Description  Creates or refreshes a driver profile for a user account
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RegisterDriverRequest  true  "Driver profile"
// @Success      201      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/admin/drivers [post]
func (h *Admin) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "register_driver")

	var req dto.RegisterDriverRequest
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

	profile, err := h.service.RegisterDriver(ctx, principal(r), req.UserID, trip.DriverProfileInput{
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleColor: req.VehicleColor,
		PlateNumber:  req.PlateNumber,
		Verified:     req.Verified,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register driver", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"driver": profile}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver registered", "driver_id", profile.DriverID, "user_id", profile.UserID)
}

// VerifyDriver godoc
// @Summary      Verify a driver
// @Description  Sets the driver's verification flag
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        driver_id  path      string                   true  "Driver ID"
// @Param        request    body      dto.VerifyDriverRequest  true  "Verification flag"
// @Success      200        {object}  map[string]any
// @Failure      404        {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/admin/drivers/{driver_id}/verify [post]
func (h *Admin) VerifyDriver(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "verify_driver")

	var req dto.VerifyDriverRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	profile, err := h.service.VerifyDriver(ctx, principal(r), r.PathValue("driver_id"), req.Verified)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to verify driver", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"driver": profile}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver verification updated", "driver_id", profile.DriverID, "verified", profile.Verified)
}
