package handler

import (
	"context"
	"net/http"

	"github.com/safarigo/ridehail/internal/adapter/http/handler/dto"
	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/service/safety"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
	"github.com/safarigo/ridehail/pkg/validator"
)

type Safety struct {
	service SafetyService
	l       logger.Logger
}

type SafetyService interface {
	CreateShareToken(tripID, createdByID string) (safety.ShareTokenResult, error)
	RevokeShareToken(token, requestedByID string) (models.TripShareToken, error)
	ResolveShareToken(token string) (safety.SharedTripView, error)
	ReportIncident(ctx context.Context, in models.SafetyIncident) safety.IncidentResult
}

func NewSafety(service SafetyService, l logger.Logger) *Safety {
	return &Safety{
		service: service,
		l:       l,
	}
}

// Share godoc
// @Summary      Share a trip
// @Description  Creates a time-limited public link to follow the trip
// @Tags         Safety
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      201      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/share [post]
func (h *Safety) Share(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "share_trip")

	result, err := h.service.CreateShareToken(r.PathValue("trip_id"), principal(r).ActorID())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create share token", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"share": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "share token created", "trip_id", r.PathValue("trip_id"))
}

// Revoke godoc
// @Summary      Revoke a share link
// @Description  Invalidates a share token, only its creator may revoke it
// @Tags         Safety
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200    {object}  map[string]any
// @Failure      403    {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/share/{token} [delete]
func (h *Safety) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "revoke_share_token")

	revoked, err := h.service.RevokeShareToken(r.PathValue("token"), principal(r).ActorID())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to revoke share token", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"revoked_at": revoked.RevokedAt}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "share token revoked", "trip_id", revoked.TripID)
}

// Resolve godoc
// @Summary      Follow a shared trip
// @Description  Returns a reduced view of the trip for share link holders, no authentication required
// @Tags         Safety
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200    {object}  map[string]any
// @Failure      410    {object}  map[string]any
// @Router       /v1/share/{token} [get]
func (h *Safety) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "resolve_share_token")

	view, err := h.service.ResolveShareToken(r.PathValue("token"))
	if err != nil {
		h.l.Warn(ctx, "failed to resolve share token", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"shared": view}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// ReportIncident godoc
// @Summary      Report an incident
// @Description  Files an SOS or support report for a trip and returns support contacts
// @Tags         Safety
// @Accept       json
// @Produce      json
// @Param        trip_id  path      string                     true  "Trip ID"
// @Param        request  body      dto.ReportIncidentRequest  true  "Incident report"
// @Success      201      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Security     BearerAuth
// @Router       /v1/trips/{trip_id}/incidents [post]
func (h *Safety) ReportIncident(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "report_incident")

	var req dto.ReportIncidentRequest
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

	p := principal(r)
	tripID := r.PathValue("trip_id")
	result := h.service.ReportIncident(ctx, models.SafetyIncident{
		TripID:       tripID,
		ReporterID:   p.ActorID(),
		ReporterRole: p.Role,
		Category:     types.IncidentCategory(req.Category),
		Description:  req.Description,
	})

	if err := writeJSON(w, http.StatusCreated, envelope{"incident": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "incident reported", "trip_id", tripID, "category", req.Category)
}
