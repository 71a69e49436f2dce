package dto

import (
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/pkg/validator"
)

type ReportIncidentRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (r *ReportIncidentRequest) Validate(v *validator.Validator) {
	switch types.IncidentCategory(r.Category) {
	case types.IncidentSOS, types.IncidentSupport:
	default:
		v.AddError("category", "must be SOS or SUPPORT")
	}
	v.Check(r.Description != "", "description", "must be provided")
	v.Check(len(r.Description) <= 2000, "description", "must not be more than 2000 characters long")
}
