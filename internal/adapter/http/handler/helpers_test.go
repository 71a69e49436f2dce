package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/safarigo/ridehail/internal/domain/types"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrTripNotFound, http.StatusNotFound},
		{types.ErrPinSessionNotFound, http.StatusNotFound},
		{types.ErrTripAccessDenied, http.StatusForbidden},
		{types.ErrOfferNotOwned, http.StatusForbidden},
		{types.ErrTripAlreadyRated, http.StatusConflict},
		{types.ErrDriverNotVerified, http.StatusConflict},
		{types.ErrTokenRevoked, http.StatusGone},
		{types.ErrTokenExpired, http.StatusGone},
		{types.ErrPinExpired, http.StatusGone},
		{types.ErrPinAttemptsExceeded, http.StatusTooManyRequests},
		{types.ErrPinMismatch, http.StatusBadRequest},
		{types.ErrImplausibleLocation, http.StatusBadRequest},
		{fmt.Errorf("something else entirely"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := GetCode(tc.err); got != tc.want {
			t.Fatalf("GetCode(%v): expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestGetCode_SeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w from CREATED to COMPLETED", types.ErrInvalidTransition)
	if got := GetCode(wrapped); got != http.StatusConflict {
		t.Fatalf("expected 409 for wrapped transition error, got %d", got)
	}

	wrapped = fmt.Errorf("%w ACCEPTED", types.ErrOfferAlready)
	if got := GetCode(wrapped); got != http.StatusConflict {
		t.Fatalf("expected 409 for wrapped offer error, got %d", got)
	}
}

func TestReadJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"late","bogus":true}`))

	err := readJSON(rec, req, &dst)
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestReadJSON_RejectsEmptyBody(t *testing.T) {
	var dst struct{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

	err := readJSON(rec, req, &dst)
	if err == nil || err.Error() != "body must not be empty" {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestReadJSON_RejectsTrailingData(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"a"}{"reason":"b"}`))

	err := readJSON(rec, req, &dst)
	if err == nil || err.Error() != "body must only contain a single JSON value" {
		t.Fatalf("expected single value error, got %v", err)
	}
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := writeJSON(rec, http.StatusCreated, envelope{"ok": true}, nil); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"ok": true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
