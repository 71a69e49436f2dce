package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/safarigo/ridehail/internal/domain/models"
	t "github.com/safarigo/ridehail/internal/domain/types"
)

type envelope map[string]any

// principal pulls the authenticated caller resolved by the auth
// middleware. Routes registered through RequireRoles always have one.
func principal(r *http.Request) models.Principal {
	p, _ := models.PrincipalFromContext(r.Context())
	return p
}

// idempotencyKey prefers the body-supplied key and falls back to the
// Idempotency-Key header.
func idempotencyKey(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.Header.Get("Idempotency-Key")
}

// readLimit parses the optional ?limit query parameter, falling back
// to def when absent or unparseable.
func readLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Use http.MaxBytesReader() to limit the size of the request body to 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	// Decode the request body to the destination.
	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	// A second Decode() call detects trailing data after the first
	// JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err,
		t.ErrTripNotFound,
		t.ErrDriverNotFound,
		t.ErrOfferNotFound,
		t.ErrTokenNotFound,
		t.ErrDriverProfileMissing,
		t.ErrPinSessionNotFound):
		return http.StatusNotFound
	case IsOneOf(err,
		t.ErrRoleNotAllowed,
		t.ErrTripAccessDenied,
		t.ErrNotAssignedDriver,
		t.ErrNotTokenCreator,
		t.ErrNotTripRider,
		t.ErrOfferNotOwned):
		return http.StatusForbidden
	case IsOneOf(err,
		t.ErrDriverNotVerified,
		t.ErrTripAlreadyFinished,
		t.ErrTripNotCompleted,
		t.ErrTripNoDriver,
		t.ErrTripAlreadyRated,
		t.ErrInvalidTransition,
		t.ErrOfferAlready,
		t.ErrCannotStartTrip):
		return http.StatusConflict
	case IsOneOf(err, t.ErrTokenRevoked, t.ErrTokenExpired, t.ErrPinExpired):
		return http.StatusGone
	case IsOneOf(err, t.ErrPinAttemptsExceeded):
		return http.StatusTooManyRequests
	case IsOneOf(err,
		t.ErrPinRequired,
		t.ErrPinMismatch,
		t.ErrInvalidRatingScore,
		t.ErrImplausibleLocation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
