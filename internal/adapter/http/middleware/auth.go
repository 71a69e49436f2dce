package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
)

// Auth validates the bearer JWT and injects the resolved principal
// into the context. Requests without credentials pass through as
// anonymous; protected endpoints reject them in RequireRoles.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(models.WithPrincipal(ctx, models.Principal{})))
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := h.resolvePrincipal(token)
		if err != nil {
			h.log.Error(wrap.ErrorCtx(ctx, err), "failed to authenticate request", err)
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithPrincipal(ctx, principal)))
	})
}

// RequireRoles wraps a handler and allows only principals with one of
// the given roles.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := models.PrincipalFromContext(r.Context())
		if !ok || principal.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[principal.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// resolvePrincipal verifies the token signature and pulls the identity
// out of the "sub" and "role" claims.
func (h *Middleware) resolvePrincipal(token string) (models.Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return models.Principal{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.Principal{}, fmt.Errorf("unexpected claims type")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Principal{}, fmt.Errorf("token has no subject")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid subject %q", sub)
	}

	role, _ := claims["role"].(string)
	switch types.UserRole(role) {
	case types.RoleRider, types.RoleDriver, types.RoleAdmin:
	default:
		return models.Principal{}, fmt.Errorf("invalid role %q", role)
	}

	return models.Principal{ID: id, Role: types.UserRole(role)}, nil
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
