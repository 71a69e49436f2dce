package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/pkg/logger"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret, sub string, role types.UserRole) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestMiddleware() *Middleware {
	return NewMiddleware(testSecret, logger.InitLogger("test", logger.LevelInfo))
}

func TestAuth_AnonymousPassesThrough(t *testing.T) {
	m := newTestMiddleware()

	var got models.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = models.PrincipalFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	m.Auth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !got.IsAnonymous() {
		t.Fatalf("expected anonymous principal, got %+v", got)
	}
}

func TestAuth_ResolvesPrincipalFromToken(t *testing.T) {
	m := newTestMiddleware()

	var got models.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = models.PrincipalFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, testSecret, "42", types.RoleRider))
	m.Auth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.ID != 42 || got.Role != types.RoleRider {
		t.Fatalf("unexpected principal: %+v", got)
	}
}

func TestAuth_RejectsBadSignature(t *testing.T) {
	m := newTestMiddleware()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "wrong-secret", "42", types.RoleRider))
	m.Auth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_RejectsUnknownRole(t *testing.T) {
	m := newTestMiddleware()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, testSecret, "42", "superuser"))
	m.Auth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoles_RejectsAnonymous(t *testing.T) {
	m := newTestMiddleware()

	handler := m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}, types.RoleRider)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trips", nil)
	req = req.WithContext(models.WithPrincipal(req.Context(), models.Principal{}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoles_RejectsWrongRole(t *testing.T) {
	m := newTestMiddleware()

	handler := m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}, types.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/drivers", nil)
	req = req.WithContext(models.WithPrincipal(req.Context(), models.Principal{ID: 7, Role: types.RoleDriver}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoles_AllowsMatchingRole(t *testing.T) {
	m := newTestMiddleware()

	called := false
	handler := m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, types.RoleDriver, types.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/drivers/dashboard", nil)
	req = req.WithContext(models.WithPrincipal(req.Context(), models.Principal{ID: 7, Role: types.RoleDriver}))
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler was not invoked")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
	}

	for _, tc := range tests {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Fatalf("header %q: unexpected error: %v", tc.header, err)
		}
		if got != tc.want {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}
