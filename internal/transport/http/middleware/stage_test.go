package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func withPrincipal(p session.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(WithPrincipal(req.Context(), p))
}

func TestRequire_NoPrincipal(t *testing.T) {
	rr := httptest.NewRecorder()
	Require(session.RequireVerified)(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequire_Unverified(t *testing.T) {
	rr := httptest.NewRecorder()
	req := withPrincipal(session.Principal{Identity: domain.PublicIdentity{UserID: "u1"}})
	Require(session.RequireVerified)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "verify your email")
}

func TestRequire_Verified(t *testing.T) {
	rr := httptest.NewRecorder()
	req := withPrincipal(session.Principal{Identity: domain.PublicIdentity{UserID: "u1", Verified: true}})
	Require(session.RequireVerified)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequire_WrongRole(t *testing.T) {
	rr := httptest.NewRecorder()
	req := withPrincipal(session.Principal{Identity: domain.PublicIdentity{Role: domain.RoleUser}})
	Require(session.RequireRole(domain.RoleAdmin))(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
