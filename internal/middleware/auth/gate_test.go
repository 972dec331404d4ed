package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpenko/stores_api/internal/service/token"
)

type stubRegistry struct {
	revoked map[string]bool
	err     error
}

func (s *stubRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = map[string]bool{}
	}
	s.revoked[jti] = true
	return nil
}

func (s *stubRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

func newTestGate(reg *stubRegistry) *Gate {
	return &Gate{
		Tokens:   &token.Service{Secret: []byte("test-jwt-secret")},
		Registry: reg,
	}
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, bearer string, extra ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}

	h := handler
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	h = mw(h)

	require.NoError(t, h(c))
	return rec, reached
}

func TestGate_MissingToken(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	rec, reached := doRequest(t, g.RequireAuth, "")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization error!")
}

func TestGate_InvalidToken(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	rec, reached := doRequest(t, g.RequireAuth, "garbage")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestGate_ExpiredToken(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	expired := &token.Service{Secret: g.Tokens.Secret, AccessTTL: -time.Minute}
	raw, err := expired.IssueAccess(5, false, true)
	require.NoError(t, err)

	rec, reached := doRequest(t, g.RequireAuth, raw)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired!")
}

func TestGate_RevokedToken(t *testing.T) {
	t.Parallel()

	reg := &stubRegistry{}
	g := newTestGate(reg)
	raw, err := g.Tokens.IssueAccess(5, false, true)
	require.NoError(t, err)

	claims, err := g.Tokens.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, reg.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

	rec, reached := doRequest(t, g.RequireAuth, raw)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked!")
}

func TestGate_RegistryError_FailsClosed(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{err: errors.New("registry down")})
	raw, err := g.Tokens.IssueAccess(5, false, true)
	require.NoError(t, err)

	rec, reached := doRequest(t, g.RequireAuth, raw)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked!")
}

func TestGate_ValidToken_Allows(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	raw, err := g.Tokens.IssueAccess(5, false, true)
	require.NoError(t, err)

	rec, reached := doRequest(t, g.RequireAuth, raw)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_RequireFresh_RejectsStale(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	raw, err := g.Tokens.IssueAccess(5, false, false)
	require.NoError(t, err)

	rec, reached := doRequest(t, g.RequireAuth, raw, g.RequireFresh)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "fresh token required")
}

func TestGate_RequireFresh_AllowsFresh(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})
	raw, err := g.Tokens.IssueAccess(5, false, true)
	require.NoError(t, err)

	_, reached := doRequest(t, g.RequireAuth, raw, g.RequireFresh)
	assert.True(t, reached)
}

func TestGate_RequireAdmin(t *testing.T) {
	t.Parallel()

	g := newTestGate(&stubRegistry{})

	user, err := g.Tokens.IssueAccess(5, false, true)
	require.NoError(t, err)
	rec, reached := doRequest(t, g.RequireAuth, user, g.RequireAdmin)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin privilege required")

	admin, err := g.Tokens.IssueAccess(1, true, true)
	require.NoError(t, err)
	_, reached = doRequest(t, g.RequireAuth, admin, g.RequireAdmin)
	assert.True(t, reached)
}
