package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureauthx/secureauthx"
)

type stubValidator struct {
	users map[string]*secureauthx.IdentityView
}

func (s stubValidator) ValidateAccess(_ context.Context, token string) (*secureauthx.IdentityView, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, secureauthx.ErrUnauthorized
}

func (s stubValidator) RequireAdmin(ctx context.Context, token string) (*secureauthx.IdentityView, error) {
	u, err := s.ValidateAccess(ctx, token)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin {
		return nil, secureauthx.ErrAdminRequired
	}
	return u, nil
}

func newStub() stubValidator {
	return stubValidator{users: map[string]*secureauthx.IdentityView{
		"user-token":  {ID: 1, Email: "user@example.com", IsActive: true},
		"admin-token": {ID: 2, Email: "admin@example.com", IsActive: true, IsAdmin: true},
	}}
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, header string) (*httptest.ResponseRecorder, *secureauthx.IdentityView) {
	t.Helper()
	var seen *secureauthx.IdentityView
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestGuard(t *testing.T) {
	mw := Guard(newStub())

	rec, id := serve(t, mw, "Bearer user-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, id)
	assert.Equal(t, int64(1), id.ID)

	rec, _ = serve(t, mw, "bearer user-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer nope"} {
		rec, id = serve(t, mw, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Nil(t, id)
	}
}

func TestRequireAdmin(t *testing.T) {
	mw := RequireAdmin(newStub())

	rec, _ := serve(t, mw, "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, id := serve(t, mw, "Bearer admin-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, id)
	assert.True(t, id.IsAdmin)

	rec, _ = serve(t, mw, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardNilValidator(t *testing.T) {
	rec, _ := serve(t, Guard(nil), "Bearer user-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
