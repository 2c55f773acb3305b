package logout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fastdo_auth/internal/lib/jwt"
	"fastdo_auth/internal/http_server/handlers"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/middleware/authn"
)

type closerStub struct {
	userID int64
	token  string
}

func (c *closerStub) Logout(_ context.Context, userID int64, raw string) error {
	c.userID = userID
	c.token = raw
	return nil
}

func TestLogoutHandler(t *testing.T) {
	stub := &closerStub{}
	h := New(sl.NewDiscardLogger(), handlers.NewValidator(), stub)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"rt"}`))
	req = req.WithContext(authn.WithClaims(req.Context(), jwt.AccessClaims{UserID: 5}))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(5), stub.userID)
	assert.Equal(t, "rt", stub.token)
}

func TestLogoutHandler_RequiresClaims(t *testing.T) {
	stub := &closerStub{}
	h := New(sl.NewDiscardLogger(), handlers.NewValidator(), stub)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"rt"}`))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, stub.token)
}
