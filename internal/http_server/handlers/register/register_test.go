package register

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastdo_auth/internal/auth"
	"fastdo_auth/internal/http_server/handlers"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/models"
)

type registrarStub struct {
	err   error
	terms bool
}

func (s *registrarStub) Register(_ context.Context, email, _ string, terms, _ bool) (models.User, error) {
	s.terms = terms
	if s.err != nil {
		return models.User{}, s.err
	}
	return models.User{ID: 11, Email: email}, nil
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"created", `{"email":"dave@example.com","password":"Passw0rd!","terms_accepted":true}`, nil, http.StatusCreated},
		{"duplicate", `{"email":"dave@example.com","password":"Passw0rd!"}`, fmt.Errorf("auth.Register: %w", auth.ErrUserExists), http.StatusConflict},
		{"role missing", `{"email":"dave@example.com","password":"Passw0rd!"}`, fmt.Errorf("auth.Register: %w", auth.ErrRoleNotFound), http.StatusNotFound},
		{"short password", `{"email":"dave@example.com","password":"short"}`, nil, http.StatusBadRequest},
		{"password over bcrypt limit", `{"email":"dave@example.com","password":"` + strings.Repeat("x", 73) + `"}`, nil, http.StatusBadRequest},
		{"multibyte password over bcrypt limit", `{"email":"dave@example.com","password":"` + strings.Repeat("é", 40) + `"}`, nil, http.StatusBadRequest},
		{"service rejects long password", `{"email":"dave@example.com","password":"Passw0rd!"}`, fmt.Errorf("auth.Register: %w", auth.ErrPasswordTooLong), http.StatusBadRequest},
		{"bad email", `{"email":"dave","password":"Passw0rd!"}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &registrarStub{err: tt.err}
			h := New(sl.NewDiscardLogger(), handlers.NewValidator(), stub)

			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)

			if tt.status == http.StatusCreated {
				var body Response
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, int64(11), body.UserID)
				assert.Equal(t, "dave@example.com", body.Email)
				assert.True(t, stub.terms)
			}
		})
	}
}
