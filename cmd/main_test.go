package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fastdo_auth/internal/auth"
	"fastdo_auth/internal/lib/jwt"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/lib/password"
	"fastdo_auth/internal/lib/verification"
)

func TestSetupRouter(t *testing.T) {
	svc := auth.New(
		sl.NewDiscardLogger(),
		nil,
		password.New(4),
		jwt.New("a", "r", time.Minute, time.Hour),
		verification.New("v", time.Hour),
		nil,
		0,
	)

	router := setupRouter(sl.NewDiscardLogger(), svc)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   string
		status int
	}{
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"logout without bearer", http.MethodPost, "/auth/logout", `{"refresh_token":"x"}`, "", http.StatusUnauthorized},
		{"logout-all with garbage bearer", http.MethodPost, "/auth/logout-all", "", "Bearer garbage", http.StatusUnauthorized},
		{"password change without bearer", http.MethodPost, "/auth/password", "{}", "", http.StatusUnauthorized},
		{"email change without bearer", http.MethodPost, "/auth/email", "{}", "", http.StatusUnauthorized},
		{"login validation", http.MethodPost, "/auth/login", `{"email":"nope"}`, "", http.StatusBadRequest},
		{"confirm without token", http.MethodGet, "/auth/confirm-email", "", "", http.StatusBadRequest},
		{"confirm email change without token", http.MethodGet, "/auth/email/confirm", "", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/auth/nope", "", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/auth/login", "", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}
