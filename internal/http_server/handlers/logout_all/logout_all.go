package logoutAll

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"
)

type SessionsCloser interface {
	LogoutFromAllDevices(ctx context.Context, userID int64) error
}

// New godoc
// @Summary      Выход на всех устройствах
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  resp.Response
// @Router       /auth/logout-all [post]
func New(log *slog.Logger, closer SessionsCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logoutAll.New"

		log := handlers.RequestLogger(log, op, r)

		userID, ok := handlers.UserID(w, r, log)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := closer.LogoutFromAllDevices(ctx, userID); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("user logged out from all devices", slog.Int64("uid", userID))

		handlers.ResponseOK(w, r)
	}
}
