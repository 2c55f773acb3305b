package logout

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"

	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SessionCloser interface {
	Logout(ctx context.Context, userID int64, rawRefreshToken string) error
}

// New godoc
// @Summary      Выход из системы
// @Description  Удаляет refresh токен текущего устройства. Неизвестный токен ошибкой не считается.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  resp.Response
// @Failure      401  {object}  resp.Response
// @Router       /auth/logout [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	closer SessionCloser,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := handlers.RequestLogger(log, op, r)

		userID, ok := handlers.UserID(w, r, log)
		if !ok {
			return
		}

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := closer.Logout(ctx, userID, req.RefreshToken); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("user logged out successfully", slog.Int64("uid", userID))

		handlers.ResponseOK(w, r)
	}
}
