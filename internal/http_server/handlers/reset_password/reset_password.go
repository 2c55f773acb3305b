package resetPassword

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"

	"github.com/go-playground/validator/v10"
)

type Request struct {
	Token string `json:"token" validate:"required"`
	Pass  string `json:"password" validate:"required,min=8,maxbytes=72"`
}

type PasswordResetter interface {
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

// New godoc
// @Summary      Сброс пароля
// @Description  Устанавливает новый пароль по токену из письма и завершает все сессии пользователя.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  resp.Response
// @Failure      401  {object}  resp.Response
// @Router       /auth/reset-password [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	resetter PasswordResetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resetPassword.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := resetter.ResetPassword(ctx, req.Token, req.Pass); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("password reset")

		handlers.ResponseOK(w, r)
	}
}
