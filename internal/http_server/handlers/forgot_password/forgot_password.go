package forgotPassword

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"

	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetRequester interface {
	ForgotPassword(ctx context.Context, email string) error
}

// New godoc
// @Summary      Запрос на сброс пароля
// @Description  Всегда отвечает 200, если запрос корректен. Письмо уходит только существующему пользователю.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  resp.Response
// @Router       /auth/forgot-password [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	requester ResetRequester,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.forgotPassword.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := requester.ForgotPassword(ctx, req.Email); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		handlers.ResponseOK(w, r)
	}
}
