package resendConfirmation

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

type ConfirmationResender interface {
	ResendConfirmation(ctx context.Context, email string) error
}

// New godoc
// @Summary      Повторная отправка письма с подтверждением
// @Description  Отвечает одинаково для любой почты, чтобы не раскрывать наличие аккаунта.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  resp.Response
// @Router       /auth/confirm-email/resend [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	resender ConfirmationResender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendConfirmation.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := resender.ResendConfirmation(ctx, req.Email); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		handlers.ResponseOK(w, r)
	}
}
