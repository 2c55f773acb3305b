package changeEmail

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

type EmailChanger interface {
	RequestEmailChange(ctx context.Context, userID int64, newEmail string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	changer EmailChanger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.changeEmail.New"

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

		if err := changer.RequestEmailChange(ctx, userID, req.Email); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("email change requested", slog.Int64("uid", userID))

		handlers.ResponseOK(w, r)
	}
}
