package changePassword

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"

	"github.com/go-playground/validator/v10"
)

type Request struct {
	CurrentPass string `json:"current_password" validate:"required,maxbytes=72"`
	NewPass     string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	changer PasswordChanger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.changePassword.New"

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

		if err := changer.ChangePassword(ctx, userID, req.CurrentPass, req.NewPass); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("password changed", slog.Int64("uid", userID))

		handlers.ResponseOK(w, r)
	}
}
