package confirmEmailChange

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"
	resp "fastdo_auth/internal/lib/api/response"

	"github.com/go-chi/render"
)

type EmailChangeConfirmer interface {
	ConfirmEmailChange(ctx context.Context, rawToken string) error
}

func New(log *slog.Logger, confirmer EmailChangeConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirmEmailChange.New"

		log := handlers.RequestLogger(log, op, r)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Info("missing email change token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := confirmer.ConfirmEmailChange(ctx, token); err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("email change confirmed")

		handlers.ResponseOK(w, r)
	}
}
