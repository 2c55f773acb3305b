package confirmEmail

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"
	resp "fastdo_auth/internal/lib/api/response"
	"fastdo_auth/internal/models"

	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Success bool   `json:"success"`
	Email   string `json:"email,omitempty"`
}

type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, rawToken string) (models.ConfirmResult, error)
}

// New godoc
// @Summary      Подтверждение почты
// @Description  Повторный переход по ссылке или просроченная ссылка возвращают success=false, а не ошибку.
// @Tags         auth
// @Produce      json
// @Param        token  query  string  true  "Токен из письма"
// @Success      200  {object}  Response
// @Failure      401  {object}  resp.Response
// @Router       /auth/confirm-email [get]
func New(log *slog.Logger, confirmer EmailConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirmEmail.New"

		log := handlers.RequestLogger(log, op, r)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Info("missing confirmation token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		res, err := confirmer.ConfirmEmail(ctx, token)
		if err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("email confirmation handled", slog.Bool("success", res.Success))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Success:  res.Success,
			Email:    res.Email,
		})
	}
}
