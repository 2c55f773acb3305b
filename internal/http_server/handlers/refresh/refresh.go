package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"fastdo_auth/internal/http_server/handlers"
	resp "fastdo_auth/internal/lib/api/response"
	"fastdo_auth/internal/models"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenRotator interface {
	RefreshToken(ctx context.Context, rawRefreshToken string) (models.TokenPair, error)
}

// New godoc
// @Summary      Обновление токенов
// @Description  Обменивает refresh токен на новую пару. Старый refresh токен после этого недействителен.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  resp.Response
// @Router       /auth/refresh [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	rotator TokenRotator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		pair, err := rotator.RefreshToken(ctx, req.RefreshToken)
		if err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("tokens refreshed")

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}
