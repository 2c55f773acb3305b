package login

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
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required,maxbytes=72"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Authenticator interface {
	Login(ctx context.Context, email, pass string) (models.TokenPair, error)
}

// New godoc
// @Summary      Вход в систему
// @Description  Для подтвержденного и активного пользователя возвращает access и refresh токены.
// @Description  На неверную почту, пароль или неподтвержденную почту отвечает одинаковой ошибкой.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      401  {object}  resp.Response
// @Router       /auth/login [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authenticator Authenticator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		pair, err := authenticator.Login(ctx, req.Email, req.Pass)
		if err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("User logged in successfully")

		ResponseOK(w, r, pair)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, pair models.TokenPair) {
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
