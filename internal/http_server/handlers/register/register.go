package register

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
	Email           string `json:"email" validate:"required,email"`
	Pass            string `json:"password" validate:"required,min=8,maxbytes=72"`
	TermsAccepted   bool   `json:"terms_accepted"`
	PrivacyAccepted bool   `json:"privacy_accepted"`
}

type Response struct {
	resp.Response
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type Registrar interface {
	Register(ctx context.Context, email, pass string, termsAccepted, privacyAccepted bool) (models.User, error)
}

// New godoc
// @Summary      Регистрация
// @Description  Создает пользователя с неподтвержденной почтой и отправляет письмо с подтверждением.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      409  {object}  resp.Response
// @Router       /auth/register [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	registrar Registrar,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log := handlers.RequestLogger(log, op, r)

		var req Request

		if !handlers.DecodeRequest(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		user, err := registrar.Register(ctx, req.Email, req.Pass, req.TermsAccepted, req.PrivacyAccepted)
		if err != nil {
			handlers.WriteError(w, r, log, err)

			return
		}

		log.Info("user registered", slog.Int64("uid", user.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			UserID:   user.ID,
			Email:    user.Email,
		})
	}
}
