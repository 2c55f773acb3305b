package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fastdo_auth/internal/auth"
	resp "fastdo_auth/internal/lib/api/response"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const RequestTimeout = 5 * time.Second

// * NewValidator возвращает валидатор с тегом maxbytes (длина строки в байтах).
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", maxBytes)

	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}

	return len(fl.Field().String()) <= limit
}

// * RequestLogger добавляет к логгеру op и request_id текущего запроса.
func RequestLogger(log *slog.Logger, op string, r *http.Request) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// * DecodeRequest читает JSON тело и валидирует его. При ошибке ответ уже записан.
func DecodeRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return false
	}

	if err := validate.Struct(req); err != nil {
		log.Info("Invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)

		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			render.JSON(w, r, resp.ValidationError(validateErr))
		} else {
			render.JSON(w, r, resp.Error("Invalid request"))
		}

		return false
	}

	return true
}

// * WriteError переводит ошибку сервиса в HTTP статус. Детали внутренних ошибок клиенту не уходят.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := Classify(err)

	if status == http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}

	render.Status(r, status)
	render.JSON(w, r, resp.Error(msg))
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, auth.ErrEmailChangeFailed):
		return http.StatusUnauthorized, "failed to send confirmation email"
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "email already taken"
	case errors.Is(err, auth.ErrRoleNotFound):
		return http.StatusNotFound, "role not found"
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, "password must not exceed 72 bytes"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// * UserID достает id пользователя, положенный authn middleware.
func UserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	claims, ok := authn.ClaimsFromContext(r.Context())
	if !ok {
		log.Warn("no claims in context, route is not behind authn")

		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, resp.Error("missing access token"))

		return 0, false
	}

	return claims.UserID, true
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.OK())
}
