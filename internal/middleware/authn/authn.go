package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"fastdo_auth/internal/lib/jwt"
	resp "fastdo_auth/internal/lib/api/response"
	"fastdo_auth/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type TokenParser interface {
	ParseAccessToken(token string) (jwt.AccessClaims, error)
}

// * New пропускает запрос дальше только с валидным access токеном в заголовке
// Authorization: Bearer <token>. Claims кладутся в контекст.
func New(log *slog.Logger, parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Info("missing bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("missing access token"))

				return
			}

			claims, err := parser.ParseAccessToken(token)
			if err != nil {
				log.Info("invalid access token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid token"))

				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// * ClaimsFromContext возвращает claims, положенные middleware.
func ClaimsFromContext(ctx context.Context) (jwt.AccessClaims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(jwt.AccessClaims)
	return claims, ok
}

func WithClaims(ctx context.Context, claims jwt.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
