// Package middlewarectx содержит HTTP middleware сервиса расписания:
// проверку JWT персонала, ограничение частоты запросов киоска
// и ключи контекста запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dojo-scheduler/internal/http/response"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/jwt"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ для имени сотрудника в контексте
	User Key = "username"
	// Role — ключ для роли сотрудника в контексте
	Role Key = "role"
)

// JWTMiddleware проверяет токен персонала из заголовка Authorization.
// Токены выдаёт бэк-офис; здесь выполняется только проверка подписи
// общим секретом. Имя и роль сотрудника кладутся в контекст запроса.
func JWTMiddleware(log *slog.Logger, maker jwt.Maker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Error("authorization header missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authorization header missing"))
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				log.Error("invalid authorization header format")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid authorization header format"))
				return
			}

			claims, err := maker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), User, claims.Username)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
