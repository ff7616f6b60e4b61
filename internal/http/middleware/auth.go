package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/http/response"
)

type contextKey string

const (
	ContextKeySubject   contextKey = "subject"
	ContextKeySessionID contextKey = "session_id"
)

// TokenValidator confere tokens de sessão (assinatura e revogação).
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

// Auth aceita o cookie de sessão ou um header Bearer e injeta o email do
// representante no contexto.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
				return
			}

			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "AUTH", "sessão inválida", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Email())
			ctx = context.WithValue(ctx, ContextKeySessionID, claims.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken extrai o token do header Authorization ou do cookie de sessão.
func SessionToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSubject injeta o email do representante no contexto (testes e CLI).
func WithSubject(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, email)
}

// GetSubject recupera o email do representante autenticado.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetSessionID recupera o jti da sessão.
func GetSessionID(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySessionID).(string)
	return val
}
