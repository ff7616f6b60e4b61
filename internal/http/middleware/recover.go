package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/http/response"
)

// Recover garante resposta sanitizada em caso de panic.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger := log.Ctx(r.Context())
				if logger.GetLevel() == zerolog.Disabled {
					logger = &log.Logger
				}
				logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("panic recuperado")
				response.Error(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
