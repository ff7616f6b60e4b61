package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// HTTPRecorder recebe status e duração de cada requisição.
type HTTPRecorder interface {
	RecordHTTPRequest(statusCode int, duration time.Duration)
}

// Logging escreve logs estruturados por requisição e disponibiliza um logger
// com request_id via log.Ctx para os handlers. recorder pode ser nil.
func Logging(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			logger := log.With().Str("request_id", reqID).Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			next.ServeHTTP(ww, r)

			dur := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if recorder != nil {
				recorder.RecordHTTPRequest(status, dur)
			}

			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event = event.Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", status).Dur("duration", dur).Str("ip", clientIP(r))

			if ua := r.Header.Get("User-Agent"); ua != "" {
				event = event.Str("user_agent", ua)
			}

			event.Msg("http_request")
		})
	}
}
