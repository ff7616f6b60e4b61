package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/config"
	httpmiddleware "github.com/fernandoldf/representa/internal/http/middleware"
	"github.com/fernandoldf/representa/internal/http/response"
	"github.com/fernandoldf/representa/internal/metrics"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/representante"
	"github.com/fernandoldf/representa/internal/service"
)

// maxBodyBytes limita o corpo JSON aceito pelo login.
const maxBodyBytes = 1 << 20

// StoreChecker é usado pelo /ready para confirmar que o arquivo de dados é legível.
type StoreChecker interface {
	Load(ctx context.Context) (*repo.Document, error)
}

// Deps agrupa as dependências do roteador.
type Deps struct {
	Config         *config.Config
	Store          StoreChecker
	Redis          *redis.Client
	Auth           *service.AuthService
	Representantes *representante.Service
	Metrics        *metrics.Collector
	Gatherer       prometheus.Gatherer
}

type Handler struct {
	cfg           *config.Config
	store         StoreChecker
	redis         *redis.Client
	authService   *service.AuthService
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Config == nil || deps.Store == nil || deps.Auth == nil || deps.Representantes == nil {
		return nil, errors.New("router: dependências obrigatórias ausentes")
	}
	cfg := deps.Config

	devCookies := cfg.DevCookies
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		cfg:           cfg,
		store:         deps.Store,
		redis:         deps.Redis,
		authService:   deps.Auth,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	repHandler := representante.NewHandler(deps.Representantes)

	var recorder httpmiddleware.HTTPRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(recorder))
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.SecurityHeaders)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		if deps.Gatherer != nil {
			public.Handle("/metrics", metrics.Handler(deps.Gatherer))
		}
		public.Post("/auth/logout", h.Logout)
	})

	r.Group(func(authRoutes chi.Router) {
		authRoutes.Use(httpmiddleware.IPRateLimit(h.authLimiter))

		authRoutes.Post("/auth/login", h.Login)
		repHandler.RegisterPublicRoutes(authRoutes)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.authService))
		private.Use(httpmiddleware.UserRateLimit(h.publicLimiter))

		repHandler.RegisterRoutes(private)
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida leitura do arquivo de dados e, se configurado, o Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_, storeErr := h.store.Load(ctx)
	var redisErr error
	if h.redis != nil {
		redisErr = h.redis.Ping(ctx).Err()
	}

	if storeErr != nil || redisErr != nil {
		response.Error(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"store": errorString(storeErr),
			"redis": errorString(redisErr),
		})
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Login autentica o representante e grava o cookie de sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Senha) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	response.JSON(w, http.StatusOK, map[string]any{
		"token":         result.Token,
		"expires_at":    result.ExpiresAt.UTC().Format(time.RFC3339),
		"representante": result.Representante,
	})
}

// Logout encerra a sessão atual e remove o cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httpmiddleware.SessionToken(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("logout: falha ao revogar sessão")
		}
	}

	h.clearSessionCookie(w)
	response.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Error(w, http.StatusUnauthorized, "AUTH", "credenciais inválidas", nil)
		return
	}
	response.DomainError(w, err)
}

func (h *Handler) cookieMode() (bool, http.SameSite) {
	if h.devCookies {
		return false, http.SameSiteLaxMode
	}
	return true, http.SameSiteNoneMode
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure, sameSite := h.cookieMode()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	secure, sameSite := h.cookieMode()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
