package representante

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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/fernandoldf/representa/internal/http/middleware"
	"github.com/fernandoldf/representa/internal/http/response"
	"github.com/fernandoldf/representa/internal/repo"
)

// Handler expõe o serviço do representante via HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registra rotas sem sessão.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
}

// RegisterRoutes registra rotas que exigem sessão ativa.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/representantes", h.handleListRepresentantes)

	r.Route("/alunos", func(r chi.Router) {
		r.Get("/", h.handleListAlunos)
		r.Post("/", h.handleAddAluno)
		r.Delete("/", h.handleRemoveAlunoByEmail)
		r.Post("/sync", h.handleSyncAlunos)
		r.Patch("/{id}", h.handleUpdateAluno)
		r.Delete("/{id}", h.handleRemoveAluno)
	})

	r.Route("/mensagens", func(r chi.Router) {
		r.Get("/", h.handleListMensagens)
		r.Post("/", h.handleEnviarMensagem)
	})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var payload SignupInput
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	rep, err := h.service.Signup(ctx, payload)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /auth/signup", rep.Email, start)
	response.JSON(w, http.StatusCreated, map[string]any{"representante": rep})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	rep, err := h.service.Get(ctx, email)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"representante": rep})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(ctx, email)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /dashboard", email, start)
	response.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleListRepresentantes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := sessionEmail(ctx, w); !ok {
		return
	}

	reps, err := h.service.List(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"representantes": reps})
}

func (h *Handler) handleListAlunos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	alunos, err := h.service.ListAlunos(ctx, email)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"alunos": alunos})
}

func (h *Handler) handleAddAluno(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	var payload AlunoInput
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	aluno, err := h.service.AddAluno(ctx, email, payload)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /alunos", email, start)
	response.JSON(w, http.StatusCreated, map[string]any{"aluno": aluno})
}

func (h *Handler) handleUpdateAluno(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil || len(payload) == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	aluno, err := h.service.UpdateAluno(ctx, email, chi.URLParam(r, "id"), repo.AlunoUpdate(payload))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PATCH /alunos", email, start)
	response.JSON(w, http.StatusOK, map[string]any{"aluno": aluno})
}

func (h *Handler) handleRemoveAluno(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	removed, err := h.service.RemoveAluno(ctx, email, chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !removed {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "aluno não encontrado", nil)
		return
	}

	logRequest(ctx, "DELETE /alunos", email, start)
	response.JSON(w, http.StatusOK, map[string]bool{"removido": true})
}

func (h *Handler) handleRemoveAlunoByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	alunoEmail := strings.TrimSpace(r.URL.Query().Get("email"))
	if alunoEmail == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "email obrigatório", nil)
		return
	}

	removed, err := h.service.RemoveAlunoByEmail(ctx, email, alunoEmail)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !removed {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "aluno não encontrado", nil)
		return
	}

	logRequest(ctx, "DELETE /alunos?email", email, start)
	response.JSON(w, http.StatusOK, map[string]bool{"removido": true})
}

func (h *Handler) handleSyncAlunos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	imported, err := h.service.SyncAlunos(ctx, email)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /alunos/sync", email, start)
	response.JSON(w, http.StatusOK, map[string]int{"importados": imported})
}

func (h *Handler) handleListMensagens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	msgs, err := h.service.ListMensagens(ctx, email)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"mensagens": msgs})
}

func (h *Handler) handleEnviarMensagem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email, ok := sessionEmail(ctx, w)
	if !ok {
		return
	}

	var payload struct {
		Assunto string `json:"assunto"`
		Corpo   string `json:"corpo"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	msg, err := h.service.EnviarMensagem(ctx, email, payload.Assunto, payload.Corpo)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /mensagens", email, start)
	response.JSON(w, http.StatusCreated, map[string]any{"mensagem": msg})
}

func sessionEmail(ctx context.Context, w http.ResponseWriter) (string, bool) {
	email := httpmiddleware.GetSubject(ctx)
	if email == "" {
		response.Error(w, http.StatusUnauthorized, "AUTH", "sessão inválida", nil)
		return "", false
	}
	return email, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// domainMappings cobre os sentinelas deste pacote que não têm equivalente
// no store nem nas integrações.
var domainMappings = []response.Mapping{
	{Err: ErrPlanilha, Status: http.StatusBadGateway, Code: "ROSTER", Message: "falha ao consultar a planilha"},
	{Err: ErrEnvio, Status: http.StatusBadGateway, Code: "EMAIL", Message: "falha no envio do comunicado"},
}

func handleDomainError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "VALIDATION", verr.Message, map[string]string{"field": verr.Field})
	case errors.Is(err, ErrSemDestinatarios):
		response.Error(w, http.StatusUnprocessableEntity, "NO_RECIPIENTS", err.Error(), nil)
	default:
		response.DomainError(w, err, domainMappings...)
	}
}

func logRequest(ctx context.Context, label, email string, start time.Time) {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}
	reqID := chimiddleware.GetReqID(ctx)
	logger.Info().Str("request_id", reqID).Str("representante", email).Str("label", label).Dur("duration", time.Since(start)).Msg("representante_request")
}
