// Package response escreve o envelope {"data","error"} usado por todas as
// rotas e traduz os erros de armazenamento e integrações em status HTTP.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/sheets"
)

type envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON escreve envelope de sucesso.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Data: data})
}

// Error escreve envelope de erro.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// Retry responde status com Retry-After em segundos inteiros, nunca menor que 1.
func Retry(w http.ResponseWriter, after time.Duration, status int, code, message string) {
	secs := int((after + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	Error(w, status, code, message, nil)
}

// Mapping liga um erro sentinela de um pacote de domínio a uma resposta.
type Mapping struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// DomainError traduz erros do store, do email e da planilha. Os mappings
// extras são consultados depois desses; o que sobrar vira 500 INTERNAL.
func DomainError(w http.ResponseWriter, err error, extra ...Mapping) {
	var derr *mail.DeliveryError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		Error(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, repo.ErrDuplicate):
		Error(w, http.StatusConflict, "CONFLICT", "email já cadastrado", nil)
	case errors.Is(err, repo.ErrLockTimeout):
		Retry(w, time.Second, http.StatusServiceUnavailable, "LOCK_TIMEOUT", "banco ocupado, tente novamente")
	case errors.As(err, &derr):
		Error(w, http.StatusBadGateway, "EMAIL", "falha no envio do comunicado", map[string]any{"falhas": derr.Failed})
	case errors.Is(err, mail.ErrNotConfigured):
		Error(w, http.StatusServiceUnavailable, "EMAIL", "envio de email não configurado", nil)
	case errors.Is(err, sheets.ErrNotConfigured):
		Error(w, http.StatusServiceUnavailable, "ROSTER", "planilha não configurada", nil)
	case errors.Is(err, repo.ErrStorage):
		log.Error().Err(err).Msg("storage error")
		Error(w, http.StatusInternalServerError, "STORAGE", "falha de armazenamento", nil)
	default:
		for _, m := range extra {
			if errors.Is(err, m.Err) {
				Error(w, m.Status, m.Code, m.Message, nil)
				return
			}
		}
		log.Error().Err(err).Msg("handler error")
		Error(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
