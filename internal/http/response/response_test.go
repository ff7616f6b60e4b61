package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/sheets"
)

type decoded struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var body decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"status":"ok"},"error":null}`, rec.Body.String())
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "VALIDATION", "payload inválido", map[string]string{"field": "nome"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"data":null,"error":{"code":"VALIDATION","message":"payload inválido","details":{"field":"nome"}}}`, rec.Body.String())
}

func TestRetryRoundsUpToWholeSeconds(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "1",
		300 * time.Millisecond:  "1",
		time.Second:             "1",
		1500 * time.Millisecond: "2",
	}
	for after, want := range cases {
		rec := httptest.NewRecorder()
		Retry(rec, after, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
		require.Equal(t, want, rec.Header().Get("Retry-After"), after.String())
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", repo.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{repo.ErrDuplicate, http.StatusConflict, "CONFLICT"},
		{repo.ErrLockTimeout, http.StatusServiceUnavailable, "LOCK_TIMEOUT"},
		{&mail.DeliveryError{Failed: []string{"bia@escola.com"}, Err: errors.New("550")}, http.StatusBadGateway, "EMAIL"},
		{mail.ErrNotConfigured, http.StatusServiceUnavailable, "EMAIL"},
		{sheets.ErrNotConfigured, http.StatusServiceUnavailable, "ROSTER"},
		{&repo.StorageError{Op: "write", Path: "db.json", Err: errors.New("disk full")}, http.StatusInternalServerError, "STORAGE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		DomainError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, tc.code, decode(t, rec).Error.Code, tc.err.Error())
	}
}

func TestDomainErrorLockTimeoutSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	DomainError(rec, fmt.Errorf("add aluno: %w", repo.ErrLockTimeout))
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	DomainError(rec, repo.ErrNotFound)
	require.Empty(t, rec.Header().Get("Retry-After"))
}

func TestDomainErrorDeliveryDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	DomainError(rec, &mail.DeliveryError{Failed: []string{"bia@escola.com"}, Err: errors.New("550")})

	body := decode(t, rec)
	require.Equal(t, map[string]any{"falhas": []any{"bia@escola.com"}}, body.Error.Details)
}

func TestDomainErrorExtraMappings(t *testing.T) {
	errPlanilha := errors.New("planilha indisponível")
	extra := []Mapping{{Err: errPlanilha, Status: http.StatusBadGateway, Code: "ROSTER", Message: "falha ao consultar a planilha"}}

	rec := httptest.NewRecorder()
	DomainError(rec, fmt.Errorf("sync: %w", errPlanilha), extra...)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "ROSTER", decode(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	DomainError(rec, fmt.Errorf("%w: %w", errPlanilha, sheets.ErrNotConfigured), extra...)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
