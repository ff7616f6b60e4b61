// Package sheets lê a planilha de alunos publicada via Sheety.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured indica que não há planilha configurada.
var ErrNotConfigured = errors.New("sheets: planilha não configurada")

// RosterEntry é uma linha da planilha de alunos.
type RosterEntry struct {
	ID            int    `json:"id,omitempty"`
	Nome          string `json:"nome"`
	Email         string `json:"eMail"`
	Telefone      string `json:"telefone"`
	Representante string `json:"representante"`
}

// Provider busca as linhas da planilha associadas a um representante.
type Provider interface {
	Fetch(ctx context.Context, nomeRepresentante string) ([]RosterEntry, error)
}

// Config descreve o projeto Sheety.
type Config struct {
	BaseURL     string
	ProjectID   string
	AccessToken string
	Timeout     time.Duration
}

// Client implementa Provider sobre a API REST do Sheety.
type Client struct {
	http *resty.Client
	path string
}

type rosterResponse struct {
	Dados []RosterEntry `json:"dados"`
}

// NewClient monta o cliente HTTP com base, autenticação e timeout.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.sheety.co"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	c := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if cfg.AccessToken != "" {
		c.SetHeader("Authorization", "Basic "+cfg.AccessToken)
	}

	return &Client{
		http: c,
		path: fmt.Sprintf("/%s/representa/dados", strings.Trim(cfg.ProjectID, "/")),
	}, nil
}

// Fetch devolve as linhas cujo representante é nomeRepresentante (todas quando vazio).
func (c *Client) Fetch(ctx context.Context, nomeRepresentante string) ([]RosterEntry, error) {
	req := c.http.R().SetContext(ctx)
	if nomeRepresentante != "" {
		req.SetQueryParam("filter[representante]", nomeRepresentante)
	}

	resp, err := req.Get(c.path)
	if err != nil {
		return nil, fmt.Errorf("sheets: buscar alunos: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("sheets: status %d ao buscar alunos", resp.StatusCode())
	}

	var out rosterResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("sheets: decodificar resposta: %w", err)
	}
	if out.Dados == nil {
		return []RosterEntry{}, nil
	}
	return out.Dados, nil
}

// Delete remove a linha id da planilha.
func (c *Client) Delete(ctx context.Context, id int) error {
	resp, err := c.http.R().SetContext(ctx).Delete(c.path + "/" + strconv.Itoa(id))
	if err != nil {
		return fmt.Errorf("sheets: remover linha %d: %w", id, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("sheets: status %d ao remover linha %d", resp.StatusCode(), id)
	}
	return nil
}

// NoopProvider é usado quando não há planilha configurada.
type NoopProvider struct{}

// Fetch sempre retorna ErrNotConfigured.
func (NoopProvider) Fetch(ctx context.Context, nomeRepresentante string) ([]RosterEntry, error) {
	return nil, ErrNotConfigured
}
