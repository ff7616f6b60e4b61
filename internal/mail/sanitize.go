package mail

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer reduz textos enviados pelo usuário a texto puro.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer cria um sanitizador com a política estrita (nenhuma tag permitida).
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text remove marcação HTML e devolve o texto sem escapes de entidade.
func (s *Sanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// Line é como Text, mas também remove quebras de linha (cabeçalhos).
func (s *Sanitizer) Line(raw string) string {
	text := s.Text(raw)
	return strings.Join(strings.Fields(text), " ")
}
