package repo

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout é o formato canônico de todas as datas gravadas (RFC 3339, UTC).
const TimestampLayout = time.RFC3339

// Document é o conteúdo completo do arquivo de dados.
type Document struct {
	Representantes []Representante `json:"representatives"`
	NextID         int             `json:"next_id"`
}

// UnmarshalJSON aceita também a chave legada "representantes".
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Representatives []Representante `json:"representatives"`
		Representantes  []Representante `json:"representantes"`
		NextID          *int            `json:"next_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Representantes = raw.Representatives
	if d.Representantes == nil {
		d.Representantes = raw.Representantes
	}
	if d.Representantes == nil {
		d.Representantes = []Representante{}
	}
	d.NextID = 1
	if raw.NextID != nil {
		d.NextID = *raw.NextID
	}
	return nil
}

// emptyDocument devolve o documento inicial de um banco novo.
func emptyDocument() *Document {
	return &Document{Representantes: []Representante{}, NextID: 1}
}

// Representante é o registro persistido de um representante.
type Representante struct {
	ID        string     `json:"id"`
	Nome      string     `json:"nome"`
	Email     string     `json:"email"`
	Telefone  *string    `json:"telefone"`
	Senha     *string    `json:"senha"`
	Alunos    []Aluno    `json:"alunos"`
	Mensagens []Mensagem `json:"mensagens"`
	Metadata  Metadata   `json:"metadata"`
}

// Metadata guarda informações de auditoria do representante.
type Metadata struct {
	CreatedAt string `json:"created_at,omitempty"`
}

// Aluno é o registro persistido de um representado.
type Aluno struct {
	ID             string  `json:"id"`
	Nome           string  `json:"nome"`
	Email          *string `json:"email"`
	Telefone       *string `json:"telefone"`
	DataAdicionado string  `json:"data_adicionado"`
}

// Mensagem é o histórico imutável de um envio.
type Mensagem struct {
	Assunto string `json:"assunto"`
	Corpo   string `json:"corpo"`
	Data    string `json:"data"`
}

// NewRepresentante agrupa os dados de criação de um representante.
type NewRepresentante struct {
	Nome     string
	Email    string
	Telefone *string
	Senha    *string
}

// NewAluno agrupa os dados de criação de um aluno.
type NewAluno struct {
	Nome     string
	Email    *string
	Telefone *string
}

// AlunoUpdate mapeia campo → novo valor. Apenas "nome", "email" e "telefone"
// são considerados; valores devem ser string ou nil.
type AlunoUpdate map[string]any

func (a *Aluno) apply(updates AlunoUpdate) {
	for key, value := range updates {
		switch key {
		case "nome":
			if s, ok := value.(string); ok {
				a.Nome = strings.ToLower(s)
			}
		case "email":
			switch v := value.(type) {
			case nil:
				a.Email = nil
			case string:
				a.Email = lowerPtr(&v)
			}
		case "telefone":
			switch v := value.(type) {
			case nil:
				a.Telefone = nil
			case string:
				a.Telefone = &v
			}
		}
	}
}

func (r *Representante) hasEmail(email string) bool {
	return strings.EqualFold(r.Email, email)
}

func (a *Aluno) hasEmail(email string) bool {
	return a.Email != nil && strings.EqualFold(*a.Email, email)
}

func lowerPtr(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}
