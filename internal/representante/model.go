// Package representante reúne o domínio do painel do representante: modelos,
// gráficos do dashboard, serviço e rotas HTTP.
package representante

import (
	"strings"
	"unicode"

	"github.com/fernandoldf/representa/internal/repo"
)

// Representante é a visão de domínio de um representante e seus alunos.
type Representante struct {
	ID        string          `json:"id"`
	Nome      string          `json:"nome"`
	Email     string          `json:"email"`
	Telefone  *string         `json:"telefone"`
	CriadoEm  string          `json:"created_at,omitempty"`
	Alunos    []Aluno         `json:"alunos"`
	Mensagens []repo.Mensagem `json:"mensagens"`

	senha string
}

// Aluno é um representado vinculado a um representante.
type Aluno struct {
	ID             string  `json:"id"`
	Nome           string  `json:"nome"`
	Email          *string `json:"email"`
	Telefone       *string `json:"telefone"`
	DataAdicionado string  `json:"data_adicionado"`
	Representante  string  `json:"representante,omitempty"`
}

// Resumo é a listagem pública de representantes.
type Resumo struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// NewRepresentante normaliza nome e email para minúsculas.
func NewRepresentante(nome, email string, telefone *string) *Representante {
	return &Representante{
		Nome:      strings.ToLower(strings.TrimSpace(nome)),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Telefone:  telefone,
		Alunos:    []Aluno{},
		Mensagens: []repo.Mensagem{},
	}
}

// NewAluno normaliza nome e email para minúsculas; email vazio vira nil.
func NewAluno(nome string, email, telefone *string, representante string) Aluno {
	a := Aluno{
		Nome:          strings.ToLower(strings.TrimSpace(nome)),
		Telefone:      telefone,
		Representante: representante,
	}
	if email != nil && strings.TrimSpace(*email) != "" {
		v := strings.ToLower(strings.TrimSpace(*email))
		a.Email = &v
	}
	return a
}

// FromRecord converte o registro persistido no modelo de domínio.
func FromRecord(rec *repo.Representante) *Representante {
	if rec == nil {
		return nil
	}
	rep := &Representante{
		ID:        rec.ID,
		Nome:      rec.Nome,
		Email:     rec.Email,
		Telefone:  rec.Telefone,
		CriadoEm:  rec.Metadata.CreatedAt,
		Alunos:    make([]Aluno, 0, len(rec.Alunos)),
		Mensagens: make([]repo.Mensagem, 0, len(rec.Mensagens)),
	}
	if rec.Senha != nil {
		rep.senha = *rec.Senha
	}
	for _, a := range rec.Alunos {
		rep.Alunos = append(rep.Alunos, alunoFromRecord(a, rec.Nome))
	}
	rep.Mensagens = append(rep.Mensagens, rec.Mensagens...)
	return rep
}

func alunoFromRecord(a repo.Aluno, representante string) Aluno {
	return Aluno{
		ID:             a.ID,
		Nome:           a.Nome,
		Email:          a.Email,
		Telefone:       a.Telefone,
		DataAdicionado: a.DataAdicionado,
		Representante:  representante,
	}
}

// SenhaHash devolve o hash armazenado (vazio quando não há senha).
func (r *Representante) SenhaHash() string {
	return r.senha
}

// NomeTitulo devolve o nome com a inicial de cada palavra em maiúscula.
func (r *Representante) NomeTitulo() string {
	return titleCase(r.Nome)
}

// Destinatarios lista os emails dos alunos que possuem email.
func (r *Representante) Destinatarios() []string {
	out := make([]string, 0, len(r.Alunos))
	for _, a := range r.Alunos {
		if a.Email != nil && *a.Email != "" {
			out = append(out, *a.Email)
		}
	}
	return out
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
