package representante

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/sheets"
	"github.com/fernandoldf/representa/internal/util"
)

var (
	// ErrValidacao agrupa falhas de validação de entrada.
	ErrValidacao = errors.New("dados inválidos")

	// ErrSemDestinatarios indica que nenhum aluno possui email.
	ErrSemDestinatarios = errors.New("nenhum aluno com email cadastrado")

	// ErrEnvio envolve falhas do envio de email.
	ErrEnvio = errors.New("falha no envio do comunicado")

	// ErrPlanilha envolve falhas da leitura da planilha.
	ErrPlanilha = errors.New("falha ao consultar a planilha")
)

// ValidationError descreve o campo rejeitado.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidacao
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}

// Store é o subconjunto do repo usado pelo serviço.
type Store interface {
	ListRepresentantes(ctx context.Context) ([]repo.Representante, error)
	FindRepresentanteByEmail(ctx context.Context, email string) (*repo.Representante, error)
	AddRepresentante(ctx context.Context, in repo.NewRepresentante) (*repo.Representante, error)
	AddAluno(ctx context.Context, representanteEmail string, in repo.NewAluno) (*repo.Aluno, error)
	RemoveAlunoByEmail(ctx context.Context, representanteEmail, alunoEmail string) (bool, error)
	RemoveAlunoByID(ctx context.Context, representanteEmail, alunoID string) (bool, error)
	UpdateAluno(ctx context.Context, representanteEmail, alunoID string, updates repo.AlunoUpdate) (*repo.Aluno, error)
	AlunoExists(ctx context.Context, representanteEmail, alunoEmail string) (bool, error)
	ListAlunos(ctx context.Context, representanteEmail string) ([]repo.Aluno, error)
	AppendMensagem(ctx context.Context, representanteEmail string, msg repo.Mensagem) error
	ListMensagens(ctx context.Context, representanteEmail string) ([]repo.Mensagem, error)
}

// Recorder recebe contadores de envios e importações.
type Recorder interface {
	RecordAnnouncement(ok bool)
	RecordAlunosImported(count int)
}

type noopRecorder struct{}

func (noopRecorder) RecordAnnouncement(bool)  {}
func (noopRecorder) RecordAlunosImported(int) {}

// Service compõe store, envio de email e planilha nas operações do painel.
type Service struct {
	store     Store
	mailer    mail.Dispatcher
	roster    sheets.Provider
	sanitizer *mail.Sanitizer
	recorder  Recorder
	hash      func(string) (string, error)
	now       func() time.Time
	logger    zerolog.Logger
}

// Option customiza o Service.
type Option func(*Service)

// WithRecorder registra métricas de envio e importação.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPasswordHasher substitui o hash de senha (testes usam parâmetros leves).
func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(s *Service) {
		s.hash = hash
	}
}

// NewService cria o serviço. mailer e roster nil usam implementações que
// respondem "não configurado".
func NewService(store Store, mailer mail.Dispatcher, roster sheets.Provider, opts ...Option) *Service {
	if mailer == nil {
		mailer = mail.NoopDispatcher{}
	}
	if roster == nil {
		roster = sheets.NoopProvider{}
	}
	s := &Service{
		store:     store,
		mailer:    mailer,
		roster:    roster,
		sanitizer: mail.NewSanitizer(),
		recorder:  noopRecorder{},
		hash:      auth.Hash,
		now:       time.Now,
		logger:    log.With().Str("component", "representante").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupInput traz os dados do cadastro.
type SignupInput struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	Senha    string `json:"senha"`
}

// Signup valida, gera o hash da senha e cria o representante.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Representante, error) {
	if err := util.RequireString(in.Nome, "nome"); err != nil {
		return nil, invalid("nome", err)
	}
	if err := util.ValidateEmail(in.Email); err != nil {
		return nil, invalid("email", err)
	}
	telefone := optional(in.Telefone)
	if telefone != nil {
		if err := util.ValidatePhone(*telefone); err != nil {
			return nil, invalid("telefone", err)
		}
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return nil, invalid("senha", err)
	}

	hash, err := s.hash(in.Senha)
	if err != nil {
		return nil, fmt.Errorf("gerar hash da senha: %w", err)
	}

	draft := NewRepresentante(in.Nome, in.Email, telefone)
	rec, err := s.store.AddRepresentante(ctx, repo.NewRepresentante{
		Nome:     draft.Nome,
		Email:    draft.Email,
		Telefone: draft.Telefone,
		Senha:    &hash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("representante", rec.Email).Str("id", rec.ID).Msg("representante cadastrado")
	return FromRecord(rec), nil
}

// Get devolve o representante completo; repo.ErrNotFound quando não existe.
func (s *Service) Get(ctx context.Context, email string) (*Representante, error) {
	rec, err := s.store.FindRepresentanteByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return FromRecord(rec), nil
}

// List devolve nome e email de todos os representantes.
func (s *Service) List(ctx context.Context) ([]Resumo, error) {
	recs, err := s.store.ListRepresentantes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Resumo, 0, len(recs))
	for _, r := range recs {
		out = append(out, Resumo{Nome: r.Nome, Email: r.Email})
	}
	return out, nil
}

// AlunoInput traz os dados de um novo aluno.
type AlunoInput struct {
	Nome     string  `json:"nome"`
	Email    *string `json:"email"`
	Telefone *string `json:"telefone"`
}

// AddAluno valida e adiciona um aluno ao representante.
func (s *Service) AddAluno(ctx context.Context, representanteEmail string, in AlunoInput) (*Aluno, error) {
	if err := util.RequireString(in.Nome, "nome"); err != nil {
		return nil, invalid("nome", err)
	}
	email := optionalPtr(in.Email)
	if email != nil {
		if err := util.ValidateEmail(*email); err != nil {
			return nil, invalid("email", err)
		}
	}
	telefone := optionalPtr(in.Telefone)
	if telefone != nil {
		if err := util.ValidatePhone(*telefone); err != nil {
			return nil, invalid("telefone", err)
		}
	}

	rep, err := s.store.FindRepresentanteByEmail(ctx, representanteEmail)
	if err != nil {
		return nil, err
	}

	draft := NewAluno(in.Nome, email, telefone, rep.Nome)
	rec, err := s.store.AddAluno(ctx, rep.Email, repo.NewAluno{
		Nome:     draft.Nome,
		Email:    draft.Email,
		Telefone: draft.Telefone,
	})
	if err != nil {
		return nil, err
	}

	aluno := alunoFromRecord(*rec, rep.Nome)
	return &aluno, nil
}

// UpdateAluno aplica atualizações de nome, email e telefone.
func (s *Service) UpdateAluno(ctx context.Context, representanteEmail, alunoID string, updates repo.AlunoUpdate) (*Aluno, error) {
	if err := validateUpdate(updates); err != nil {
		return nil, err
	}
	rec, err := s.store.UpdateAluno(ctx, representanteEmail, alunoID, updates)
	if err != nil {
		return nil, err
	}
	aluno := alunoFromRecord(*rec, "")
	return &aluno, nil
}

func validateUpdate(updates repo.AlunoUpdate) error {
	if v, ok := updates["nome"]; ok {
		nome, isString := v.(string)
		if !isString {
			return invalid("nome", errors.New("nome deve ser texto"))
		}
		if err := util.RequireString(nome, "nome"); err != nil {
			return invalid("nome", err)
		}
	}
	if v, ok := updates["email"].(string); ok && strings.TrimSpace(v) != "" {
		if err := util.ValidateEmail(v); err != nil {
			return invalid("email", err)
		}
	}
	if v, ok := updates["telefone"].(string); ok && strings.TrimSpace(v) != "" {
		if err := util.ValidatePhone(v); err != nil {
			return invalid("telefone", err)
		}
	}
	return nil
}

// RemoveAluno remove pelo id; false quando o id não existe.
func (s *Service) RemoveAluno(ctx context.Context, representanteEmail, alunoID string) (bool, error) {
	return s.store.RemoveAlunoByID(ctx, representanteEmail, alunoID)
}

// RemoveAlunoByEmail remove o primeiro aluno com o email informado.
func (s *Service) RemoveAlunoByEmail(ctx context.Context, representanteEmail, alunoEmail string) (bool, error) {
	return s.store.RemoveAlunoByEmail(ctx, representanteEmail, alunoEmail)
}

// ListAlunos devolve os alunos na ordem de cadastro.
func (s *Service) ListAlunos(ctx context.Context, representanteEmail string) ([]Aluno, error) {
	recs, err := s.store.ListAlunos(ctx, representanteEmail)
	if err != nil {
		return nil, err
	}
	out := make([]Aluno, 0, len(recs))
	for _, a := range recs {
		out = append(out, alunoFromRecord(a, ""))
	}
	return out, nil
}

// ListMensagens devolve o histórico de comunicados.
func (s *Service) ListMensagens(ctx context.Context, representanteEmail string) ([]repo.Mensagem, error) {
	return s.store.ListMensagens(ctx, representanteEmail)
}

// EnviarMensagem envia o comunicado a todos os alunos com email e, em caso
// de sucesso, registra a mensagem no histórico.
func (s *Service) EnviarMensagem(ctx context.Context, representanteEmail, assunto, corpo string) (*repo.Mensagem, error) {
	assunto = s.sanitizer.Line(assunto)
	corpo = s.sanitizer.Text(corpo)
	if err := util.RequireString(assunto, "assunto"); err != nil {
		return nil, invalid("assunto", err)
	}
	if err := util.RequireString(corpo, "corpo"); err != nil {
		return nil, invalid("corpo", err)
	}

	rep, err := s.Get(ctx, representanteEmail)
	if err != nil {
		return nil, err
	}

	destinatarios := rep.Destinatarios()
	if len(destinatarios) == 0 {
		return nil, ErrSemDestinatarios
	}

	nome := rep.NomeTitulo()
	subject := fmt.Sprintf("%s - %s", nome, assunto)
	body := fmt.Sprintf("Representante %s informa:\n%s", nome, corpo)

	if err := s.mailer.Send(ctx, destinatarios, subject, body); err != nil {
		s.recorder.RecordAnnouncement(false)
		s.logger.Warn().Err(err).Str("representante", rep.Email).Int("destinatarios", len(destinatarios)).Msg("falha ao enviar comunicado")
		return nil, fmt.Errorf("%w: %w", ErrEnvio, err)
	}
	s.recorder.RecordAnnouncement(true)

	msg := repo.Mensagem{
		Assunto: assunto,
		Corpo:   corpo,
		Data:    s.now().UTC().Format(repo.TimestampLayout),
	}
	if err := s.store.AppendMensagem(ctx, rep.Email, msg); err != nil {
		return nil, err
	}

	s.logger.Info().Str("representante", rep.Email).Int("destinatarios", len(destinatarios)).Msg("comunicado enviado")
	return &msg, nil
}

// SyncAlunos importa da planilha os alunos ainda não cadastrados e devolve
// quantos foram adicionados. Linhas sem email são deduplicadas pelo nome.
func (s *Service) SyncAlunos(ctx context.Context, representanteEmail string) (int, error) {
	rep, err := s.Get(ctx, representanteEmail)
	if err != nil {
		return 0, err
	}

	rows, err := s.roster.Fetch(ctx, rep.Nome)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPlanilha, err)
	}

	semEmail := make(map[string]bool)
	for _, a := range rep.Alunos {
		if a.Email == nil {
			semEmail[a.Nome] = true
		}
	}

	imported := 0
	for _, row := range rows {
		if strings.TrimSpace(row.Nome) == "" {
			continue
		}
		draft := NewAluno(row.Nome, &row.Email, optional(row.Telefone), rep.Nome)

		if draft.Email != nil {
			exists, err := s.store.AlunoExists(ctx, rep.Email, *draft.Email)
			if err != nil {
				return imported, err
			}
			if exists {
				continue
			}
		} else {
			if semEmail[draft.Nome] {
				continue
			}
			semEmail[draft.Nome] = true
		}

		if _, err := s.store.AddAluno(ctx, rep.Email, repo.NewAluno{
			Nome:     draft.Nome,
			Email:    draft.Email,
			Telefone: draft.Telefone,
		}); err != nil {
			return imported, err
		}
		imported++
	}

	if imported > 0 {
		s.recorder.RecordAlunosImported(imported)
	}
	s.logger.Info().Str("representante", rep.Email).Int("linhas", len(rows)).Int("importados", imported).Msg("sincronização da planilha")
	return imported, nil
}

// Dashboard agrupa o representante e os dados dos gráficos.
type Dashboard struct {
	Representante *Representante `json:"representante"`
	Charts        ChartData      `json:"charts"`
}

// Dashboard monta os dados do painel do representante.
func (s *Service) Dashboard(ctx context.Context, representanteEmail string) (*Dashboard, error) {
	rep, err := s.Get(ctx, representanteEmail)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Representante: rep, Charts: BuildChartData(rep, s.now())}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
