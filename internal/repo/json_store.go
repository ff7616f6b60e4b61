package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLockTimeout é o prazo padrão para obter o lock de escrita.
const DefaultLockTimeout = 5 * time.Second

// Observer recebe a duração e o resultado de cada operação do store.
type Observer interface {
	ObserveStoreOperation(op string, duration time.Duration, err error)
}

// Option customiza o JSONStore.
type Option func(*JSONStore)

// WithLockTimeout define o prazo máximo de espera pelo lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *JSONStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithObserver registra um observador de métricas.
func WithObserver(o Observer) Option {
	return func(s *JSONStore) { s.observer = o }
}

// WithLogger substitui o logger do componente.
func WithLogger(l zerolog.Logger) Option {
	return func(s *JSONStore) { s.logger = l }
}

// WithClock substitui o relógio usado para carimbar datas.
func WithClock(now func() time.Time) Option {
	return func(s *JSONStore) {
		if now != nil {
			s.now = now
		}
	}
}

// JSONStore persiste todos os representantes em um único documento JSON.
// Escritas são atômicas (arquivo temporário + rename) e serializadas por lock.
type JSONStore struct {
	path        string
	lockTimeout time.Duration
	lock        *fileLock
	observer    Observer
	logger      zerolog.Logger
	now         func() time.Time
	rename      func(oldpath, newpath string) error
}

// NewJSONStore cria o store para o arquivo informado.
func NewJSONStore(path string, opts ...Option) *JSONStore {
	s := &JSONStore{
		path:        path,
		lockTimeout: DefaultLockTimeout,
		logger:      log.With().Str("component", "store").Logger(),
		now:         time.Now,
		rename:      os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock = newFileLock(path+".lock", s.lockTimeout)
	return s
}

// Path devolve o caminho do arquivo de dados.
func (s *JSONStore) Path() string {
	return s.path
}

// Load lê o documento completo. Se o arquivo não existir, cria um banco vazio
// sob o lock de escrita.
func (s *JSONStore) Load(ctx context.Context) (*Document, error) {
	doc, err := s.readFile(ctx)
	if !errors.Is(err, os.ErrNotExist) {
		return doc, err
	}

	release, err := s.lock.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err = s.readFile(ctx)
	if errors.Is(err, os.ErrNotExist) {
		doc = emptyDocument()
		if err = s.write(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	return doc, err
}

// Save grava o documento de forma atômica, sob lock.
func (s *JSONStore) Save(ctx context.Context, doc *Document) error {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.write(doc)
}

// readFile decodifica o arquivo sem gravar nada; devolve os.ErrNotExist
// quando o banco ainda não foi criado.
func (s *JSONStore) readFile(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.path, Err: err}
	}
	return &doc, nil
}

// current trata arquivo ausente como documento vazio, sem gravá-lo.
func (s *JSONStore) current(ctx context.Context) (*Document, error) {
	doc, err := s.readFile(ctx)
	if errors.Is(err, os.ErrNotExist) {
		return emptyDocument(), nil
	}
	return doc, err
}

func (s *JSONStore) write(doc *Document) (err error) {
	if doc.Representantes == nil {
		doc.Representantes = []Representante{}
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return &StorageError{Op: "create temp", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write temp", Path: tmpName, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "sync temp", Path: tmpName, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &StorageError{Op: "close temp", Path: tmpName, Err: err}
	}
	if err = s.rename(tmpName, s.path); err != nil {
		return &StorageError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// mutate executa fn sob lock sobre o documento atual e persiste quando fn
// reporta alteração.
func (s *JSONStore) mutate(ctx context.Context, op string, fn func(doc *Document) (bool, error)) (err error) {
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	release, err := s.lock.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			s.logger.Warn().Str("op", op).Dur("timeout", s.lockTimeout).Msg("lock indisponível")
		}
		return err
	}
	defer release()

	doc, err := s.current(ctx)
	if err != nil {
		return err
	}

	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err = s.write(doc); err != nil {
		return err
	}
	s.logger.Debug().Str("op", op).Int("next_id", doc.NextID).Msg("documento gravado")
	return nil
}

func (s *JSONStore) read(ctx context.Context, op string) (doc *Document, err error) {
	start := time.Now()
	defer func() { s.observe(op, start, err) }()
	return s.current(ctx)
}

func (s *JSONStore) observe(op string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveStoreOperation(op, time.Since(start), err)
	}
}

func (s *JSONStore) timestamp() string {
	return s.now().UTC().Format(TimestampLayout)
}

func (d *Document) mintID(prefix string) string {
	if d.NextID < 1 {
		d.NextID = 1
	}
	id := fmt.Sprintf("%s%d", prefix, d.NextID)
	d.NextID++
	return id
}

func (d *Document) representante(email string) *Representante {
	for i := range d.Representantes {
		if d.Representantes[i].hasEmail(email) {
			return &d.Representantes[i]
		}
	}
	return nil
}

func (d *Document) mustRepresentante(email string) (*Representante, error) {
	rep := d.representante(email)
	if rep == nil {
		return nil, fmt.Errorf("representante %s: %w", email, ErrNotFound)
	}
	return rep, nil
}

// ListRepresentantes devolve todos os representantes gravados.
func (s *JSONStore) ListRepresentantes(ctx context.Context) ([]Representante, error) {
	doc, err := s.read(ctx, "list_representantes")
	if err != nil {
		return nil, err
	}
	return doc.Representantes, nil
}

// FindRepresentanteByEmail busca por email sem diferenciar maiúsculas.
func (s *JSONStore) FindRepresentanteByEmail(ctx context.Context, email string) (*Representante, error) {
	doc, err := s.read(ctx, "find_representante")
	if err != nil {
		return nil, err
	}
	rep := doc.representante(email)
	if rep == nil {
		return nil, ErrNotFound
	}
	return rep, nil
}

// AddRepresentante cria um representante com id do contador compartilhado.
func (s *JSONStore) AddRepresentante(ctx context.Context, in NewRepresentante) (*Representante, error) {
	var created Representante
	err := s.mutate(ctx, "add_representante", func(doc *Document) (bool, error) {
		if doc.representante(in.Email) != nil {
			return false, fmt.Errorf("representante %s: %w", strings.ToLower(in.Email), ErrDuplicate)
		}
		created = Representante{
			ID:        doc.mintID("r"),
			Nome:      strings.ToLower(in.Nome),
			Email:     strings.ToLower(in.Email),
			Telefone:  in.Telefone,
			Senha:     in.Senha,
			Alunos:    []Aluno{},
			Mensagens: []Mensagem{},
			Metadata:  Metadata{CreatedAt: s.timestamp()},
		}
		doc.Representantes = append(doc.Representantes, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddAluno adiciona um aluno ao final da lista do representante.
func (s *JSONStore) AddAluno(ctx context.Context, representanteEmail string, in NewAluno) (*Aluno, error) {
	var created Aluno
	err := s.mutate(ctx, "add_aluno", func(doc *Document) (bool, error) {
		rep, err := doc.mustRepresentante(representanteEmail)
		if err != nil {
			return false, err
		}
		created = Aluno{
			ID:             doc.mintID("a"),
			Nome:           strings.ToLower(in.Nome),
			Email:          lowerPtr(in.Email),
			Telefone:       in.Telefone,
			DataAdicionado: s.timestamp(),
		}
		rep.Alunos = append(rep.Alunos, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveAlunoByEmail remove o primeiro aluno com o email informado.
func (s *JSONStore) RemoveAlunoByEmail(ctx context.Context, representanteEmail, alunoEmail string) (bool, error) {
	return s.removeAluno(ctx, "remove_aluno_email", representanteEmail, func(a *Aluno) bool {
		return a.hasEmail(alunoEmail)
	})
}

// RemoveAlunoByID remove o aluno com o id informado.
func (s *JSONStore) RemoveAlunoByID(ctx context.Context, representanteEmail, alunoID string) (bool, error) {
	return s.removeAluno(ctx, "remove_aluno_id", representanteEmail, func(a *Aluno) bool {
		return a.ID == alunoID
	})
}

func (s *JSONStore) removeAluno(ctx context.Context, op, representanteEmail string, match func(*Aluno) bool) (bool, error) {
	removed := false
	err := s.mutate(ctx, op, func(doc *Document) (bool, error) {
		rep, err := doc.mustRepresentante(representanteEmail)
		if err != nil {
			return false, err
		}
		for i := range rep.Alunos {
			if match(&rep.Alunos[i]) {
				rep.Alunos = append(rep.Alunos[:i], rep.Alunos[i+1:]...)
				removed = true
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// UpdateAluno aplica as alterações permitidas e devolve o aluno atualizado.
func (s *JSONStore) UpdateAluno(ctx context.Context, representanteEmail, alunoID string, updates AlunoUpdate) (*Aluno, error) {
	var updated Aluno
	err := s.mutate(ctx, "update_aluno", func(doc *Document) (bool, error) {
		rep, err := doc.mustRepresentante(representanteEmail)
		if err != nil {
			return false, err
		}
		for i := range rep.Alunos {
			if rep.Alunos[i].ID == alunoID {
				rep.Alunos[i].apply(updates)
				updated = rep.Alunos[i]
				return true, nil
			}
		}
		return false, fmt.Errorf("aluno %s: %w", alunoID, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AlunoExists informa se o representante já possui aluno com o email.
func (s *JSONStore) AlunoExists(ctx context.Context, representanteEmail, alunoEmail string) (bool, error) {
	doc, err := s.read(ctx, "aluno_exists")
	if err != nil {
		return false, err
	}
	rep := doc.representante(representanteEmail)
	if rep == nil {
		return false, nil
	}
	for i := range rep.Alunos {
		if rep.Alunos[i].hasEmail(alunoEmail) {
			return true, nil
		}
	}
	return false, nil
}

// ListAlunos devolve os alunos do representante (vazio se não existir).
func (s *JSONStore) ListAlunos(ctx context.Context, representanteEmail string) ([]Aluno, error) {
	doc, err := s.read(ctx, "list_alunos")
	if err != nil {
		return nil, err
	}
	rep := doc.representante(representanteEmail)
	if rep == nil || rep.Alunos == nil {
		return []Aluno{}, nil
	}
	return rep.Alunos, nil
}

// AppendMensagem registra uma mensagem enviada no histórico do representante.
func (s *JSONStore) AppendMensagem(ctx context.Context, representanteEmail string, msg Mensagem) error {
	return s.mutate(ctx, "append_mensagem", func(doc *Document) (bool, error) {
		rep, err := doc.mustRepresentante(representanteEmail)
		if err != nil {
			return false, err
		}
		if msg.Data == "" {
			msg.Data = s.timestamp()
		}
		rep.Mensagens = append(rep.Mensagens, msg)
		return true, nil
	})
}

// ListMensagens devolve o histórico de mensagens (vazio se não existir).
func (s *JSONStore) ListMensagens(ctx context.Context, representanteEmail string) ([]Mensagem, error) {
	doc, err := s.read(ctx, "list_mensagens")
	if err != nil {
		return nil, err
	}
	rep := doc.representante(representanteEmail)
	if rep == nil || rep.Mensagens == nil {
		return []Mensagem{}, nil
	}
	return rep.Mensagens, nil
}
