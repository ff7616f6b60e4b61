package representante

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/sheets"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type stubMailer struct {
	err  error
	sent []sentMail
}

func (m *stubMailer) Send(ctx context.Context, addresses []string, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: addresses, subject: subject, body: body})
	return m.err
}

type stubRoster struct {
	rows  []sheets.RosterEntry
	err   error
	asked string
}

func (r *stubRoster) Fetch(ctx context.Context, nome string) ([]sheets.RosterEntry, error) {
	r.asked = nome
	return r.rows, r.err
}

type stubRecorder struct {
	ok, failed, imported int
}

func (r *stubRecorder) RecordAnnouncement(ok bool) {
	if ok {
		r.ok++
		return
	}
	r.failed++
}

func (r *stubRecorder) RecordAlunosImported(count int) {
	r.imported += count
}

func lightHash(password string) (string, error) {
	return auth.HashWithParams(password, &argon2id.Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

type fixture struct {
	svc      *Service
	store    *repo.JSONStore
	mailer   *stubMailer
	roster   *stubRoster
	recorder *stubRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewJSONStore(filepath.Join(t.TempDir(), "db.json"),
		repo.WithClock(func() time.Time { return fixedNow }))
	f := &fixture{
		store:    store,
		mailer:   &stubMailer{},
		roster:   &stubRoster{},
		recorder: &stubRecorder{},
	}
	f.svc = NewService(store, f.mailer, f.roster,
		WithRecorder(f.recorder),
		WithClock(func() time.Time { return fixedNow }),
		WithPasswordHasher(lightHash),
	)
	return f
}

func (f *fixture) signup(t *testing.T, nome, email string) *Representante {
	t.Helper()
	rep, err := f.svc.Signup(context.Background(), SignupInput{Nome: nome, Email: email, Senha: "senha-forte"})
	require.NoError(t, err)
	return rep
}

func (f *fixture) aluno(t *testing.T, repEmail, nome string, email *string) *Aluno {
	t.Helper()
	a, err := f.svc.AddAluno(context.Background(), repEmail, AlunoInput{Nome: nome, Email: email})
	require.NoError(t, err)
	return a
}

func TestSignupHashesPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.svc.Signup(ctx, SignupInput{Nome: "Ana Souza", Email: "Ana@Escola.com", Telefone: " ", Senha: "senha-forte"})
	require.NoError(t, err)
	require.Equal(t, "r1", rep.ID)
	require.Equal(t, "ana souza", rep.Nome)
	require.Equal(t, "ana@escola.com", rep.Email)
	require.Nil(t, rep.Telefone)
	require.Equal(t, fixedNow.Format(time.RFC3339), rep.CriadoEm)

	rec, err := f.store.FindRepresentanteByEmail(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.NotNil(t, rec.Senha)
	require.NotEqual(t, "senha-forte", *rec.Senha)

	ok, err := auth.Verify("senha-forte", *rec.Senha)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Signup(ctx, SignupInput{Nome: "Outra", Email: "ANA@escola.com", Senha: "senha-forte"})
	require.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"sem nome", SignupInput{Nome: " ", Email: "a@b.com", Senha: "senha-forte"}, "nome"},
		{"email inválido", SignupInput{Nome: "Ana", Email: "ana", Senha: "senha-forte"}, "email"},
		{"telefone inválido", SignupInput{Nome: "Ana", Email: "a@b.com", Telefone: "abc", Senha: "senha-forte"}, "telefone"},
		{"senha curta", SignupInput{Nome: "Ana", Email: "a@b.com", Senha: "curta"}, "senha"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrValidacao)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)
		})
	}

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestAddAlunoAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana", "ana@escola.com")

	email := "Bia@Escola.com"
	a := f.aluno(t, "ana@escola.com", "Bia Lima", &email)
	require.Equal(t, "a2", a.ID)
	require.Equal(t, "bia lima", a.Nome)
	require.Equal(t, "bia@escola.com", *a.Email)
	require.Equal(t, "ana", a.Representante)

	blank := "  "
	b := f.aluno(t, "ana@escola.com", "Caio", &blank)
	require.Nil(t, b.Email)

	_, err := f.svc.AddAluno(ctx, "ana@escola.com", AlunoInput{Nome: ""})
	require.ErrorIs(t, err, ErrValidacao)

	_, err = f.svc.AddAluno(ctx, "ninguem@escola.com", AlunoInput{Nome: "Davi"})
	require.ErrorIs(t, err, repo.ErrNotFound)

	alunos, err := f.svc.ListAlunos(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Len(t, alunos, 2)
	require.Equal(t, "a2", alunos[0].ID)
	require.Equal(t, "a3", alunos[1].ID)
}

func TestUpdateAndRemoveAluno(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana", "ana@escola.com")
	email := "bia@escola.com"
	a := f.aluno(t, "ana@escola.com", "Bia", &email)

	_, err := f.svc.UpdateAluno(ctx, "ana@escola.com", a.ID, repo.AlunoUpdate{"nome": 42})
	require.ErrorIs(t, err, ErrValidacao)
	_, err = f.svc.UpdateAluno(ctx, "ana@escola.com", a.ID, repo.AlunoUpdate{"email": "sem-arroba"})
	require.ErrorIs(t, err, ErrValidacao)

	updated, err := f.svc.UpdateAluno(ctx, "ana@escola.com", a.ID, repo.AlunoUpdate{"nome": "Beatriz", "email": nil, "id": "x"})
	require.NoError(t, err)
	require.Equal(t, a.ID, updated.ID)
	require.Equal(t, "beatriz", updated.Nome)
	require.Nil(t, updated.Email)

	removed, err := f.svc.RemoveAluno(ctx, "ana@escola.com", "a99")
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = f.svc.RemoveAluno(ctx, "ana@escola.com", a.ID)
	require.NoError(t, err)
	require.True(t, removed)
}

func TestEnviarMensagem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "ana souza", "ana@escola.com")
	bia, caio := "bia@escola.com", "caio@escola.com"
	f.aluno(t, "ana@escola.com", "Bia", &bia)
	f.aluno(t, "ana@escola.com", "Davi", nil)
	f.aluno(t, "ana@escola.com", "Caio", &caio)

	msg, err := f.svc.EnviarMensagem(ctx, "ana@escola.com", "<b>Prova</b>\namanhã", "<p>Estudem <i>capítulo 3</i></p>")
	require.NoError(t, err)
	require.Equal(t, "Prova amanhã", msg.Assunto)
	require.Equal(t, "Estudem capítulo 3", msg.Corpo)
	require.Equal(t, "2026-10-14T12:00:00Z", msg.Data)

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	require.Equal(t, []string{"bia@escola.com", "caio@escola.com"}, sent.to)
	require.Equal(t, "Ana Souza - Prova amanhã", sent.subject)
	require.Equal(t, "Representante Ana Souza informa:\nEstudem capítulo 3", sent.body)
	require.Equal(t, 1, f.recorder.ok)

	history, err := f.svc.ListMensagens(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Equal(t, []repo.Mensagem{*msg}, history)
}

func TestEnviarMensagemFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana", "ana@escola.com")

	_, err := f.svc.EnviarMensagem(ctx, "ana@escola.com", "<i></i>", "corpo")
	require.ErrorIs(t, err, ErrValidacao)

	_, err = f.svc.EnviarMensagem(ctx, "ana@escola.com", "Aviso", "corpo")
	require.ErrorIs(t, err, ErrSemDestinatarios)
	require.Empty(t, f.mailer.sent)

	bia := "bia@escola.com"
	f.aluno(t, "ana@escola.com", "Bia", &bia)
	f.mailer.err = &mail.DeliveryError{Failed: []string{bia}, Err: errors.New("550 mailbox unavailable")}

	_, err = f.svc.EnviarMensagem(ctx, "ana@escola.com", "Aviso", "corpo")
	require.ErrorIs(t, err, ErrEnvio)
	var derr *mail.DeliveryError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, []string{bia}, derr.Failed)
	require.Equal(t, 1, f.recorder.failed)

	history, err := f.svc.ListMensagens(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestEnviarMensagemWithoutMailer(t *testing.T) {
	store := repo.NewJSONStore(filepath.Join(t.TempDir(), "db.json"))
	svc := NewService(store, nil, nil, WithPasswordHasher(lightHash))
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Nome: "Ana", Email: "ana@escola.com", Senha: "senha-forte"})
	require.NoError(t, err)
	bia := "bia@escola.com"
	_, err = svc.AddAluno(ctx, "ana@escola.com", AlunoInput{Nome: "Bia", Email: &bia})
	require.NoError(t, err)

	_, err = svc.EnviarMensagem(ctx, "ana@escola.com", "Aviso", "corpo")
	require.ErrorIs(t, err, mail.ErrNotConfigured)

	_, err = svc.SyncAlunos(ctx, "ana@escola.com")
	require.ErrorIs(t, err, sheets.ErrNotConfigured)
}

func TestSyncAlunosSkipsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana Souza", "ana@escola.com")
	bia := "bia@escola.com"
	f.aluno(t, "ana@escola.com", "Bia", &bia)
	f.aluno(t, "ana@escola.com", "Davi", nil)

	f.roster.rows = []sheets.RosterEntry{
		{ID: 2, Nome: "Bia", Email: "BIA@escola.com"},
		{ID: 3, Nome: "Caio", Email: "caio@escola.com", Telefone: "11 98888-7777"},
		{ID: 4, Nome: "Davi"},
		{ID: 5, Nome: "Eva"},
		{ID: 6, Nome: "eva"},
		{ID: 7, Nome: " ", Email: "vazio@escola.com"},
		{ID: 8, Nome: "Caio", Email: "caio@escola.com"},
	}

	imported, err := f.svc.SyncAlunos(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Equal(t, 2, imported)
	require.Equal(t, "ana souza", f.roster.asked)
	require.Equal(t, 2, f.recorder.imported)

	alunos, err := f.svc.ListAlunos(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Len(t, alunos, 4)
	require.Equal(t, "caio", alunos[2].Nome)
	require.Equal(t, "11 98888-7777", *alunos[2].Telefone)
	require.Equal(t, "eva", alunos[3].Nome)
	require.Nil(t, alunos[3].Email)

	imported, err = f.svc.SyncAlunos(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Zero(t, imported)
}

func TestSyncAlunosRosterError(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@escola.com")
	f.roster.err = errors.New("sheety: status 500")

	_, err := f.svc.SyncAlunos(context.Background(), "ana@escola.com")
	require.ErrorIs(t, err, ErrPlanilha)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana", "ana@escola.com")
	bia := "bia@escola.com"
	f.aluno(t, "ana@escola.com", "Bia", &bia)
	_, err := f.svc.EnviarMensagem(ctx, "ana@escola.com", "Aviso", "corpo")
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Equal(t, "ana@escola.com", dash.Representante.Email)
	require.Len(t, dash.Representante.Alunos, 1)
	require.Equal(t, []string{"2026-10-14"}, dash.Charts.MsgLabels)
	require.Equal(t, []int{1}, dash.Charts.MsgValues)
	require.Equal(t, []int{1}, dash.Charts.StudentValues)
	require.Equal(t, 1, dash.Charts.NewStudentsLast7Days)

	_, err = f.svc.Dashboard(ctx, "ninguem@escola.com")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDashboardEveningInLocalZone(t *testing.T) {
	ctx := context.Background()
	saoPaulo := time.FixedZone("BRT", -3*3600)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, saoPaulo)
	clock := func() time.Time { return now }

	store := repo.NewJSONStore(filepath.Join(t.TempDir(), "db.json"), repo.WithClock(clock))
	svc := NewService(store, &stubMailer{}, &stubRoster{},
		WithClock(clock),
		WithPasswordHasher(lightHash),
	)

	_, err := svc.Signup(ctx, SignupInput{Nome: "Ana", Email: "ana@escola.com", Senha: "senha-forte"})
	require.NoError(t, err)
	bia := "bia@escola.com"
	_, err = svc.AddAluno(ctx, "ana@escola.com", AlunoInput{Nome: "Bia", Email: &bia})
	require.NoError(t, err)

	now = time.Date(2026, 10, 14, 22, 0, 0, 0, saoPaulo)
	msg, err := svc.EnviarMensagem(ctx, "ana@escola.com", "Aviso", "corpo")
	require.NoError(t, err)
	require.Equal(t, "2026-10-15T01:00:00Z", msg.Data)

	dash, err := svc.Dashboard(ctx, "ana@escola.com")
	require.NoError(t, err)
	require.Equal(t, []string{"2026-10-14"}, dash.Charts.MsgLabels)
	require.Equal(t, []int{1}, dash.Charts.MsgValues)
	require.Equal(t, []int{1}, dash.Charts.StudentValues)
	require.Equal(t, 1, dash.Charts.NewStudentsLast7Days)
}
