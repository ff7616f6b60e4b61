package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fernandoldf/representa/internal/sheets"
	"github.com/fernandoldf/representa/internal/storage"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("EMAIL_HOST", "")
	t.Setenv("SHEETY_PROJECT_ID", "")
	t.Setenv("BACKUP_S3_BUCKET", "")
	t.Setenv("BACKUP_S3_PREFIX", "copias")
	return filepath.Join(dir, "db.json")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRepresentanteAndAlunoCommands(t *testing.T) {
	db := setupEnv(t)

	out, err := execute(t, "--db", db, "representante", "criar", "-n", "Ana Souza", "-e", "Ana@Escola.com", "-s", "senha-forte")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "ana@escola.com"`)

	_, err = execute(t, "--db", db, "representante", "criar", "-n", "Ana", "-e", "ana@escola.com")
	require.ErrorContains(t, err, "--senha")

	out, err = execute(t, "--db", db, "representante", "listar")
	require.NoError(t, err)
	require.Equal(t, "ana@escola.com\tana souza\n", out)

	out, err = execute(t, "--db", db, "aluno", "adicionar", "-r", "ana@escola.com", "-n", "Bia", "-e", "bia@escola.com")
	require.NoError(t, err)
	require.Contains(t, out, `"id": "a2"`)

	_, err = execute(t, "--db", db, "aluno", "adicionar", "-r", "ana@escola.com", "-n", "Caio")
	require.NoError(t, err)

	out, err = execute(t, "--db", db, "aluno", "listar", "-r", "ana@escola.com")
	require.NoError(t, err)
	require.Equal(t, "a2\tbia\tbia@escola.com\na3\tcaio\t-\n", out)

	_, err = execute(t, "--db", db, "aluno", "remover", "-r", "ana@escola.com")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "aluno", "remover", "-r", "ana@escola.com", "--id", "a9")
	require.ErrorContains(t, err, "não encontrado")

	out, err = execute(t, "--db", db, "aluno", "remover", "-r", "ana@escola.com", "-e", "BIA@escola.com")
	require.NoError(t, err)
	require.Equal(t, "removido\n", out)

	out, err = execute(t, "--db", db, "representante", "mostrar", "ana@escola.com")
	require.NoError(t, err)
	require.NotContains(t, out, "bia@escola.com")
	require.NotContains(t, out, "senha")
}

func TestSyncAndPlanilhaWithoutSheety(t *testing.T) {
	db := setupEnv(t)

	_, err := execute(t, "--db", db, "representante", "criar", "-n", "Ana", "-e", "ana@escola.com", "-s", "senha-forte")
	require.NoError(t, err)

	_, err = execute(t, "--db", db, "sync", "-r", "ana@escola.com")
	require.ErrorIs(t, err, sheets.ErrNotConfigured)

	_, err = execute(t, "--db", db, "planilha", "remover", "3")
	require.ErrorIs(t, err, sheets.ErrNotConfigured)

	_, err = execute(t, "--db", db, "planilha", "remover", "zero")
	require.ErrorContains(t, err, "id inválido")
}

func TestHashpass(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "hashpass", "senha-forte")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "$argon2id$"), out)
}

type stubUploader struct {
	input storage.UploadInput
}

func (s *stubUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	s.input = input
	return &storage.UploadResult{Key: input.Key, ETag: "etag"}, nil
}

func TestBackup(t *testing.T) {
	db := setupEnv(t)

	_, err := execute(t, "--db", db, "backup")
	require.EqualError(t, err, "backup não configurado: defina BACKUP_S3_BUCKET")

	a := &app{dbPath: db}
	require.NoError(t, a.init())

	cmd := newBackupCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	up := &stubUploader{}
	require.NoError(t, runBackup(cmd, a, up))
	require.True(t, strings.HasPrefix(up.input.Key, "copias/"), up.input.Key)
	require.Equal(t, "application/json", up.input.ContentType)
	require.Contains(t, string(up.input.Body), `"next_id"`)
	require.Contains(t, out.String(), "backup enviado: copias/")
}
