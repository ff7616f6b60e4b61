package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/sheets"
	"github.com/fernandoldf/representa/internal/storage"
)

func newSyncCmd(a *app) *cobra.Command {
	var rep string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Importa da planilha os alunos ainda não cadastrados",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			imported, err := a.service.SyncAlunos(cmd.Context(), rep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d aluno(s) importado(s)\n", imported)
			return nil
		},
	}
	cmd.Flags().StringVarP(&rep, "rep", "r", "", "email do representante (obrigatório)")
	_ = cmd.MarkFlagRequired("rep")
	return cmd
}

// rosterDeleter é implementado pelo cliente Sheety.
type rosterDeleter interface {
	Delete(ctx context.Context, id int) error
}

func newPlanilhaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "planilha", Short: "Consulta e limpeza da planilha de alunos"}

	var nome string
	listarCmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista as linhas da planilha (de um representante ou todas)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.roster.Fetch(cmd.Context(), nome)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", row.ID, row.Nome, row.Email, row.Representante)
			}
			return nil
		},
	}
	listarCmd.Flags().StringVarP(&nome, "representante", "n", "", "nome do representante")
	cmd.AddCommand(listarCmd)

	removerCmd := &cobra.Command{
		Use:   "remover ID",
		Short: "Remove uma linha da planilha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("id inválido: %q", args[0])
			}
			deleter, ok := a.roster.(rosterDeleter)
			if !ok {
				return sheets.ErrNotConfigured
			}
			if err := deleter.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linha %d removida\n", id)
			return nil
		},
	}
	cmd.AddCommand(removerCmd)

	return cmd
}

func newHashpassCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashpass SENHA",
		Short: "Gera o hash argon2id de uma senha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.Hash(args[0])
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Envia uma cópia do arquivo de dados ao bucket S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var up storage.Uploader = storage.NoopUploader{}
			if a.cfg.Backup.Enabled() {
				s3up, err := storage.NewS3Uploader(cmd.Context(), storage.S3Config{
					Endpoint:  a.cfg.Backup.Endpoint,
					Region:    a.cfg.Backup.Region,
					Bucket:    a.cfg.Backup.Bucket,
					AccessKey: a.cfg.Backup.AccessKey,
					SecretKey: a.cfg.Backup.SecretKey,
				})
				if err != nil {
					return err
				}
				up = s3up
			}
			return runBackup(cmd, a, up)
		},
	}
}

func runBackup(cmd *cobra.Command, a *app, up storage.Uploader) error {
	// Cria o arquivo vazio se ainda não existir e rejeita documentos corrompidos.
	if _, err := a.store.Load(cmd.Context()); err != nil {
		return err
	}
	res, err := storage.BackupFile(cmd.Context(), up, a.store.Path(), a.cfg.Backup.Prefix, time.Now())
	if errors.Is(err, storage.ErrNotConfigured) {
		return errors.New("backup não configurado: defina BACKUP_S3_BUCKET")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backup enviado: %s\n", res.Key)
	return nil
}
