// Command representa administra o arquivo de dados fora da API: cadastro de
// representantes e alunos, sincronização com a planilha e backups.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fernandoldf/representa/internal/config"
	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/representante"
	"github.com/fernandoldf/representa/internal/sheets"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app guarda o estado compartilhado pelos subcomandos.
type app struct {
	dbPath  string
	verbose bool

	cfg     *config.Config
	store   *repo.JSONStore
	service *representante.Service
	roster  sheets.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "representa",
		Short:         "Administração do arquivo de representantes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "caminho do arquivo de dados (padrão: DB_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log detalhado")

	root.AddCommand(
		newRepresentanteCmd(a),
		newAlunoCmd(a),
		newSyncCmd(a),
		newPlanilhaCmd(a),
		newHashpassCmd(),
		newBackupCmd(a),
	)
	return root
}

func (a *app) init() error {
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg, err := config.LoadTools()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	a.store = repo.NewJSONStore(cfg.DBPath, repo.WithLockTimeout(cfg.StoreLockTimeout))

	var mailer mail.Dispatcher
	if cfg.Email.Enabled() {
		mailer, err = mail.NewSMTPDispatcher(mail.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			User:     cfg.Email.User,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			return fmt.Errorf("email: %w", err)
		}
	}

	a.roster = sheets.NoopProvider{}
	if cfg.Sheety.Enabled() {
		client, err := sheets.NewClient(sheets.Config{
			BaseURL:     cfg.Sheety.BaseURL,
			ProjectID:   cfg.Sheety.ProjectID,
			AccessToken: cfg.Sheety.AccessToken,
		})
		if err != nil {
			return fmt.Errorf("sheety: %w", err)
		}
		a.roster = client
	}

	a.service = representante.NewService(a.store, mailer, a.roster)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
