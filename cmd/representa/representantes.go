package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fernandoldf/representa/internal/representante"
)

func newRepresentanteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "representante", Short: "Operações de representantes"}

	var nome, email, telefone, senha string
	criarCmd := &cobra.Command{
		Use:   "criar",
		Short: "Cadastra um representante com senha",
		RunE: func(cmd *cobra.Command, args []string) error {
			if senha == "" {
				return errors.New("--senha obrigatória")
			}
			rep, err := a.service.Signup(cmd.Context(), representante.SignupInput{
				Nome:     nome,
				Email:    email,
				Telefone: telefone,
				Senha:    senha,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	criarCmd.Flags().StringVarP(&nome, "nome", "n", "", "nome (obrigatório)")
	criarCmd.Flags().StringVarP(&email, "email", "e", "", "email de login (obrigatório)")
	criarCmd.Flags().StringVarP(&telefone, "telefone", "t", "", "telefone")
	criarCmd.Flags().StringVarP(&senha, "senha", "s", "", "senha inicial (obrigatória)")
	_ = criarCmd.MarkFlagRequired("nome")
	_ = criarCmd.MarkFlagRequired("email")
	cmd.AddCommand(criarCmd)

	listarCmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista nome e email dos representantes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reps, err := a.service.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range reps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Email, r.Nome)
			}
			return nil
		},
	}
	cmd.AddCommand(listarCmd)

	mostrarCmd := &cobra.Command{
		Use:   "mostrar EMAIL",
		Short: "Mostra o registro completo de um representante",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.AddCommand(mostrarCmd)

	return cmd
}
