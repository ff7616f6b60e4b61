package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fernandoldf/representa/internal/representante"
)

func newAlunoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "aluno", Short: "Operações de alunos de um representante"}

	var rep string
	cmd.PersistentFlags().StringVarP(&rep, "rep", "r", "", "email do representante (obrigatório)")
	_ = cmd.MarkPersistentFlagRequired("rep")

	var nome string
	adicionarCmd := &cobra.Command{
		Use:   "adicionar",
		Short: "Adiciona um aluno",
		RunE: func(cmd *cobra.Command, args []string) error {
			aluno, err := a.service.AddAluno(cmd.Context(), rep, representante.AlunoInput{
				Nome:     nome,
				Email:    optionalFlag(cmd, "email"),
				Telefone: optionalFlag(cmd, "telefone"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), aluno)
		},
	}
	adicionarCmd.Flags().StringVarP(&nome, "nome", "n", "", "nome do aluno (obrigatório)")
	adicionarCmd.Flags().StringP("email", "e", "", "email do aluno")
	adicionarCmd.Flags().StringP("telefone", "t", "", "telefone do aluno")
	_ = adicionarCmd.MarkFlagRequired("nome")
	cmd.AddCommand(adicionarCmd)

	listarCmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista os alunos na ordem de cadastro",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alunos, err := a.service.ListAlunos(cmd.Context(), rep)
			if err != nil {
				return err
			}
			for _, al := range alunos {
				email := "-"
				if al.Email != nil {
					email = *al.Email
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", al.ID, al.Nome, email)
			}
			return nil
		},
	}
	cmd.AddCommand(listarCmd)

	var id, email string
	removerCmd := &cobra.Command{
		Use:   "remover",
		Short: "Remove um aluno pelo id ou pelo email",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				removed bool
				err     error
			)
			switch {
			case id != "" && email != "":
				return errors.New("use --id ou --email, não ambos")
			case id != "":
				removed, err = a.service.RemoveAluno(cmd.Context(), rep, id)
			case email != "":
				removed, err = a.service.RemoveAlunoByEmail(cmd.Context(), rep, email)
			default:
				return errors.New("--id ou --email obrigatório")
			}
			if err != nil {
				return err
			}
			if !removed {
				return errors.New("aluno não encontrado")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removido")
			return nil
		},
	}
	removerCmd.Flags().StringVar(&id, "id", "", "id do aluno")
	removerCmd.Flags().StringVarP(&email, "email", "e", "", "email do aluno")
	cmd.AddCommand(removerCmd)

	return cmd
}
