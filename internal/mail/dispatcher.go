// Package mail envia os comunicados dos representantes aos alunos.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured indica que nenhum servidor de email foi configurado.
var ErrNotConfigured = errors.New("mail: envio de email não configurado")

// Dispatcher entrega uma mensagem a cada endereço informado.
// nil significa que todos os endereços foram aceitos pelo servidor.
type Dispatcher interface {
	Send(ctx context.Context, addresses []string, subject, body string) error
}

// DeliveryError lista os endereços que não puderam ser entregues.
type DeliveryError struct {
	Failed []string
	Err    error
}

func (e *DeliveryError) Error() string {
	msg := fmt.Sprintf("mail: falha ao enviar para %d destinatário(s): %s", len(e.Failed), strings.Join(e.Failed, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NoopDispatcher recusa todos os envios.
type NoopDispatcher struct{}

// Send sempre retorna ErrNotConfigured.
func (NoopDispatcher) Send(ctx context.Context, addresses []string, subject, body string) error {
	return ErrNotConfigured
}
