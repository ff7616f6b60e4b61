package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SMTPConfig descreve o servidor usado nos envios.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	Timeout   time.Duration
	TLSConfig *tls.Config
}

// SMTPDispatcher envia uma mensagem por destinatário usando uma única conexão.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	now    func() time.Time
	logger zerolog.Logger
}

// NewSMTPDispatcher valida a configuração e devolve o dispatcher.
func NewSMTPDispatcher(cfg SMTPConfig) (*SMTPDispatcher, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: host obrigatório")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.From == "" {
		return nil, errors.New("mail: remetente obrigatório")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPDispatcher{
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("component", "mail").Logger(),
	}, nil
}

// Send abre a conexão, negocia STARTTLS quando disponível e entrega a cada endereço.
func (d *SMTPDispatcher) Send(ctx context.Context, addresses []string, subject, body string) error {
	if len(addresses) == 0 {
		return nil
	}

	client, err := d.dial(ctx)
	if err != nil {
		return &DeliveryError{Failed: append([]string(nil), addresses...), Err: err}
	}
	defer client.Close()

	var failed []string
	var lastErr error
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			failed = append(failed, addr)
			lastErr = err
			continue
		}
		if err := d.deliver(client, addr, subject, body); err != nil {
			d.logger.Warn().Err(err).Str("to", addr).Msg("falha ao enviar email")
			failed = append(failed, addr)
			lastErr = err
			_ = client.Reset()
		}
	}
	_ = client.Quit()

	if len(failed) > 0 {
		return &DeliveryError{Failed: failed, Err: lastErr}
	}
	return nil
}

func (d *SMTPDispatcher) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	dialer := &net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mail: conectar a %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(d.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mail: handshake: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := d.cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: d.cfg.Host, MinVersion: tls.VersionTLS12}
		}
		if err := client.StartTLS(tlsCfg); err != nil {
			client.Close()
			return nil, fmt.Errorf("mail: starttls: %w", err)
		}
	}

	if d.cfg.User != "" {
		auth := smtp.PlainAuth("", d.cfg.User, d.cfg.Password, d.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("mail: autenticação: %w", err)
		}
	}
	return client, nil
}

func (d *SMTPDispatcher) deliver(client *smtp.Client, to, subject, body string) error {
	if err := client.Mail(d.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(d.buildMessage(to, subject, body)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (d *SMTPDispatcher) buildMessage(to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", d.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", d.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(normalizeNewlines(body))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func normalizeNewlines(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			buf.WriteString("\r\n")
		case '\n':
			buf.WriteString("\r\n")
		default:
			buf.WriteByte(s[i])
		}
	}
	return buf.String()
}
