package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/nhle/kilamea/internal/model"
)

// implicitTLSPort is the submission port that expects TLS from the
// first byte; every other port upgrades with STARTTLS when SSL is on.
const implicitTLSPort = 465

// deliverSMTP authenticates against the account's outgoing server and
// transmits raw to every recipient.
func deliverSMTP(ctx context.Context, account *model.Account, from string, to []string, raw []byte) error {
	addr := net.JoinHostPort(account.OutgoingHost, strconv.Itoa(account.OutgoingPort))
	tlsConfig := &tls.Config{ServerName: account.OutgoingHost}

	var client *smtp.Client
	var err error
	if account.SSLActive && account.OutgoingPort == implicitTLSPort {
		client, err = smtp.DialTLS(addr, tlsConfig)
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to SMTP %s: %w", addr, err)
	}
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if account.SSLActive && account.OutgoingPort != implicitTLSPort {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if err := client.Auth(smtpAuth(account)); err != nil {
		return &AuthError{
			Account: account.Email,
			Message: fmt.Sprintf("SMTP authentication failed for %s: %v", account.User, err),
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := bytes.NewReader(raw).WriteTo(w); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}

	return client.Quit()
}

func smtpAuth(account *model.Account) sasl.Client {
	if access := account.AccessToken(); access != "" {
		return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: account.User,
			Token:    access,
			Host:     account.OutgoingHost,
			Port:     account.OutgoingPort,
		})
	}
	return sasl.NewPlainClient("", account.User, account.Password)
}
