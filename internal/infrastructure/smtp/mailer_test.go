package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/shop-auth-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail_ComposesMessage(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "mail.local", SMTPPort: "2525", SMTPFrom: "noreply@shop.test"})
	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, m.SendEmail(context.Background(), "ada@shop.test", "Verify", "code 123456"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ada@shop.test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Verify\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\ncode 123456")
}

func TestSendEmail_RelayError(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "mail.local", SMTPPort: "25"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, m.SendEmail(context.Background(), "a@b.c", "s", "b"), "refused")
}

func TestSendEmail_CanceledContext(t *testing.T) {
	m := NewMailer(&config.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendEmail(ctx, "a@b.c", "s", "b"), context.Canceled)
}
