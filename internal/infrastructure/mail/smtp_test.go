package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/identity-api/internal/core/domain"
)

func TestNewSMTPNotifier_RequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTPNotifier(Config{From: "noreply@vetcare.test"})
	assert.Error(t, err)

	_, err = NewSMTPNotifier(Config{Host: "smtp.vetcare.test"})
	assert.Error(t, err)
}

func TestNewSMTPNotifier_Defaults(t *testing.T) {
	n, err := NewSMTPNotifier(Config{Host: "smtp.vetcare.test", From: "noreply@vetcare.test"})
	require.NoError(t, err)

	assert.Equal(t, 587, n.cfg.Port)
	assert.Equal(t, defaultSendTimeout, n.cfg.Timeout)
}

func TestMessage_RejectsInvalidRecipient(t *testing.T) {
	n, err := NewSMTPNotifier(Config{Host: "smtp.vetcare.test", From: "noreply@vetcare.test"})
	require.NoError(t, err)

	_, err = n.message("not an address", "Reset Password", "<p>hi</p>")
	assert.Error(t, err)
}

func TestSend_InvalidRecipientIsEmailFailure(t *testing.T) {
	n, err := NewSMTPNotifier(Config{Host: "smtp.vetcare.test", From: "noreply@vetcare.test"})
	require.NoError(t, err)

	err = n.Send(context.Background(), "not an address", "Reset Password", "<p>hi</p>")

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "Email.Failure", derr.Code)
	assert.Equal(t, domain.KindFailure, derr.Kind)
}

func TestClientOptions_AuthOnlyWithUsername(t *testing.T) {
	anon, _ := NewSMTPNotifier(Config{Host: "h", From: "a@b.test"})
	authed, _ := NewSMTPNotifier(Config{Host: "h", From: "a@b.test", Username: "u", Password: "p"})

	assert.Len(t, anon.clientOptions(), 3)
	assert.Len(t, authed.clientOptions(), 6)
}

func TestLogNotifier_DoesNotLogBody(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.Send(context.Background(), "ana@vetcare.test", "Reset Password", "<a href=\"?token=secret\">"))

	assert.Contains(t, buf.String(), "ana@vetcare.test")
	assert.NotContains(t, buf.String(), "secret")
}
