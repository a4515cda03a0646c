package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUrgentTicketEmail_EscapesHTML(t *testing.T) {
	m := BuildUrgentTicketEmail([]string{"ops@dnadestek.com"}, UrgentTicketData{
		TicketID: "t1",
		Title:    "Su <kaçağı>",
		Location: "Vadi / A / 12",
	})
	assert.Equal(t, "[ACİL] Yeni talep: Su <kaçağı>", m.Subject)
	assert.Contains(t, m.HTMLBody, "Su &lt;kaçağı&gt;")
	assert.Contains(t, m.TextBody, "Vadi / A / 12")

	msg, err := buildMessage("destek@dnadestek.com", m)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@dnadestek.com"}, msg.GetHeader("To"))
}

func TestBuildMessage_Validation(t *testing.T) {
	_, err := buildMessage("", Message{Subject: "s", TextBody: "b"})
	assert.Error(t, err)
	_, err = buildMessage("a@b.c", Message{TextBody: "b"})
	assert.Error(t, err)
	_, err = buildMessage("a@b.c", Message{Subject: "s"})
	assert.Error(t, err)
}

func TestWelcomeEmail(t *testing.T) {
	m := BuildWelcomeEmail(WelcomeData{Email: "tek@dnadestek.com", Password: "p4ss", Role: "technician"})
	assert.Equal(t, []string{"tek@dnadestek.com"}, m.To)
	assert.Contains(t, m.TextBody, "p4ss")
	assert.Contains(t, m.Subject, "DNA DESTEK")
}

func TestSend_Disabled(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	assert.ErrorAs(t, c.Send(t.Context(), Message{}), &ErrDisabled{})
}
