package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestSendPasswordResetBuildsLink(t *testing.T) {
	rec := &recordingSender{}
	c := NewClientWithSender(rec, "https://learn.example.com", logger.Discard())

	require.NoError(t, c.SendPasswordReset(context.Background(), "ana@example.com", "Ana", "tok+en"))
	require.Len(t, rec.sent, 1)

	msg := rec.sent[0]
	assert.Equal(t, "Password Reset Request", msg.Subject)
	assert.Contains(t, msg.Text, "https://learn.example.com/reset-password?token=tok%2Ben")
	assert.Contains(t, msg.HTML, "<!DOCTYPE html>")
}

func TestSendCourseCompletedEscapesNames(t *testing.T) {
	rec := &recordingSender{}
	c := NewClientWithSender(rec, "", logger.Discard())

	require.NoError(t, c.SendCourseCompleted(context.Background(), "a@example.com", "<b>Ana</b>", "Go & You", 50))
	assert.Contains(t, rec.sent[0].HTML, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.Contains(t, rec.sent[0].HTML, "Go &amp; You")
	assert.Equal(t, "Course completed: Go & You", rec.sent[0].Subject)
}

func TestSendEmailWrapsSenderError(t *testing.T) {
	rec := &recordingSender{err: errors.New("relay down")}
	c := NewClientWithSender(rec, "", logger.Discard())

	err := c.SendWelcome(context.Background(), "a@example.com", "Ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestBuildMessageHasBothParts(t *testing.T) {
	raw := buildMessage("noreply@example.com", Message{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>", Text: "x"})
	assert.Equal(t, 3, strings.Count(raw, "--boundary42"))
	assert.Contains(t, raw, "Subject: Hi\r\n")
}

func TestBuildSendGridMail(t *testing.T) {
	m := buildSendGridMail(sgmail.NewEmail("", "noreply@example.com"), Message{To: "a@example.com", ToName: "Ana", Subject: "Hi", HTML: "<p>x</p>"})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Hi", m.Personalizations[0].Subject)
	assert.Equal(t, "a@example.com", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/html", m.Content[0].Type)
}
