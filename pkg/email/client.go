package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/mo-amir99/elearning-server-go/pkg/config"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client renders the application emails and hands them to a Sender.
type Client struct {
	sender      Sender
	frontendURL string
	logger      *slog.Logger
}

// NewClient picks SendGrid when an API key is configured, SMTP when a host is set,
// and a logging sender otherwise.
func NewClient(cfg config.EmailConfig, logger *slog.Logger) *Client {
	var sender Sender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = NewSendGridSender(cfg.SendGridAPIKey, cfg.From)
	case cfg.Host != "":
		sender = NewSMTPSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From)
	default:
		logger.Warn("no email transport configured; emails will only be logged")
		sender = LogSender{Logger: logger}
	}
	return NewClientWithSender(sender, cfg.FrontendURL, logger)
}

// NewClientWithSender wires a custom Sender. Tests use it with a recording sender.
func NewClientWithSender(sender Sender, frontendURL string, logger *slog.Logger) *Client {
	return &Client{sender: sender, frontendURL: frontendURL, logger: logger}
}

// SendEmail wraps the HTML body in the layout and delivers it.
func (c *Client) SendEmail(ctx context.Context, msg Message) error {
	msg.HTML = wrapHTMLTemplate(msg.HTML)
	if err := c.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendPasswordReset sends a password reset email with a token.
func (c *Client) SendPasswordReset(ctx context.Context, to, name, resetToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.frontendURL, template.URLQueryEscaper(resetToken))
	html := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>You requested to reset your password. Click the link below to choose a new one:</p>
		<p style="text-align: center; margin: 24px 0;">
			<a href="%s" style="background: #2a7ae2; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">
				Reset Password
			</a>
		</p>
		<p>If you did not request this, please ignore this email.</p>
		<p>This link will expire in 1 hour.</p>
	`, template.HTMLEscapeString(name), link)

	return c.SendEmail(ctx, Message{
		To:      to,
		ToName:  name,
		Subject: "Password Reset Request",
		HTML:    html,
		Text:    "Reset your password: " + link,
	})
}

// SendWelcome greets a newly created account.
func (c *Client) SendWelcome(ctx context.Context, to, name string) error {
	html := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your learning account is ready. Pick a course and start watching, every video you finish earns points on the leaderboard.</p>
		<p style="text-align: center; margin: 24px 0;">
			<a href="%s/courses" style="background: #2a7ae2; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">
				Browse Courses
			</a>
		</p>
	`, template.HTMLEscapeString(name), c.frontendURL)

	return c.SendEmail(ctx, Message{
		To:      to,
		ToName:  name,
		Subject: "Welcome aboard!",
		HTML:    html,
		Text:    fmt.Sprintf("Hello %s, your learning account is ready.", name),
	})
}

// SendCourseCompleted congratulates a learner on finishing every video of a course.
func (c *Client) SendCourseCompleted(ctx context.Context, to, name, courseName string, bonus int) error {
	html := fmt.Sprintf(`
		<p>Congratulations %s!</p>
		<p>You completed <strong>%s</strong> and earned a bonus of %d points.</p>
		<p>Check the leaderboard to see where you stand.</p>
	`, template.HTMLEscapeString(name), template.HTMLEscapeString(courseName), bonus)

	return c.SendEmail(ctx, Message{
		To:      to,
		ToName:  name,
		Subject: "Course completed: " + courseName,
		HTML:    html,
		Text:    fmt.Sprintf("Congratulations %s, you completed %s (+%d points).", name, courseName, bonus),
	})
}

var layout = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background: #f9f9f9;">
    <div style="padding: 32px;">
        <div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px #eee; padding: 32px;">
            <div style="font-size: 16px; color: #333;">
                {{.Content}}
            </div>
            <div style="margin-top: 32px; text-align: center; color: #aaa; font-size: 12px;">
                &copy; {{.Year}} All rights reserved.
            </div>
        </div>
    </div>
</body>
</html>
`))

func wrapHTMLTemplate(content string) string {
	var buf bytes.Buffer
	data := map[string]interface{}{
		"Content": template.HTML(content),
		"Year":    time.Now().Year(),
	}
	if err := layout.Execute(&buf, data); err != nil {
		return content
	}
	return buf.String()
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("email (not sent)", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}
