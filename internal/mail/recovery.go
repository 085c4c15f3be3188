package mail

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Recovery email kinds accepted by the send-email operation.
const (
	KindResetPassword = "reset_password"
	KindSetPassword   = "set_password"
)

var recoveryHTML = template.Must(template.New("recovery").Parse(`<html>
<head>
<style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #f8f9fa; padding: 20px; text-align: center; }
    .content { padding: 20px; }
    .button { display: inline-block; background-color: #007bff; color: white;
              padding: 10px 20px; text-decoration: none; border-radius: 5px; }
    .footer { margin-top: 30px; font-size: 12px; color: #777; text-align: center; }
</style>
</head>
<body>
<div class="container">
    <div class="header"><h2>{{.Title}}</h2></div>
    <div class="content">
        <p>Hello, {{.Name}}!</p>
        <p>{{.Intro}}</p>
        <p>Follow the link below to {{.ActionPhrase}} your password:</p>
        <p style="text-align: center;"><a href="{{.Link}}" class="button">{{.Button}}</a></p>
        <p>Or copy and paste this link into your browser:</p>
        <p>{{.Link}}</p>
        <p>If you did not request this, please ignore this message.</p>
    </div>
    <div class="footer"><p>This is an automated message, please do not reply.</p></div>
</div>
</body>
</html>`))

type recoveryVars struct {
	Title        string
	Name         string
	Intro        string
	ActionPhrase string
	Button       string
	Link         string
}

// RecoveryMailer composes and sends password set/reset emails carrying a
// recovery token link.
type RecoveryMailer struct {
	sender      Sender
	frontendURL string
}

// NewRecoveryMailer returns a mailer that embeds frontendURL in the links it
// sends.
func NewRecoveryMailer(sender Sender, frontendURL string) *RecoveryMailer {
	return &RecoveryMailer{sender: sender, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// SendPasswordReset mails a reset-password link to the user.
func (m *RecoveryMailer) SendPasswordReset(ctx context.Context, email, name, token string) bool {
	vars := recoveryVars{
		Title:        "Password Reset",
		Name:         name,
		Intro:        "You requested a password reset for your account.",
		ActionPhrase: "reset",
		Button:       "Reset Password",
		Link:         m.link("reset-password", token),
	}
	return m.send(ctx, email, vars)
}

// SendPasswordSet mails a set-password link, used when an account is created
// on the user's behalf and they have not chosen a password yet.
func (m *RecoveryMailer) SendPasswordSet(ctx context.Context, email, name, token string) bool {
	vars := recoveryVars{
		Title:        "Set Your Password",
		Name:         name,
		Intro:        "An account has been created for you.",
		ActionPhrase: "set",
		Button:       "Set Password",
		Link:         m.link("set-password", token),
	}
	return m.send(ctx, email, vars)
}

func (m *RecoveryMailer) link(operation, token string) string {
	return fmt.Sprintf("%s/api/auth/%s?token=%s", m.frontendURL, operation, url.QueryEscape(token))
}

func (m *RecoveryMailer) send(ctx context.Context, email string, vars recoveryVars) bool {
	var html strings.Builder
	if err := recoveryHTML.Execute(&html, vars); err != nil {
		return false
	}
	text := fmt.Sprintf(`Hello, %s!

%s

Follow this link to %s your password:
%s

If you did not request this, please ignore this message.

This is an automated message, please do not reply.`,
		vars.Name, vars.Intro, vars.ActionPhrase, vars.Link)
	return m.sender.Send(ctx, email, vars.Title, html.String(), text)
}
