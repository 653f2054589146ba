package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends messages over SMTP
type EmailNotifier struct {
	from   string
	to     string
	sender mailSender
}

// NewEmailNotifier creates an SMTP channel
func NewEmailNotifier(host string, port int, username, password, to string) *EmailNotifier {
	return &EmailNotifier{
		from:   username,
		to:     to,
		sender: gomail.NewDialer(host, port, username, password),
	}
}

// Name returns the channel name
func (e *EmailNotifier) Name() string {
	return "email"
}

// Send mails text with a plain and an HTML part. The SMTP exchange is not
// interruptible, so ctx is only checked before dialing.
func (e *EmailNotifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlBody, err := buildEmailHTML(text)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", "Stock Guardian: "+subjectLine(text))
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", htmlBody)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: {{.Color}}; color: white; padding: 20px; border-radius: 5px; }
        .body { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.Subject}}</h1></div>
    <div class="body">
    {{range .Lines}}<p>{{.}}</p>
    {{end}}
    </div>
    <hr>
    <p><small>This message was generated automatically by Stock Guardian.</small></p>
</body>
</html>
`))

func buildEmailHTML(text string) (string, error) {
	data := struct {
		Subject string
		Color   template.CSS
		Lines   []string
	}{
		Subject: subjectLine(text),
		Color:   "#0078d4",
		Lines:   strings.Split(strings.TrimSpace(text), "\n"),
	}
	if strings.HasPrefix(text, "[CRITICAL]") {
		data.Color = "#d13438"
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
