package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/configs"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

// sendFunc posts one message and returns the provider's HTTP status.
type sendFunc func(ctx context.Context, m *mail.SGMailV3) (int, error)

// messageData is what every template renders from
type messageData struct {
	StoreName string
	Code      string
	BaseURL   string
}

// SendGridNotifier delivers codes and welcome messages through SendGrid
type SendGridNotifier struct {
	config    *configs.EmailConfig
	logger    *logrus.Logger
	send      sendFunc
	templates map[challenge.Purpose]*template.Template
}

// NewSendGridNotifier creates a notifier backed by the SendGrid v3 API
func NewSendGridNotifier(config *configs.EmailConfig, logger *logrus.Logger) (ports.Notifier, error) {
	client := sendgrid.NewSendClient(config.SendGridAPIKey)
	return newSendGridNotifier(config, logger, func(ctx context.Context, m *mail.SGMailV3) (int, error) {
		resp, err := client.SendWithContext(ctx, m)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	})
}

func newSendGridNotifier(config *configs.EmailConfig, logger *logrus.Logger, send sendFunc) (*SendGridNotifier, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return &SendGridNotifier{
		config:    config,
		logger:    logger,
		send:      send,
		templates: templates,
	}, nil
}

func loadTemplates() (map[challenge.Purpose]*template.Template, error) {
	templates := make(map[challenge.Purpose]*template.Template)
	for _, p := range []challenge.Purpose{challenge.PurposeRegistration, challenge.PurposeLogin, challenge.PurposeWelcome} {
		file := "templates/" + p.String() + ".html"
		tmpl, err := template.ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		templates[p] = tmpl
	}
	return templates, nil
}

func (n *SendGridNotifier) subject(purpose challenge.Purpose) string {
	switch purpose {
	case challenge.PurposeRegistration:
		return fmt.Sprintf("Verify your email - %s", n.config.StoreName)
	case challenge.PurposeLogin:
		return fmt.Sprintf("Your sign-in code - %s", n.config.StoreName)
	default:
		return fmt.Sprintf("Welcome to %s", n.config.StoreName)
	}
}

func (n *SendGridNotifier) render(purpose challenge.Purpose, token string) (string, error) {
	tmpl, ok := n.templates[purpose]
	if !ok {
		return "", fmt.Errorf("template %s not found", purpose)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, messageData{
		StoreName: n.config.StoreName,
		Code:      token,
		BaseURL:   n.config.BaseURL,
	}); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", purpose, err)
	}
	return buf.String(), nil
}

// Deliver renders the purpose's template and sends it to email
func (n *SendGridNotifier) Deliver(ctx context.Context, email, token string, purpose challenge.Purpose) error {
	html, err := n.render(purpose, token)
	if err != nil {
		return err
	}

	from := mail.NewEmail(n.config.FromName, n.config.FromEmail)
	message := mail.NewSingleEmail(from, n.subject(purpose), mail.NewEmail("", email), "", html)

	status, err := n.send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid rejected message with status %d", status)
	}

	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"purpose":     purpose,
			"status_code": status,
		}).Debug("Email sent")
	}
	return nil
}
