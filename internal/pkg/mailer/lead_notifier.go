package mailer

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"spapperi-configurator/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Lead is a configurator conversation that reached the report.
type Lead struct {
	ConversationId string
	ExportFile     string
	CompletedAt    time.Time
}

// ILeadNotifier tells the sales team that a visitor finished the configurator.
type ILeadNotifier interface {
	NotifyCompleted(ctx context.Context, lead Lead) error
}

type emailNotifier struct {
	dialer    *gomail.Dialer
	sender    string
	recipient string
	publicURL string // Relay address used to build the report link
	logger    logger.ILogger
}

func NewEmailNotifier(host string, port int, username, password, sender, recipient, publicURL string, log logger.ILogger) ILeadNotifier {
	return &emailNotifier{
		dialer:    gomail.NewDialer(host, port, username, password),
		sender:    sender,
		recipient: recipient,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log,
	}
}

func (s *emailNotifier) NotifyCompleted(ctx context.Context, lead Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildLeadMessage(s.sender, s.recipient, ReportLink(s.publicURL, lead.ConversationId), lead)
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("Mailer", "Failed to send lead notification", map[string]interface{}{
			"conversation_id": lead.ConversationId,
			"error":           err.Error(),
		})
		return err
	}

	s.logger.Info("Mailer", "Lead notification sent", map[string]interface{}{
		"conversation_id": lead.ConversationId,
		"to":              s.recipient,
	})
	return nil
}

// ReportLink is the relay URL that downloads a conversation's report.
func ReportLink(publicURL, conversationId string) string {
	return fmt.Sprintf("%s/api/conversation/%s/export", strings.TrimRight(publicURL, "/"), url.PathEscape(conversationId))
}

func buildLeadMessage(sender, recipient, reportLink string, lead Lead) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", sender)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("Nuova configurazione completata (%s)", lead.ConversationId))

	completedAt := lead.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Configurazione trapiantatrice completata</h2>
			<p>Conversazione: <strong>%s</strong></p>
			<p>Completata il: %s</p>
			<p>File: %s</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Scarica il report</a>
			<p>Oppure copia questo link:</p>
			<p>%s</p>
		</div>
	`,
		html.EscapeString(lead.ConversationId),
		completedAt.Format("02/01/2006 15:04 MST"),
		html.EscapeString(lead.ExportFile),
		reportLink,
		reportLink,
	)

	m.SetBody("text/html", body)
	return m
}
