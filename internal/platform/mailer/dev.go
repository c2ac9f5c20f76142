package mailer

import (
	"github.com/google/uuid"

	"github.com/diagnosis/consult-sessions/pkg/logger"
)

// DevMailer logs messages instead of sending them. Used when
// EMAIL_DEV_MODE is set, so the notify worker runs without credentials.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (m *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	id := uuid.NewString()
	logger.Info("Dev mailer: email not sent",
		"message_id", id,
		"to", toEmail,
		"subject", subject,
		"text", text,
	)
	return id, nil
}

var _ Service = (*DevMailer)(nil)
