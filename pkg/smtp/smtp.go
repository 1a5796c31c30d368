package smtp

import (
	"fmt"
	smtpPkg "net/smtp"
	"os"
)

type ItfSmtp interface {
	SendEscalationAlert(sessionID, message, urgency string) error
}

type smtp struct {
	auth     smtpPkg.Auth
	mail     string
	alertsTo string
	host     string
	addr     string
}

func New() ItfSmtp {
	mail := os.Getenv("SMTP_MAIL")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	auth := smtpPkg.PlainAuth("", mail, password, host)

	return &smtp{
		auth:     auth,
		mail:     mail,
		alertsTo: os.Getenv("ESCALATION_MAILBOX"),
		host:     host,
		addr:     host + ":587",
	}
}

// SendEscalationAlert notifies the on-call operations mailbox that a chat
// session raised an emergency-level message.
func (s *smtp) SendEscalationAlert(sessionID, message, urgency string) error {
	if s.alertsTo == "" {
		return fmt.Errorf("ESCALATION_MAILBOX not configured")
	}

	to := []string{s.alertsTo}
	body := []byte(fmt.Sprintf(
		"To: %s\r\nSubject: [%s] Chatbot escalation for session %s\r\n\r\nA chat session was flagged %s.\r\nSession: %s\r\nUser message: %s\r\n",
		s.alertsTo, urgency, sessionID, urgency, sessionID, message))

	if err := smtpPkg.SendMail(s.addr, s.auth, s.mail, to, body); err != nil {
		return err
	}

	return nil
}
