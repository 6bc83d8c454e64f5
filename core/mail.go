package core

import "net/mail"

type (
	// EmailMessage is a renderable email. Bodies here are short
	// notifications; HTMLContent is optional.
	EmailMessage struct {
		To          []mail.Address
		Subject     string
		BodyStr     string
		HTMLContent string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.BodyStr != "") || (m.HTMLContent != "") }
