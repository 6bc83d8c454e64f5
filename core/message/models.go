package message

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	Read        bool      `json:"read"`
	SentAt      time.Time `json:"sent_at"` // UTC
}

func (m Message) Row() policy.Row {
	return policy.Row{Kind: policy.KindMessage, SenderID: m.SenderID, RecipientID: m.RecipientID}
}

// NewMessage contains information needed to send a new Message. The sender
// is always the caller; there is no sender field to spoof.
type NewMessage struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Subject     string `json:"subject"`
	Body        string `json:"body" validate:"required"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

// MarkMessageRead toggles the read flag; the only mutable bit of a sent message.
type MarkMessageRead struct {
	Read bool `json:"read"`
}

// Mailbox selections
const (
	BoxInbox  = "inbox"
	BoxOutbox = "outbox"
)

type QueryFilter struct {
	// Box selects "inbox" or "outbox"; empty means both sides of the
	// caller's correspondence.
	Box    string `query:"box"`
	Unread bool   `query:"unread"`
}

func (qf *QueryFilter) Clean() {
	qf.Box = core.CleanString(qf.Box, true /* lower */)
}
