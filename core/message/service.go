package message

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type (
	// RepoFilter is the storage-level selection; services derive it from the
	// caller's scope plus the request filter.
	RepoFilter struct {
		SenderID    string
		RecipientID string
		PartyID     string // matches sender or recipient
		Unread      bool
	}

	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		QueryMessages(ctx context.Context, filter RepoFilter, ordering []core.DBOrdering) ([]Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		SetMessageRead(ctx context.Context, id string, read bool) (Message, error)
		DeleteMessagesByID(ctx context.Context, ids ...string) (int, error)
	}

	// Contact is the slim user view needed to address and notify recipients.
	Contact struct {
		ID      string
		Name    string
		Surname string
		Email   string
		Role    string
	}

	// UserDirectory is the slice of the user store needed to resolve recipients.
	UserDirectory interface {
		Lookup(ctx context.Context, id string) (Contact, error)
	}

	Service struct {
		repo    Repository
		rel     policy.Relationships
		users   UserDirectory
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, rel policy.Relationships, users UserDirectory, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		rel:     rel,
		users:   users,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, nm NewMessage) (Message, error) {
	if err := policy.CanCreate(caller, policy.KindMessage); err != nil {
		return Message{}, err
	}

	recipient, err := svc.users.Lookup(ctx, nm.RecipientID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Message{}, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: "recipient not found"})
		}
		return Message{}, err
	}
	// eleves are out of the messaging loop on both ends
	if recipient.Role == policy.RoleStudent {
		return Message{}, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: "eleves cannot receive messages"})
	}
	if recipient.ID == caller.ID {
		return Message{}, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: "cannot message yourself"})
	}

	msg := Message{
		SenderID:    caller.ID,
		RecipientID: nm.RecipientID,
		Subject:     nm.Subject,
		Body:        nm.Body,
		SentAt:      time.Now().UTC(),
	}
	msg, err = svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	svc.notify(recipient, msg)
	return msg, nil
}

func (svc *Service) Query(ctx context.Context, caller policy.Caller, filter QueryFilter, ordering []core.DBOrdering) ([]Message, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindMessage, svc.rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing message scope")
	}
	if scope.None {
		return nil, core.ErrForbidden
	}

	rf := RepoFilter{Unread: filter.Unread}
	partyID := scope.PartyID
	if scope.All {
		// admins see everything, but their inbox/outbox is still their own
		partyID = caller.ID
	}
	switch filter.Box {
	case BoxInbox:
		rf.RecipientID = partyID
	case BoxOutbox:
		rf.SenderID = partyID
	default:
		if !scope.All {
			rf.PartyID = partyID
		}
	}
	return svc.repo.QueryMessages(ctx, rf, ordering)
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindMessage, svc.rel)
	if err != nil {
		return Message{}, errors.Wrap(err, "computing message scope")
	}
	if !scope.Contains(msg.Row()) {
		return Message{}, core.ErrNotFound
	}
	return msg, nil
}

// MarkRead flips the read flag; only the recipient may do so.
func (svc *Service) MarkRead(ctx context.Context, caller policy.Caller, id string, read bool) (Message, error) {
	msg, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return Message{}, err
	}
	if err = policy.CanToggleRead(caller, msg.Row()); err != nil {
		return Message{}, err
	}
	return svc.repo.SetMessageRead(ctx, id, read)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	msg, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, msg.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteMessagesByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (svc *Service) notify(recipient Contact, msg Message) {
	subject := "New message"
	if msg.Subject != "" {
		subject = "New message: " + msg.Subject
	}
	url := fmt.Sprintf("%s/messages/%s", svc.conf.FrontendBaseURL, msg.ID)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: recipient.Name + " " + recipient.Surname, Address: recipient.Email}},
		Subject: subject,
		BodyStr: "You received a new message. Read it here: " + url,
	})
}
