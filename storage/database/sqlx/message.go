package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/message"
)

const messageTable = "messages"

var messageColumns = []string{
	"id", "sender_id", "recipient_id", "subject", "body", "read", "sent_at",
}

type messageRow struct {
	ID          string         `db:"id"`
	SenderID    string         `db:"sender_id"`
	RecipientID string         `db:"recipient_id"`
	Subject     sql.NullString `db:"subject"`
	Body        string         `db:"body"`
	Read        bool           `db:"read"`
	SentAt      time.Time      `db:"sent_at"`
}

func (r messageRow) toMessage() message.Message {
	return message.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Subject:     r.Subject.String,
		Body:        r.Body,
		Read:        r.Read,
		SentAt:      r.SentAt,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	msg.ID = uuid.New().String()
	query, args, err := psql.Insert(messageTable).
		Columns(messageColumns...).
		Values(
			msg.ID, msg.SenderID, msg.RecipientID, nullStr(msg.Subject),
			msg.Body, msg.Read, msg.SentAt.UTC(),
		).
		ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building message insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, filter message.RepoFilter, ordering []core.DBOrdering) ([]message.Message, error) {
	qb := psql.Select(messageColumns...).From(messageTable)
	if filter.SenderID != "" {
		qb = qb.Where(sq.Eq{"sender_id": filter.SenderID})
	}
	if filter.RecipientID != "" {
		qb = qb.Where(sq.Eq{"recipient_id": filter.RecipientID})
	}
	if filter.PartyID != "" {
		qb = qb.Where(sq.Or{
			sq.Eq{"sender_id": filter.PartyID},
			sq.Eq{"recipient_id": filter.PartyID},
		})
	}
	if filter.Unread {
		qb = qb.Where(sq.Eq{"read": false})
	}
	qb = qb.OrderBy(orderBy(ordering, "sent_at DESC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building message query")
	}

	var rows []messageRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.toMessage())
	}
	return msgs, nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string) (message.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return message.Message{}, core.ErrNotFound
	}
	query, args, err := psql.Select(messageColumns...).From(messageTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building message query")
	}

	var r messageRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return message.Message{}, trapNoRowsErr(err, "finding message")
	}
	return r.toMessage(), nil
}

func (repo messageRepository) SetMessageRead(ctx context.Context, id string, read bool) (message.Message, error) {
	query, args, err := psql.Update(messageTable).Set("read", read).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return message.Message{}, errors.Wrap(err, "building message update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return message.Message{}, errors.Wrap(err, "updating message read flag")
	}
	return repo.GetMessage(ctx, id)
}

func (repo messageRepository) DeleteMessagesByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(messageTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building message delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting messages")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting messages")
	}
	return int(cnt), nil
}
