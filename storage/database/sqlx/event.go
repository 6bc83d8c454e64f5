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
	"github.com/trezcool/shule/core/event"
)

const eventTable = "events"

var eventColumns = []string{
	"id", "author_id", "title", "description", "location",
	"starts_at", "ends_at", "created_at", "updated_at",
}

type eventRow struct {
	ID          string         `db:"id"`
	AuthorID    string         `db:"author_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Location    sql.NullString `db:"location"`
	StartsAt    time.Time      `db:"starts_at"`
	EndsAt      sql.NullTime   `db:"ends_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r eventRow) toEvent() event.Event {
	evt := event.Event{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		Title:       r.Title,
		Description: r.Description.String,
		Location:    r.Location.String,
		StartsAt:    r.StartsAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.EndsAt.Valid {
		evt.EndsAt = r.EndsAt.Time
	}
	return evt
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	query, args, err := psql.Insert(eventTable).
		Columns(eventColumns...).
		Values(
			evt.ID, evt.AuthorID, evt.Title, nullStr(evt.Description), nullStr(evt.Location),
			evt.StartsAt.UTC(), sql.NullTime{Time: evt.EndsAt.UTC(), Valid: !evt.EndsAt.IsZero()},
			evt.CreatedAt.UTC(), evt.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building event insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	qb := psql.Select(eventColumns...).From(eventTable)
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"starts_at": filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"starts_at": filter.To.UTC()})
	}
	qb = qb.OrderBy(orderBy(ordering, "starts_at ASC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building event query")
	}

	var rows []eventRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, core.ErrNotFound
	}
	query, args, err := psql.Select(eventColumns...).From(eventTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building event query")
	}

	var r eventRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return event.Event{}, trapNoRowsErr(err, "finding event")
	}
	return r.toEvent(), nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	query, args, err := psql.Update(eventTable).
		SetMap(map[string]interface{}{
			"title":       evt.Title,
			"description": nullStr(evt.Description),
			"location":    nullStr(evt.Location),
			"starts_at":   evt.StartsAt.UTC(),
			"ends_at":     sql.NullTime{Time: evt.EndsAt.UTC(), Valid: !evt.EndsAt.IsZero()},
			"updated_at":  evt.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": evt.ID}).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building event update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	return evt, nil
}

func (repo eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(eventTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building event delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting events")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting events")
	}
	return int(cnt), nil
}
