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
	"github.com/trezcool/shule/core/homework"
)

const homeworkTable = "homework"

var homeworkColumns = []string{
	"id", "class_id", "author_id", "title", "description", "subject",
	"due_at", "created_at", "updated_at",
}

type homeworkRow struct {
	ID          string         `db:"id"`
	ClassID     string         `db:"class_id"`
	AuthorID    string         `db:"author_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Subject     sql.NullString `db:"subject"`
	DueAt       time.Time      `db:"due_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r homeworkRow) toHomework() homework.Homework {
	return homework.Homework{
		ID:          r.ID,
		ClassID:     r.ClassID,
		AuthorID:    r.AuthorID,
		Title:       r.Title,
		Description: r.Description.String,
		Subject:     r.Subject.String,
		DueAt:       r.DueAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *sqlx.DB) *homeworkRepository {
	return &homeworkRepository{db: db}
}

func (repo homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	hw.ID = uuid.New().String()
	query, args, err := psql.Insert(homeworkTable).
		Columns(homeworkColumns...).
		Values(
			hw.ID, hw.ClassID, hw.AuthorID, hw.Title, nullStr(hw.Description), nullStr(hw.Subject),
			hw.DueAt.UTC(), hw.CreatedAt.UTC(), hw.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "building homework insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return homework.Homework{}, errors.Wrap(err, "inserting homework")
	}
	return hw, nil
}

func (repo homeworkRepository) QueryHomework(ctx context.Context, filter homework.RepoFilter, ordering []core.DBOrdering) ([]homework.Homework, error) {
	qb := psql.Select(homeworkColumns...).From(homeworkTable)
	if filter.ClassIDs != nil {
		qb = qb.Where(sq.Eq{"class_id": filter.ClassIDs})
	}
	if filter.AuthorID != "" {
		qb = qb.Where(sq.Eq{"author_id": filter.AuthorID})
	}
	if filter.Subject != "" {
		qb = qb.Where("LOWER(subject) = LOWER(?)", filter.Subject)
	}
	qb = qb.OrderBy(orderBy(ordering, "due_at ASC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building homework query")
	}

	var rows []homeworkRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying homework")
	}
	hws := make([]homework.Homework, 0, len(rows))
	for _, r := range rows {
		hws = append(hws, r.toHomework())
	}
	return hws, nil
}

func (repo homeworkRepository) GetHomework(ctx context.Context, id string) (homework.Homework, error) {
	if _, err := uuid.Parse(id); err != nil {
		return homework.Homework{}, core.ErrNotFound
	}
	query, args, err := psql.Select(homeworkColumns...).From(homeworkTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "building homework query")
	}

	var r homeworkRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return homework.Homework{}, trapNoRowsErr(err, "finding homework")
	}
	return r.toHomework(), nil
}

func (repo homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	query, args, err := psql.Update(homeworkTable).
		SetMap(map[string]interface{}{
			"title":       hw.Title,
			"description": nullStr(hw.Description),
			"subject":     nullStr(hw.Subject),
			"due_at":      hw.DueAt.UTC(),
			"updated_at":  hw.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": hw.ID}).
		ToSql()
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "building homework update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return homework.Homework{}, errors.Wrap(err, "updating homework")
	}
	return hw, nil
}

func (repo homeworkRepository) DeleteHomeworkByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(homeworkTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building homework delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting homework")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting homework")
	}
	return int(cnt), nil
}
