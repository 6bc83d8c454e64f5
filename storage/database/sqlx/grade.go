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
	"github.com/trezcool/shule/core/grade"
)

const gradeTable = "grades"

var gradeColumns = []string{
	"id", "student_id", "author_id", "subject", "score", "coefficient",
	"evaluation_type", "comment", "created_at", "updated_at",
}

type gradeRow struct {
	ID             string         `db:"id"`
	StudentID      string         `db:"student_id"`
	AuthorID       string         `db:"author_id"`
	Subject        string         `db:"subject"`
	Score          float64        `db:"score"`
	Coefficient    float64        `db:"coefficient"`
	EvaluationType sql.NullString `db:"evaluation_type"`
	Comment        sql.NullString `db:"comment"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r gradeRow) toGrade() grade.Grade {
	return grade.Grade{
		ID:             r.ID,
		StudentID:      r.StudentID,
		AuthorID:       r.AuthorID,
		Subject:        r.Subject,
		Score:          r.Score,
		Coefficient:    r.Coefficient,
		EvaluationType: r.EvaluationType.String,
		Comment:        r.Comment.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	grd.ID = uuid.New().String()
	query, args, err := psql.Insert(gradeTable).
		Columns(gradeColumns...).
		Values(
			grd.ID, grd.StudentID, grd.AuthorID, grd.Subject, grd.Score, grd.Coefficient,
			nullStr(grd.EvaluationType), nullStr(grd.Comment), grd.CreatedAt.UTC(), grd.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "building grade insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grd, nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter grade.RepoFilter, ordering []core.DBOrdering) ([]grade.Grade, error) {
	qb := psql.Select(gradeColumns...).From(gradeTable)
	if filter.StudentIDs != nil {
		qb = qb.Where(sq.Eq{"student_id": filter.StudentIDs})
	}
	if filter.AuthorID != "" {
		qb = qb.Where(sq.Eq{"author_id": filter.AuthorID})
	}
	if filter.Subject != "" {
		qb = qb.Where("LOWER(subject) = LOWER(?)", filter.Subject)
	}
	qb = qb.OrderBy(orderBy(ordering, "created_at DESC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building grade query")
	}

	var rows []gradeRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toGrade())
	}
	return grades, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, id string) (grade.Grade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.Grade{}, core.ErrNotFound
	}
	query, args, err := psql.Select(gradeColumns...).From(gradeTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "building grade query")
	}

	var r gradeRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, "finding grade")
	}
	return r.toGrade(), nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	query, args, err := psql.Update(gradeTable).
		SetMap(map[string]interface{}{
			"subject":         grd.Subject,
			"score":           grd.Score,
			"coefficient":     grd.Coefficient,
			"evaluation_type": nullStr(grd.EvaluationType),
			"comment":         nullStr(grd.Comment),
			"updated_at":      grd.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": grd.ID}).
		ToSql()
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "building grade update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	return grd, nil
}

func (repo gradeRepository) DeleteGradesByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(gradeTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building grade delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting grades")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting grades")
	}
	return int(cnt), nil
}
