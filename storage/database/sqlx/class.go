package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
)

const classTable = "classes"

var classColumns = []string{"id", "name", "created_at", "updated_at"}

type classRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r classRow) toClass() class.Class {
	return class.Class{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) CheckClassNameUniqueness(ctx context.Context, name string, excludedClasses ...class.Class) error {
	qb := psql.Select("COUNT(*)").From(classTable).Where("LOWER(name) = LOWER(?)", name)
	if len(excludedClasses) > 0 {
		ids := make([]string, 0, len(excludedClasses))
		for _, c := range excludedClasses {
			ids = append(ids, c.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var cnt int
	if err = repo.db.GetContext(ctx, &cnt, query, args...); err != nil {
		return errors.Wrap(err, "checking class name uniqueness")
	}
	if cnt > 0 {
		return class.ErrNameExists
	}
	return nil
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	query, args, err := psql.Insert(classTable).
		Columns(classColumns...).
		Values(cls.ID, cls.Name, cls.CreatedAt.UTC(), cls.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building class insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) QueryClasses(ctx context.Context, ids []string, ordering []core.DBOrdering) ([]class.Class, error) {
	qb := psql.Select(classColumns...).From(classTable)
	if ids != nil {
		qb = qb.Where(sq.Eq{"id": ids})
	}
	qb = qb.OrderBy(orderBy(ordering, "name ASC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building class query")
	}

	var rows []classRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return class.Class{}, core.ErrNotFound
	}
	query, args, err := psql.Select(classColumns...).From(classTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building class query")
	}

	var r classRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return class.Class{}, trapNoRowsErr(err, "finding class")
	}
	return r.toClass(), nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	query, args, err := psql.Update(classTable).
		Set("name", cls.Name).
		Set("updated_at", cls.UpdatedAt.UTC()).
		Where(sq.Eq{"id": cls.ID}).
		ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building class update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (repo classRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(classTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building class delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting classes")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting classes")
	}
	return int(cnt), nil
}

func (repo classRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	query, args, err := psql.Select("COUNT(*)").From(classTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building class exists query")
	}
	var cnt int
	if err = repo.db.GetContext(ctx, &cnt, query, args...); err != nil {
		return false, errors.Wrap(err, "checking class existence")
	}
	return cnt > 0, nil
}
