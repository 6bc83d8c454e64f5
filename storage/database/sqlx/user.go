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
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

const userTable = "users"

var userColumns = []string{
	"id", "name", "surname", "email", "role", "class_id", "parent_id",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Surname      string         `db:"surname"`
	Email        string         `db:"email"`
	Role         string         `db:"role"`
	ClassID      sql.NullString `db:"class_id"`
	ParentID     sql.NullString `db:"parent_id"`
	IsActive     bool           `db:"is_active"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Surname:      r.Surname,
		Email:        r.Email,
		Role:         r.Role,
		ClassID:      r.ClassID.String,
		ParentID:     r.ParentID.String,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) values(usr user.User) map[string]interface{} {
	return map[string]interface{}{
		"name":          usr.Name,
		"surname":       usr.Surname,
		"email":         usr.Email,
		"role":          usr.Role,
		"class_id":      nullStr(usr.ClassID),
		"parent_id":     nullStr(usr.ParentID),
		"is_active":     usr.IsActive,
		"password_hash": usr.PasswordHash,
		"created_at":    usr.CreatedAt.UTC(),
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	qb := psql.Select("COUNT(*)").From(userTable).Where(sq.Eq{"email": email})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var cnt int
	if err = repo.db.GetContext(ctx, &cnt, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	vals := repo.values(usr)
	vals["id"] = usr.ID

	query, args, err := psql.Insert(userTable).SetMap(vals).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	qb := psql.Select(userColumns...).From(userTable)

	if filter != nil {
		// users with Name, Surname or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			qb = qb.Where(sq.Or{
				sq.ILike{"name": val},
				sq.ILike{"surname": val},
				sq.ILike{"email": val},
			})
		}
		if filter.Role != "" {
			qb = qb.Where(sq.Eq{"role": filter.Role})
		}
		if filter.ClassID != "" {
			qb = qb.Where(sq.Eq{"class_id": filter.ClassID})
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
		if filter.NoParent {
			qb = qb.Where(sq.Eq{"parent_id": nil})
		}
	}
	qb = qb.OrderBy(orderBy(ordering, "created_at DESC"))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building user query")
	}

	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	qb := psql.Select(userColumns...).From(userTable)
	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, core.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	} else {
		qb = qb.Where(sq.Eq{"email": filter.Email})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}

	var r userRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user")
	}
	return r.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Update(userTable).SetMap(repo.values(usr)).Where(sq.Eq{"id": usr.ID}).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user update")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := psql.Delete(userTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building user delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}

// ChildrenOf backs the parent visibility filters with an indexed lookup on parent_id.
func (repo userRepository) ChildrenOf(ctx context.Context, parentID string) ([]string, error) {
	query, args, err := psql.Select("id").From(userTable).
		Where(sq.Eq{"parent_id": parentID, "role": policy.RoleStudent}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building children query")
	}
	var ids []string
	if err = repo.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	return ids, nil
}

// ClassOf returns the class an eleve or professeur belongs to; "" when none.
func (repo userRepository) ClassOf(ctx context.Context, userID string) (string, error) {
	query, args, err := psql.Select("class_id").From(userTable).Where(sq.Eq{"id": userID}).ToSql()
	if err != nil {
		return "", errors.Wrap(err, "building class query")
	}
	var classID sql.NullString
	if err = repo.db.GetContext(ctx, &classID, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "querying user class")
	}
	return classID.String, nil
}

// RoleOf serves the referential checks of the grade and homework services.
func (repo userRepository) RoleOf(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", core.ErrNotFound
	}
	query, args, err := psql.Select("role").From(userTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", errors.Wrap(err, "building role query")
	}
	var role string
	if err = repo.db.GetContext(ctx, &role, query, args...); err != nil {
		return "", trapNoRowsErr(err, "querying user role")
	}
	return role, nil
}

// Lookup serves the messaging service's recipient resolution.
func (repo userRepository) Lookup(ctx context.Context, id string) (message.Contact, error) {
	usr, err := repo.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		return message.Contact{}, err
	}
	return message.Contact{
		ID:      usr.ID,
		Name:    usr.Name,
		Surname: usr.Surname,
		Email:   usr.Email,
		Role:    usr.Role,
	}, nil
}
