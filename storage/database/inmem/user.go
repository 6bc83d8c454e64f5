package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.users {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !matchUser(*usr, filter) {
			continue
		}
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Surname), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if filter.Role != "" && usr.Role != filter.Role {
		return false
	}
	if filter.ClassID != "" && usr.ClassID != filter.ClassID {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	if filter.NoParent && usr.ParentID != "" {
		return false
	}
	return true
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, core.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if usr.Email == filter.Email {
			return *usr, nil
		}
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, core.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		delete(repo.db.users, id)
		cnt++

		// emulate the FK cascades of the real schema
		for gid, grd := range repo.db.grades {
			if grd.StudentID == id || grd.AuthorID == id {
				delete(repo.db.grades, gid)
			}
		}
		for hid, hw := range repo.db.homework {
			if hw.AuthorID == id {
				delete(repo.db.homework, hid)
			}
		}
		for mid, msg := range repo.db.messages {
			if msg.SenderID == id || msg.RecipientID == id {
				delete(repo.db.messages, mid)
			}
		}
		for eid, evt := range repo.db.events {
			if evt.AuthorID == id {
				delete(repo.db.events, eid)
			}
		}
		for _, usr := range repo.db.users {
			if usr.ParentID == id {
				usr.ParentID = ""
			}
		}
	}
	return cnt, nil
}

func (repo *userRepository) ChildrenOf(ctx context.Context, parentID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, usr := range repo.db.users {
		if usr.ParentID == parentID && usr.Role == policy.RoleStudent {
			ids = append(ids, usr.ID)
		}
	}
	return ids, nil
}

func (repo *userRepository) ClassOf(ctx context.Context, userID string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[userID]; ok {
		return usr.ClassID, nil
	}
	return "", nil
}

func (repo *userRepository) RoleOf(ctx context.Context, id string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr.Role, nil
	}
	return "", core.ErrNotFound
}

func (repo *userRepository) Lookup(ctx context.Context, id string) (message.Contact, error) {
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
