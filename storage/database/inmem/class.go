package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CheckClassNameUniqueness(ctx context.Context, name string, excludedClasses ...class.Class) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedClasses))
	for _, c := range excludedClasses {
		excluded[c.ID] = true
	}
	for _, cls := range repo.db.classes {
		if strings.EqualFold(cls.Name, name) && !excluded[cls.ID] {
			return class.ErrNameExists
		}
	}
	return nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, ids []string, ordering []core.DBOrdering) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	classes := make([]class.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		if ids != nil && !wanted[cls.ID] {
			continue
		}
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, core.ErrNotFound
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.Class{}, core.ErrNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.classes[id]; !ok {
			continue
		}
		delete(repo.db.classes, id)
		cnt++

		// emulate the FK cascades of the real schema
		for hid, hw := range repo.db.homework {
			if hw.ClassID == id {
				delete(repo.db.homework, hid)
			}
		}
		for _, usr := range repo.db.users {
			if usr.ClassID == id {
				usr.ClassID = ""
			}
		}
	}
	return cnt, nil
}

func (repo *classRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.classes[id]
	return ok, nil
}
