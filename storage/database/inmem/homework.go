package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/homework"
)

type homeworkRepository struct {
	db *DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *DB) *homeworkRepository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	hw.ID = uuid.New().String()
	repo.db.homework[hw.ID] = &hw
	return hw, nil
}

func (repo *homeworkRepository) QueryHomework(ctx context.Context, filter homework.RepoFilter, ordering []core.DBOrdering) ([]homework.Homework, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make(map[string]bool, len(filter.ClassIDs))
	for _, id := range filter.ClassIDs {
		classes[id] = true
	}

	hws := make([]homework.Homework, 0, len(repo.db.homework))
	for _, hw := range repo.db.homework {
		if filter.ClassIDs != nil && !classes[hw.ClassID] {
			continue
		}
		if filter.AuthorID != "" && hw.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Subject != "" && !strings.EqualFold(hw.Subject, filter.Subject) {
			continue
		}
		hws = append(hws, *hw)
	}
	sort.Slice(hws, func(i, j int) bool { return hws[i].DueAt.Before(hws[j].DueAt) })
	return hws, nil
}

func (repo *homeworkRepository) GetHomework(ctx context.Context, id string) (homework.Homework, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if hw, ok := repo.db.homework[id]; ok {
		return *hw, nil
	}
	return homework.Homework{}, core.ErrNotFound
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.homework[hw.ID]; !ok {
		return homework.Homework{}, core.ErrNotFound
	}
	repo.db.homework[hw.ID] = &hw
	return hw, nil
}

func (repo *homeworkRepository) DeleteHomeworkByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.homework[id]; ok {
			delete(repo.db.homework, id)
			cnt++
		}
	}
	return cnt, nil
}
