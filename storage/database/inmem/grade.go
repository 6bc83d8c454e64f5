package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd.ID = uuid.New().String()
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter grade.RepoFilter, ordering []core.DBOrdering) ([]grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make(map[string]bool, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		students[id] = true
	}

	grades := make([]grade.Grade, 0, len(repo.db.grades))
	for _, grd := range repo.db.grades {
		if filter.StudentIDs != nil && !students[grd.StudentID] {
			continue
		}
		if filter.AuthorID != "" && grd.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Subject != "" && !strings.EqualFold(grd.Subject, filter.Subject) {
			continue
		}
		grades = append(grades, *grd)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].CreatedAt.After(grades[j].CreatedAt) })
	return grades, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, id string) (grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grd, ok := repo.db.grades[id]; ok {
		return *grd, nil
	}
	return grade.Grade{}, core.ErrNotFound
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[grd.ID]; !ok {
		return grade.Grade{}, core.ErrNotFound
	}
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *gradeRepository) DeleteGradesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.grades[id]; ok {
			delete(repo.db.grades, id)
			cnt++
		}
	}
	return cnt, nil
}
