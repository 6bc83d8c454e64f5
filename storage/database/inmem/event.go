package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	evt.ID = uuid.New().String()
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0, len(repo.db.events))
	for _, evt := range repo.db.events {
		if !filter.From.IsZero() && evt.StartsAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && evt.StartsAt.After(filter.To) {
			continue
		}
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, core.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, core.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.events[id]; ok {
			delete(repo.db.events, id)
			cnt++
		}
	}
	return cnt, nil
}
