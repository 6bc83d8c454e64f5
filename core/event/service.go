package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		QueryEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEventsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
		rel  policy.Relationships
	}
)

func NewService(repo Repository, rel policy.Relationships) *Service {
	return &Service{repo: repo, rel: rel}
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, ne NewEvent) (Event, error) {
	if err := policy.CanCreate(caller, policy.KindEvent); err != nil {
		return Event{}, err
	}
	now := time.Now().UTC()
	evt := Event{
		AuthorID:    caller.ID,
		Title:       ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !ne.EndsAt.IsZero() {
		evt.EndsAt = ne.EndsAt.UTC()
	}
	return svc.repo.CreateEvent(ctx, evt)
}

// Query returns the shared calendar; every authenticated role sees all events.
func (svc *Service) Query(ctx context.Context, caller policy.Caller, filter QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindEvent, svc.rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing event scope")
	}
	if !scope.All {
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindEvent, svc.rel)
	if err != nil {
		return Event{}, errors.Wrap(err, "computing event scope")
	}
	if !scope.Contains(evt.Row()) {
		return Event{}, core.ErrNotFound
	}
	return evt, nil
}

func (svc *Service) Update(ctx context.Context, caller policy.Caller, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return Event{}, err
	}
	if err = policy.CanMutate(caller, policy.ActionUpdate, evt.Row()); err != nil {
		return Event{}, err
	}

	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Description != nil {
		evt.Description = core.CleanString(*ue.Description)
	}
	if ue.Location != nil {
		evt.Location = core.CleanString(*ue.Location)
	}
	if ue.StartsAt != nil {
		evt.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		evt.EndsAt = ue.EndsAt.UTC()
	}
	evt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	evt, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, evt.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteEventsByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}
