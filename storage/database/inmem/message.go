package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = uuid.New().String()
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter message.RepoFilter, ordering []core.DBOrdering) ([]message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]message.Message, 0, len(repo.db.messages))
	for _, msg := range repo.db.messages {
		if filter.SenderID != "" && msg.SenderID != filter.SenderID {
			continue
		}
		if filter.RecipientID != "" && msg.RecipientID != filter.RecipientID {
			continue
		}
		if filter.PartyID != "" && msg.SenderID != filter.PartyID && msg.RecipientID != filter.PartyID {
			continue
		}
		if filter.Unread && msg.Read {
			continue
		}
		msgs = append(msgs, *msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.After(msgs[j].SentAt) })
	return msgs, nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, id string) (message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return *msg, nil
	}
	return message.Message{}, core.ErrNotFound
}

func (repo *messageRepository) SetMessageRead(ctx context.Context, id string, read bool) (message.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg, ok := repo.db.messages[id]
	if !ok {
		return message.Message{}, core.ErrNotFound
	}
	msg.Read = read
	return *msg, nil
}

func (repo *messageRepository) DeleteMessagesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.messages[id]; ok {
			delete(repo.db.messages, id)
			cnt++
		}
	}
	return cnt, nil
}
