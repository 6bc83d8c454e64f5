// Package inmemdb is a map-backed store used by the test suites. It mirrors
// the behavior of the PostgreSQL repositories, including cascade deletes.
package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/homework"
	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users    map[string]*user.User
	classes  map[string]*class.Class
	grades   map[string]*grade.Grade
	homework map[string]*homework.Homework
	events   map[string]*event.Event
	messages map[string]*message.Message
}

func Open() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		classes:  make(map[string]*class.Class),
		grades:   make(map[string]*grade.Grade),
		homework: make(map[string]*homework.Homework),
		events:   make(map[string]*event.Event),
		messages: make(map[string]*message.Message),
	}
}
