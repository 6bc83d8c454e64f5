package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/homework"
	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

func Test_userRepository_DeleteUsersByID_cascades(t *testing.T) {
	db := Open()
	usrRepo := NewUserRepository(db)
	gradeRepo := NewGradeRepository(db)
	hwRepo := NewHomeworkRepository(db)
	msgRepo := NewMessageRepository(db)
	evtRepo := NewEventRepository(db)
	ctx := context.Background()

	prof, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Patrice", Surname: "Kalenga", Email: "patrice@shule.cd",
		Role: policy.RoleTeacher, IsActive: true,
	})
	require.NoError(t, err)
	eleve, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Junior", Surname: "Kalenga", Email: "junior@shule.cd",
		Role: policy.RoleStudent, IsActive: true,
	})
	require.NoError(t, err)

	grd, err := gradeRepo.CreateGrade(ctx, grade.Grade{StudentID: eleve.ID, AuthorID: prof.ID, Subject: "Math", Score: 15})
	require.NoError(t, err)
	hw, err := hwRepo.CreateHomework(ctx, homework.Homework{Title: "Exercices", AuthorID: prof.ID})
	require.NoError(t, err)
	msg, err := msgRepo.CreateMessage(ctx, message.Message{SenderID: prof.ID, RecipientID: eleve.ID, Body: "bonjour"})
	require.NoError(t, err)
	evt, err := evtRepo.CreateEvent(ctx, event.Event{Title: "Reunion", AuthorID: prof.ID})
	require.NoError(t, err)

	cnt, err := usrRepo.DeleteUsersByID(ctx, prof.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cnt)

	_, err = gradeRepo.GetGrade(ctx, grd.ID)
	assert.Equal(t, core.ErrNotFound, err)
	_, err = hwRepo.GetHomework(ctx, hw.ID)
	assert.Equal(t, core.ErrNotFound, err)
	_, err = msgRepo.GetMessage(ctx, msg.ID)
	assert.Equal(t, core.ErrNotFound, err)
	_, err = evtRepo.GetEvent(ctx, evt.ID)
	assert.Equal(t, core.ErrNotFound, err)
}
