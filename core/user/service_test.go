package user_test

import (
	"context"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type fixture struct {
	svc       *user.Service
	usrRepo   user.Repository
	classRepo class.Repository
	conf      *core.Config
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	classRepo := inmemdb.NewClassRepository(db)

	conf := &core.Config{
		AppName:                   "Shule",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Shule", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	return &fixture{
		svc:       user.NewService(usrRepo, classRepo, mailSvc, conf),
		usrRepo:   usrRepo,
		classRepo: classRepo,
		conf:      conf,
	}
}

func (fx *fixture) createUser(t *testing.T, name, role string, active bool) user.User {
	t.Helper()
	usr := user.User{
		Name:     name,
		Surname:  "Kalenga",
		Email:    strings.ToLower(name) + "@shule.cd",
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, usr.SetPassword("LeTresBonMotDePasse"))
	usr, err := fx.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func TestUserService_Resolve(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	active := fx.createUser(t, "Awa", policy.RoleAdmin, true)
	inactive := fx.createUser(t, "Dormeur", policy.RoleParent, false)

	usr, err := fx.svc.Resolve(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, usr.ID)

	_, err = fx.svc.Resolve(ctx, inactive.ID)
	assert.Equal(t, core.ErrUnauthenticated, err)

	_, err = fx.svc.Resolve(ctx, "gone")
	assert.Equal(t, core.ErrUnauthenticated, err)
}

func TestUserService_Create(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	admin := fx.createUser(t, "Awa", policy.RoleAdmin, true)
	prof := fx.createUser(t, "Patrice", policy.RoleTeacher, true)
	parent := fx.createUser(t, "Mireille", policy.RoleParent, true)

	t.Run("admin only", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, prof.Caller(), user.NewUser{})
		assert.Equal(t, core.ErrForbidden, err)
	})

	t.Run("parent reference must be a parent", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, admin.Caller(), user.NewUser{
			Name: "Junior", Surname: "Kalenga", Email: "junior@shule.cd",
			Password: "pwd", Role: policy.RoleStudent, ParentID: prof.ID,
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "parent_id", vErr.Fields[0].Field)
	})

	t.Run("unknown class rejected", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, admin.Caller(), user.NewUser{
			Name: "Junior", Surname: "Kalenga", Email: "junior@shule.cd",
			Password: "pwd", Role: policy.RoleStudent, ClassID: "e9d7a24e-50fe-46fc-a761-b6cf0c29a169",
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "class_id", vErr.Fields[0].Field)
	})

	t.Run("eleve with valid references", func(t *testing.T) {
		cls, err := fx.classRepo.CreateClass(ctx, class.Class{Name: "6eme A"})
		require.NoError(t, err)

		usr, err := fx.svc.Create(ctx, admin.Caller(), user.NewUser{
			Name: "Junior", Surname: "Kalenga", Email: "junior@shule.cd",
			Password: "pwd", Role: policy.RoleStudent, ClassID: cls.ID, ParentID: parent.ID,
		})
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("pwd"))

		// the relationship index picks the link up immediately
		children, err := fx.usrRepo.ChildrenOf(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{usr.ID}, children)
	})
}

func TestUserService_QueryIsAdminOnly(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	admin := fx.createUser(t, "Awa", policy.RoleAdmin, true)
	prof := fx.createUser(t, "Patrice", policy.RoleTeacher, true)

	users, err := fx.svc.Query(ctx, admin.Caller(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = fx.svc.Query(ctx, prof.Caller(), nil, nil)
	assert.Equal(t, core.ErrForbidden, err)
}

func TestUserService_GetByID(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	prof := fx.createUser(t, "Patrice", policy.RoleTeacher, true)
	eleve := fx.createUser(t, "Junior", policy.RoleStudent, true)

	t.Run("self detail", func(t *testing.T) {
		usr, err := fx.svc.GetByID(ctx, eleve.Caller(), eleve.ID)
		require.NoError(t, err)
		assert.Equal(t, eleve.ID, usr.ID)
	})

	t.Run("someone else's record reads as missing", func(t *testing.T) {
		_, err := fx.svc.GetByID(ctx, prof.Caller(), eleve.ID)
		assert.Equal(t, core.ErrNotFound, err)
	})
}

func TestUserService_passwordReset(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	usr := fx.createUser(t, "Mireille", policy.RoleParent, true)

	emailsvc.SentMessages = nil
	require.NoError(t, fx.svc.RequestPasswordReset(ctx, usr.Email))
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].BodyStr, "uid="+user.EncodeUID(usr))

	token, err := user.MakeToken(fx.conf, usr)
	require.NoError(t, err)

	t.Run("bad uid", func(t *testing.T) {
		err := fx.svc.ResetPassword(ctx, user.ResetUserPassword{UID: "???", Token: token, Password: "x"})
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("bad token", func(t *testing.T) {
		err := fx.svc.ResetPassword(ctx, user.ResetUserPassword{UID: user.EncodeUID(usr), Token: "bogus", Password: "x"})
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("valid reset", func(t *testing.T) {
		require.NoError(t, fx.svc.ResetPassword(ctx, user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: token, Password: "UnNouveauMotDePasse",
		}))
		updated, err := fx.usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.NoError(t, updated.CheckPassword("UnNouveauMotDePasse"))

		// the token died with the old password hash
		err = fx.svc.ResetPassword(ctx, user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: token, Password: "EncoreUnAutre",
		})
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestUserService_Delete(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	admin := fx.createUser(t, "Awa", policy.RoleAdmin, true)
	prof := fx.createUser(t, "Patrice", policy.RoleTeacher, true)
	eleve := fx.createUser(t, "Junior", policy.RoleStudent, true)

	t.Run("non-admins cannot delete", func(t *testing.T) {
		assert.Equal(t, core.ErrNotFound, fx.svc.Delete(ctx, prof.Caller(), eleve.ID))
		assert.Equal(t, core.ErrForbidden, fx.svc.Delete(ctx, eleve.Caller(), eleve.ID))
	})

	t.Run("admin deletes, twice is NotFound", func(t *testing.T) {
		require.NoError(t, fx.svc.Delete(ctx, admin.Caller(), eleve.ID))
		assert.Equal(t, core.ErrNotFound, fx.svc.Delete(ctx, admin.Caller(), eleve.ID))
	})

	t.Run("multiple delete is admin only", func(t *testing.T) {
		assert.Equal(t, core.ErrForbidden, fx.svc.DeleteMultiple(ctx, prof.Caller(), prof.ID))
		require.NoError(t, fx.svc.DeleteMultiple(ctx, admin.Caller(), prof.ID))
	})
}
