package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/homework"
	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server Server
	conf   *core.Config

	usrRepo   user.Repository
	classRepo class.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Shule",
		SecretKey:        "8kTWLe2vBCKK9tLn5ApMfsjEMBqTFFjqCRsV9qVkZVeGjvGKR7",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@localhost"},

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	classRepo := inmemdb.NewClassRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,

		UserSvc:     user.NewService(usrRepo, classRepo, mailSvc, conf),
		ClassSvc:    class.NewService(classRepo, usrRepo, usrRepo),
		GradeSvc:    grade.NewService(inmemdb.NewGradeRepository(db), usrRepo, usrRepo),
		HomeworkSvc: homework.NewService(inmemdb.NewHomeworkRepository(db), usrRepo, classRepo, usrRepo),
		EventSvc:    event.NewService(inmemdb.NewEventRepository(db), usrRepo),
		MessageSvc:  message.NewService(inmemdb.NewMessageRepository(db), usrRepo, usrRepo, mailSvc, conf),
	})

	return &testApp{
		server:    server,
		conf:      conf,
		usrRepo:   usrRepo,
		classRepo: classRepo,
	}
}

func (app *testApp) createUser(t *testing.T, name, role, classID, parentID string, active bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Surname:   "Kalenga",
		Email:     strings.ToLower(name) + "@shule.cd",
		Role:      role,
		ClassID:   classID,
		ParentID:  parentID,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("LeTresBonMotDePasse"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := app.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createClass(t *testing.T, name string) class.Class {
	t.Helper()
	now := time.Now().UTC()
	cls, err := app.classRepo.CreateClass(context.Background(), class.Class{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(app.conf, usr)
	token, err := GenerateToken(app.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
