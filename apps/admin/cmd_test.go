package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: usrRepo,
	}
}

func createUser(t *testing.T, name, email, role, parentID string) user.User {
	t.Helper()
	usr := user.User{
		Name:     name,
		Surname:  "Kalenga",
		Email:    email,
		Role:     role,
		ParentID: parentID,
		IsActive: true,
	}
	if err := usr.SetPassword("LeTresBonMotDePasse"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "activity", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("LeMotDePasseAdmin"), nil }

	args := []string{"admin", "addadmin", "-name", "Awa", "-surname", "Kalenga", "-email", "awa@shule.cd"}
	if err := cli.run(args); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "awa@shule.cd"})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if usr.Role != policy.RoleAdmin {
		t.Errorf("role = %s, want %s", usr.Role, policy.RoleAdmin)
	}
	if !usr.IsActive {
		t.Error("new admin is not active")
	}
	if err = usr.CheckPassword("LeMotDePasseAdmin"); err != nil {
		t.Error("failed to set password")
	}

	// running again updates the same account
	if err = cli.run(args); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	again, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "awa@shule.cd"})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if again.ID != usr.ID {
		t.Errorf("addadmin created a duplicate account: %s != %s", again.ID, usr.ID)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "Mireille", "mireille@shule.cd", policy.RoleParent, "")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@shule.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@shule.cd"}, extra: extra{pwd: "lol"}, wantErr: core.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "UnNouveauMotDePasse"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_assignParents(t *testing.T) {
	cli := setup(t)

	parent1 := createUser(t, "Mireille", "mireille@shule.cd", policy.RoleParent, "")
	parent2 := createUser(t, "Solange", "solange@shule.cd", policy.RoleParent, "")
	createUser(t, "Junior", "junior@shule.cd", policy.RoleStudent, "")
	createUser(t, "Grace", "grace@shule.cd", policy.RoleStudent, "")
	createUser(t, "Fiston", "fiston@shule.cd", policy.RoleStudent, parent1.ID) // already linked

	if err := cli.run([]string{"admin", "assignparents"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}

	orphans, err := usrRepo.QueryUsers(context.Background(), &user.QueryFilter{Role: policy.RoleStudent, NoParent: true}, nil)
	if err != nil {
		t.Fatalf("QueryUsers() failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("eleves left without a parent: %d", len(orphans))
	}

	children1, _ := usrRepo.ChildrenOf(context.Background(), parent1.ID)
	children2, _ := usrRepo.ChildrenOf(context.Background(), parent2.ID)
	if got := len(children1) + len(children2); got != 3 {
		t.Errorf("linked children = %d, want 3", got)
	}
}
