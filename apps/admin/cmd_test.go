package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
	"github.com/stg-academy/haksa/storage/codestore"
	dummydb "github.com/stg-academy/haksa/storage/database/dummy"
)

var (
	usrRepo   user.Repository
	courseSvc *course.Service
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	courseSvc = course.NewService(dummydb.NewCourseRepository(db))

	conf := &core.Config{AttendanceCodeTTL: 15 * time.Minute}
	attSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), codestore.NewInMemStore(), courseSvc, nil)

	return &commandLine{
		db:      new(sqlx.DB),
		conf:    conf,
		usrRepo: usrRepo,
		attSvc:  attSvc,
	}
}

func createUser(t *testing.T, uname, email, pwd string) user.User {
	t.Helper()

	usr := user.User{Name: uname, Username: uname, Email: email, IsActive: true}
	if err := usr.SetPassword(pwd); err != nil {
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

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
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
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
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

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "banana", "awe@test.kr", "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
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
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
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

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "kimchi"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "kimchi", "-email", "k@test.kr"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "kimchi", "-email", "k@test.kr"}, extra: extra{pwd: "s3cret"}},
		{name: "create admin", args: []string{"adduser", "-username", "boss", "-email", "boss@test.kr", "-admin"}, extra: extra{pwd: "s3cret"}},
		{name: "update existing", args: []string{"adduser", "-username", "kimchi", "-email", "k@test.kr"}, extra: extra{pwd: "newpwd"}},
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
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	boss, err := usrRepo.GetUserByUsernameOrEmail(context.Background(), "boss")
	if err != nil {
		t.Fatalf("GetUserByUsernameOrEmail() failed: %v", err)
	}
	if !boss.IsAdmin() {
		t.Error("admin flag did not grant admin roles")
	}
}

func Test_commandLine_issueCode(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	ses, err := courseSvc.CreateSession(ctx, course.NewSession{Name: "2026 Fall"})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	lec, err := courseSvc.CreateLecture(ctx, ses.ID, course.NewLecture{
		Title:       "Week 1",
		Sequence:    1,
		LectureDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no lecture flag", args: []string{"issuecode"}, wantErr: errHelp},
		{name: "lecture not found", args: []string{"issuecode", "-lecture", "99"}, wantErr: attendance.ErrLectureNotFound},
		{name: "ok", args: []string{"issuecode", "-lecture", strconv.Itoa(lec.ID)}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
