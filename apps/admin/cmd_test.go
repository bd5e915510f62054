package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
	logsvc "github.com/trezcool/campus/services/logger"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

var store *inmemdb.Store

func setup(t *testing.T) *commandLine {
	user.PasswordCost = bcrypt.MinCost

	conf := &core.Config{Env: "TEST", TestMode: true}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "ADMIN : ", 0), conf)
	store = inmemdb.NewStore(inmemdb.Open())

	// start CLI
	return &commandLine{
		db:    &sql.DB{},
		store: store,
		importer: enrol.NewOrchestrator(
			store,
			enrol.CounterAllocator{},
			core.NewValidator(core.NewTranslator()),
			logger,
			core.EnrolConfig{DefaultPassword: "Welcome@123", StudentCodePrefix: "STU"},
		),
		logger: logger,
		out:    io.Discard,
	}
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

	migrateFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
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

	t.Run("in-memory store", func(t *testing.T) {
		cli.db = nil
		assert.Equal(t, errNoDB, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	teacher := user.Identity{Username: "awe", Email: "awe@test.cd", Name: "Awe", Surname: "Some"}
	require.NoError(t, teacher.SetPassword("mdr"))
	teacher, err := store.Teachers().CreateStaff(ctx, teacher)
	require.NoError(t, err)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "unknown role", args: []string{"resetpassword", "-role", "janitor", "-username", "awe"}, extra: extra{pwd: "lol"}, wantErr: user.ErrUnknownRole},
		{name: "wrong role", args: []string{"resetpassword", "-role", "admin", "-username", "awe"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", teacher.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email and role", args: []string{"resetpassword", "-role", "teacher", "-username", teacher.Email}, extra: extra{pwd: "lmao"}},
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
				refreshed, err := store.Teachers().FindIdentity(ctx, user.NaturalKey{ID: teacher.ID})
				if err != nil {
					t.Fatalf("FindIdentity() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, teacher.PasswordHash) {
					t.Error("failed to update new password")
				}
				teacher = refreshed
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("S3cret!pwd"), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing names", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "student role", args: []string{"adduser", "-role", "student", "-username", "kid", "-name", "K", "-surname", "Id"}, wantErr: user.ErrUnknownRole},
		{name: "admin", args: []string{"adduser", "-username", "Boss", "-email", "Boss@test.cd", "-name", "Big", "-surname", "Boss"}},
		{name: "duplicate admin", args: []string{"adduser", "-username", "boss", "-name", "Big", "-surname", "Boss"}, wantErr: school.ErrDuplicate},
		{name: "teacher", args: []string{"adduser", "-role", "teacher", "-username", "prof", "-name", "Pro", "-surname", "Fessor"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	boss, err := store.Admins().FindIdentity(ctx, user.NaturalKey{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "boss@test.cd", boss.Email)
	assert.NoError(t, boss.CheckPassword("S3cret!pwd"))

	_, err = store.Teachers().FindIdentity(ctx, user.NaturalKey{Username: "prof"})
	assert.NoError(t, err)
}

func Test_commandLine_importStudents(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	class, err := store.Classes().CreateClass(ctx, school.Class{Name: "6A"})
	require.NoError(t, err)
	grade, err := store.Classes().CreateGrade(ctx, school.Grade{Name: "Grade 6"})
	require.NoError(t, err)

	dir := t.TempDir()
	csvFile := filepath.Join(dir, "students.csv")
	content := "username,name,surname,address,blood_type,sex,birthday,parent_name,parent_surname,class_id,grade_id\n" +
		fmt.Sprintf("jdoe,John,Doe,1 Main St,O+,MALE,2012-03-04,Jane,Doe,%d,%d\n", class.ID, grade.ID) +
		fmt.Sprintf("asmith,Anna,Smith,,A+,FEMALE,2012-05-06,,,%d,%d\n", class.ID, grade.ID)
	require.NoError(t, os.WriteFile(csvFile, []byte(content), 0o600))
	txtFile := filepath.Join(dir, "students.txt")
	require.NoError(t, os.WriteFile(txtFile, []byte(content), 0o600))

	tests := []cliTest{
		{name: "no file", args: []string{"import"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", "-file", filepath.Join(dir, "nope.csv")}, wantErrStr: "opening dataset"},
		{name: "unsupported file", args: []string{"import", "-file", txtFile}, wantErr: enrol.ErrUnsupportedFile},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("csv", func(t *testing.T) {
		out := new(bytes.Buffer)
		cli.out = out
		require.NoError(t, cli.run([]string{"admin", "import", "-file", csvFile}))

		var res enrol.BatchResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, 1, res.Successful)
		assert.Equal(t, 1, res.Failed)
		if assert.Len(t, res.Errors, 1) {
			assert.Equal(t, 3, res.Errors[0].Row)
			assert.Equal(t, "Missing required fields: address", res.Errors[0].Message)
		}

		st, err := store.Students().FindIdentity(ctx, user.NaturalKey{Username: "jdoe"})
		require.NoError(t, err)
		assert.Equal(t, "jdoe", st.Username)
		_, err = store.Parents().FindIdentity(ctx, user.NaturalKey{Username: "janedoe"})
		assert.NoError(t, err)
	})
}
