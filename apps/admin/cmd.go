package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
	errNoDB = errors.New("no database: DATABASE_INMEMORY is set")
)

type commandLine struct {
	db       *sql.DB // nil with the in-memory store
	store    school.Store
	importer importer
	logger   core.Logger
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  import -file FILE - import students from a .xlsx or .csv file")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword [-role ROLE] -username USERNAME|EMAIL - reset an account's password")
	_, _ = fmt.Fprintln(cli.out, "  adduser -role admin|teacher -username USERNAME -name NAME -surname SURNAME [-email EMAIL] - add a staff member")
	_, _ = fmt.Fprintln(cli.out, "  addclass -name NAME - add a class")
	_, _ = fmt.Fprintln(cli.out, "  addgrade -name NAME - add a grade")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The .xlsx (first sheet) or .csv dataset; the first row names the columns.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordRole := resetPasswordCmd.String("role", "", "The account's role; all roles are searched when empty.")
	resetPasswordUname := resetPasswordCmd.String("username", "", "The account's username or email. The password will be prompted next.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserRole := addUserCmd.String("role", string(user.RoleAdmin), "admin or teacher.")
	addUserUname := addUserCmd.String("username", "", "The username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The email.")
	addUserName := addUserCmd.String("name", "", "The first name.")
	addUserSurname := addUserCmd.String("surname", "", "The last name.")

	addClassCmd := flag.NewFlagSet("addclass", flag.ContinueOnError)
	addClassName := addClassCmd.String("name", "", "The class name.")

	addGradeCmd := flag.NewFlagSet("addgrade", flag.ContinueOnError)
	addGradeName := addGradeCmd.String("name", "", "The grade name.")

	for _, fs := range []*flag.FlagSet{importCmd, resetPasswordCmd, addUserCmd, addClassCmd, addGradeCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if cli.db == nil {
			return errNoDB
		}
		return migrateFunc(ctx, cli.db, args[2], args[3:]...)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *importFile)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordRole, *resetPasswordUname, pwd)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserName == "" || *addUserSurname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserRole, user.Identity{
			Username: *addUserUname,
			Email:    *addUserEmail,
			Name:     *addUserName,
			Surname:  *addUserSurname,
		}, pwd)

	case "addclass":
		if err := addClassCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addClassName == "" {
			addClassCmd.Usage()
			return errHelp
		}
		c, err := cli.store.Classes().CreateClass(ctx, school.Class{Name: *addClassName})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "class %q created with ID %d\n", c.Name, c.ID)
		return nil

	case "addgrade":
		if err := addGradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addGradeName == "" {
			addGradeCmd.Usage()
			return errHelp
		}
		g, err := cli.store.Classes().CreateGrade(ctx, school.Grade{Name: *addGradeName})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "grade %q created with ID %d\n", g.Name, g.ID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
