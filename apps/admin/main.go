package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/user"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	user.PasswordCost = conf.Enrol.BcryptCost

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	cli := commandLine{logger: logger, out: os.Stdout}

	// set up DB
	if conf.Database.InMemory {
		cli.store = inmemdb.NewStore(inmemdb.Open())
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		cli.store = sqlxrepos.NewStore(db)
	}

	// the CLI has no redis: anything but "scan" uses the transactional counter
	var allocator enrol.Allocator = enrol.CounterAllocator{}
	if conf.Enrol.Sequence == "scan" {
		allocator = enrol.ScanAllocator{}
	}
	cli.importer = enrol.NewOrchestrator(
		cli.store,
		allocator,
		core.NewValidator(core.NewTranslator()),
		logger,
		conf.Enrol,
	)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
