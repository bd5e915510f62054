package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
	redisdb "github.com/trezcool/campus/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	user.PasswordCost = conf.Enrol.BcryptCost

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	store, closeStore, err := setUpStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	allocator, closeAllocator, err := newAllocator(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up sequence allocator: %v", err), err)
	}
	defer func() { _ = closeAllocator() }()

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	// set up services
	mailSvc := emailsvc.NewConsoleService(
		log.New(os.Stdout, "MAIL : ", log.LstdFlags),
		conf,
	)
	recoverySvc := user.NewService(school.NewResolver(store), mailSvc, logger, conf)
	orchestrator := enrol.NewOrchestrator(store, allocator, validate, logger, conf.Enrol)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Importer:    orchestrator,
			RecoverySvc: recoverySvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStore opens (creating and migrating it if need be) the database.
func setUpStore(conf *core.Config) (school.Store, func() error, error) {
	if conf.Database.InMemory {
		return inmemdb.NewStore(inmemdb.Open()), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(context.Background(), db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewStore(db), db.Close, nil
}

func newAllocator(conf *core.Config) (enrol.Allocator, func() error, error) {
	noop := func() error { return nil }

	switch conf.Enrol.Sequence {
	case "scan":
		return enrol.ScanAllocator{}, noop, nil
	case "db":
		return enrol.CounterAllocator{}, noop, nil
	case "redis":
		client, err := redisdb.Open(context.Background(), conf)
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewSequenceAllocator(client), client.Close, nil
	}
	return nil, nil, errors.Errorf("unknown sequence backend %q", conf.Enrol.Sequence)
}
