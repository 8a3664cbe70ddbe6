package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/stg-academy/haksa/apps/api/echo"
	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
	emailsvc "github.com/stg-academy/haksa/services/email"
	exportsvc "github.com/stg-academy/haksa/services/export"
	livesvc "github.com/stg-academy/haksa/services/live"
	logsvc "github.com/stg-academy/haksa/services/logger"
	"github.com/stg-academy/haksa/storage/codestore"
	"github.com/stg-academy/haksa/storage/database"
	sqlxrepos "github.com/stg-academy/haksa/storage/database/sqlx"
)

var build = "dev" // set by the build system

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig(build)

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	codes, err := codestore.NewRedisStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	hub := livesvc.NewHub(logger)
	defer hub.Close()

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), codes, courseSvc, hub)
	kiosk := attendance.NewKiosk(attSvc, courseSvc, userDirectory{svc: usrSvc}, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		AttendanceSvc: attSvc,
		Kiosk:         kiosk,
		Exporter:      exportsvc.NewExcelExporter(),
		Hub:           hub,
	})

	go server.Start()

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

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

// userDirectory exposes the user service as the kiosk's learner directory.
type userDirectory struct {
	svc *user.Service
}

var _ attendance.UserDirectory = userDirectory{}

func (d userDirectory) QueryDirectory(ctx context.Context, skip, limit int) ([]attendance.DirectoryUser, error) {
	users, err := d.svc.QueryAll(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	dir := make([]attendance.DirectoryUser, len(users))
	for i, usr := range users {
		dir[i] = attendance.DirectoryUser{ID: usr.ID, Name: usr.Name, Information: usr.Information}
	}
	return dir, nil
}
