package main

import (
	"log"
	"os"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/storage/codestore"
	"github.com/stg-academy/haksa/storage/database"
	sqlxrepos "github.com/stg-academy/haksa/storage/database/sqlx"
)

var build = "dev" // set by the build system

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig(build)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	codes, err := codestore.NewRedisStore(conf)
	errAndDie(err)

	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), codes, courseSvc, nil)

	// start CLI
	cli := commandLine{
		db:      db,
		conf:    conf,
		usrRepo: sqlxrepos.NewUserRepository(db),
		attSvc:  attSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
