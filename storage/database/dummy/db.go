package dummydb

import (
	"sync"

	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTables
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*user.User
	}

	courseTables struct {
		sync.RWMutex
		sessionPK   int
		lecturePK   int
		sessions    map[int]*course.Session
		lectures    map[int]*course.Lecture
		enrollments map[int]map[int]*course.Enrollment // sessionID -> userID
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
		// byPair enforces the unique (lecture, user) index
		byPair map[[2]int]string
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		course: &courseTables{
			sessions:    make(map[int]*course.Session),
			lectures:    make(map[int]*course.Lecture),
			enrollments: make(map[int]map[int]*course.Enrollment),
		},
		attendance: &attendanceTable{
			table:  make(map[string]*attendance.Attendance),
			byPair: make(map[[2]int]string),
		},
	}
	return db, nil
}
