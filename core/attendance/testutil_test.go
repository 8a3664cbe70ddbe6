package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/storage/codestore"
	dummydb "github.com/stg-academy/haksa/storage/database/dummy"
)

// spyRepo counts mutating calls on its way through to the real repository.
type spyRepo struct {
	attendance.Repository
	createCalls int
	updateCalls int
}

func (s *spyRepo) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	s.createCalls++
	return s.Repository.CreateAttendance(ctx, att)
}

func (s *spyRepo) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	s.updateCalls++
	return s.Repository.UpdateAttendance(ctx, att)
}

type fixture struct {
	svc       *attendance.Service
	courseSvc *course.Service
	repo      *spyRepo
	codes     *codestore.InMemStore
	db        *dummydb.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := &spyRepo{Repository: dummydb.NewAttendanceRepository(db)}
	codes := codestore.NewInMemStore()
	courseSvc := course.NewService(dummydb.NewCourseRepository(db))
	svc := attendance.NewService(repo, codes, courseSvc, nil)
	return &fixture{svc: svc, courseSvc: courseSvc, repo: repo, codes: codes, db: db}
}

func (f *fixture) createSession(t *testing.T) course.Session {
	t.Helper()
	ses, err := f.courseSvc.CreateSession(context.Background(), course.NewSession{Name: "2026 Spring"})
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return ses
}

func (f *fixture) createLecture(t *testing.T, sessionID int, date time.Time) course.Lecture {
	t.Helper()
	lec, err := f.courseSvc.CreateLecture(context.Background(), sessionID, course.NewLecture{
		Title:       "Lecture",
		Sequence:    1,
		LectureDate: date,
	})
	if err != nil {
		t.Fatalf("createLecture() failed: %v", err)
	}
	return lec
}

func (f *fixture) enroll(t *testing.T, sessionID, userID int) {
	t.Helper()
	if _, err := f.courseSvc.Enroll(context.Background(), sessionID, course.NewEnrollment{UserID: userID}); err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
}

func (f *fixture) createRecord(t *testing.T, lectureID, userID int, status attendance.Status) attendance.Attendance {
	t.Helper()
	att, err := f.svc.Create(context.Background(), lectureID, attendance.NewAttendance{UserID: userID, Status: status})
	if err != nil {
		t.Fatalf("createRecord() failed: %v", err)
	}
	return att
}

// directory is a static attendance.UserDirectory.
type directory []attendance.DirectoryUser

func (d directory) QueryDirectory(_ context.Context, skip, limit int) ([]attendance.DirectoryUser, error) {
	return d, nil
}
