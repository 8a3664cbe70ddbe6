package dummydb

import (
	"context"
	"sort"

	"github.com/stg-academy/haksa/core/course"
)

type courseRepository struct {
	db *courseTables
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateSession(_ context.Context, ses course.Session) (course.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sessionPK++
	ses.ID = repo.db.sessionPK
	repo.db.sessions[ses.ID] = &ses
	return ses, nil
}

func (repo *courseRepository) GetSessionByID(_ context.Context, id int) (course.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ses, ok := repo.db.sessions[id]; ok {
		return *ses, nil
	}
	return course.Session{}, course.ErrSessionNotFound
}

func (repo *courseRepository) QueryAllSessions(_ context.Context) ([]course.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]course.Session, 0, len(repo.db.sessions))
	for _, ses := range repo.db.sessions {
		sessions = append(sessions, *ses)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (repo *courseRepository) CreateLecture(_ context.Context, lec course.Lecture) (course.Lecture, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sessions[lec.SessionID]; !ok {
		return course.Lecture{}, course.ErrSessionNotFound
	}
	repo.db.lecturePK++
	lec.ID = repo.db.lecturePK
	repo.db.lectures[lec.ID] = &lec
	return lec, nil
}

func (repo *courseRepository) GetLectureByID(_ context.Context, id int) (course.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lec, ok := repo.db.lectures[id]; ok {
		return *lec, nil
	}
	return course.Lecture{}, course.ErrLectureNotFound
}

func (repo *courseRepository) QueryLecturesBySession(_ context.Context, sessionID int) ([]course.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lectures := make([]course.Lecture, 0)
	for _, lec := range repo.db.lectures {
		if lec.SessionID == sessionID {
			lectures = append(lectures, *lec)
		}
	}
	sort.Slice(lectures, func(i, j int) bool { return lectures[i].Sequence < lectures[j].Sequence })
	return lectures, nil
}

func (repo *courseRepository) UpsertEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sessions[enr.SessionID]; !ok {
		return course.Enrollment{}, course.ErrSessionNotFound
	}
	bySession, ok := repo.db.enrollments[enr.SessionID]
	if !ok {
		bySession = make(map[int]*course.Enrollment)
		repo.db.enrollments[enr.SessionID] = bySession
	}
	bySession[enr.UserID] = &enr
	return enr, nil
}

func (repo *courseRepository) QueryEnrollmentsBySession(_ context.Context, sessionID int) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments[sessionID] {
		enrollments = append(enrollments, *enr)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].UserID < enrollments[j].UserID })
	return enrollments, nil
}

func (repo *courseRepository) QueryEnrollmentsByUser(_ context.Context, userID int) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, bySession := range repo.db.enrollments {
		if enr, ok := bySession[userID]; ok {
			enrollments = append(enrollments, *enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].SessionID < enrollments[j].SessionID })
	return enrollments, nil
}
