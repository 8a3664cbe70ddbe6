package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/stg-academy/haksa/core/attendance"
)

type attendanceRepository struct {
	db      *attendanceTable
	courses *courseTables
	users   *userTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance, courses: db.course, users: db.user}
}

// denormalize fills the user display fields the way the sql repository's
// join does.
func (repo *attendanceRepository) denormalize(atts []attendance.Attendance) []attendance.Attendance {
	repo.users.RLock()
	defer repo.users.RUnlock()

	for i := range atts {
		if usr, ok := repo.users.table[atts[i].UserID]; ok {
			atts[i].UserName = usr.Name
			atts[i].UserClass = usr.Information
		}
	}
	return atts
}

func (repo *attendanceRepository) query(keep func(attendance.Attendance) bool) []attendance.Attendance {
	atts := make([]attendance.Attendance, 0, len(repo.db.table))
	for _, att := range repo.db.table {
		if keep(*att) {
			atts = append(atts, *att)
		}
	}
	sort.Slice(atts, func(i, j int) bool {
		if atts[i].CreatedAt.Equal(atts[j].CreatedAt) {
			return atts[i].ID < atts[j].ID
		}
		return atts[i].CreatedAt.Before(atts[j].CreatedAt)
	})
	return atts
}

func (repo *attendanceRepository) CreateAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pair := [2]int{att.LectureID, att.UserID}
	if _, ok := repo.db.byPair[pair]; ok {
		return attendance.Attendance{}, attendance.ErrAlreadyExists
	}
	att.ID = uuid.New().String()
	repo.db.table[att.ID] = &att
	repo.db.byPair[pair] = att.ID
	return att, nil
}

func (repo *attendanceRepository) UpdateAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[att.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	orig.Status = att.Status
	orig.DetailType = att.DetailType
	orig.Note = att.Note
	orig.UpdatedAt = att.UpdatedAt
	return *orig, nil
}

func (repo *attendanceRepository) GetAttendanceByID(_ context.Context, id string) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att, ok := repo.db.table[id]; ok {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetAttendanceByLectureAndUser(_ context.Context, lectureID, userID int) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if id, ok := repo.db.byPair[[2]int{lectureID, userID}]; ok {
		return *repo.db.table[id], nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendanceByLecture(_ context.Context, lectureID, skip, limit int) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	atts := repo.query(func(att attendance.Attendance) bool { return att.LectureID == lectureID })
	return repo.denormalize(paginate(atts, skip, limit)), nil
}

func (repo *attendanceRepository) QueryAttendanceBySession(_ context.Context, sessionID, skip, limit int) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	repo.courses.RLock()
	sessionLectures := make(map[int]bool)
	for _, lec := range repo.courses.lectures {
		if lec.SessionID == sessionID {
			sessionLectures[lec.ID] = true
		}
	}
	repo.courses.RUnlock()

	atts := repo.query(func(att attendance.Attendance) bool { return sessionLectures[att.LectureID] })
	return repo.denormalize(paginate(atts, skip, limit)), nil
}

func paginate(atts []attendance.Attendance, skip, limit int) []attendance.Attendance {
	if skip >= len(atts) {
		return []attendance.Attendance{}
	}
	atts = atts[skip:]
	if limit > 0 && limit < len(atts) {
		atts = atts[:limit]
	}
	return atts
}
