package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/stg-academy/haksa/core/attendance"
)

type dbAttendance struct {
	ID         string            `db:"id"`
	LectureID  int               `db:"lecture_id"`
	UserID     int               `db:"user_id"`
	Status     attendance.Status `db:"status"`
	DetailType null.String       `db:"detail_type"`
	Note       null.String       `db:"note"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
	UserName   string            `db:"user_name"`
	UserClass  string            `db:"user_class"`
}

func (da dbAttendance) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:         da.ID,
		LectureID:  da.LectureID,
		UserID:     da.UserID,
		Status:     da.Status,
		DetailType: da.DetailType,
		Note:       da.Note,
		CreatedAt:  da.CreatedAt,
		UpdatedAt:  da.UpdatedAt,
		UserName:   da.UserName,
		UserClass:  da.UserClass,
	}
}

// attendanceColumns joins the user display fields every caller of the list
// queries needs.
const attendanceColumns = `
a.id, a.lecture_id, a.user_id, a.status, a.detail_type, a.note, a.created_at, a.updated_at,
COALESCE(u.name, '') AS user_name, COALESCE(u.information, '') AS user_class`

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	query := `
INSERT INTO attendance (id, lecture_id, user_id, status, detail_type, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(
		ctx, query,
		att.ID, att.LectureID, att.UserID, att.Status, att.DetailType, att.Note, att.CreatedAt, att.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return attendance.Attendance{}, attendance.ErrAlreadyExists
		}
		return attendance.Attendance{}, dbErr(err)
	}
	return att, nil
}

func (repo *attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	query := `
UPDATE attendance SET status = $1, detail_type = $2, note = $3, updated_at = $4
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, att.Status, att.DetailType, att.Note, att.UpdatedAt, att.ID)
	if err != nil {
		return attendance.Attendance{}, dbErr(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return attendance.Attendance{}, err
	} else if n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return repo.GetAttendanceByID(ctx, att.ID)
}

func (repo *attendanceRepository) getAttendance(ctx context.Context, where string, args ...interface{}) (attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
FROM attendance a LEFT JOIN "user" u ON u.id = a.user_id
WHERE ` + where
	var row dbAttendance
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, dbErr(err)
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id string) (attendance.Attendance, error) {
	return repo.getAttendance(ctx, `a.id = $1`, id)
}

func (repo *attendanceRepository) GetAttendanceByLectureAndUser(ctx context.Context, lectureID, userID int) (attendance.Attendance, error) {
	return repo.getAttendance(ctx, `a.lecture_id = $1 AND a.user_id = $2`, lectureID, userID)
}

func (repo *attendanceRepository) QueryAttendanceByLecture(ctx context.Context, lectureID, skip, limit int) ([]attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
FROM attendance a LEFT JOIN "user" u ON u.id = a.user_id
WHERE a.lecture_id = $1
ORDER BY a.created_at, a.id
OFFSET $2 LIMIT $3`
	return repo.queryAttendance(ctx, query, lectureID, skip, limit)
}

func (repo *attendanceRepository) QueryAttendanceBySession(ctx context.Context, sessionID, skip, limit int) ([]attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
FROM attendance a
         LEFT JOIN "user" u ON u.id = a.user_id
         INNER JOIN lecture l ON l.id = a.lecture_id
WHERE l.session_id = $1
ORDER BY l.sequence, a.created_at, a.id
OFFSET $2 LIMIT $3`
	return repo.queryAttendance(ctx, query, sessionID, skip, limit)
}

func (repo *attendanceRepository) queryAttendance(ctx context.Context, query string, args ...interface{}) ([]attendance.Attendance, error) {
	var rows []dbAttendance
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbErr(err)
	}
	atts := make([]attendance.Attendance, len(rows))
	for i, row := range rows {
		atts[i] = row.toAttendance()
	}
	return atts, nil
}
