package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stg-academy/haksa/core/course"
)

type dbSession struct {
	ID        int          `db:"id"`
	Name      string       `db:"name"`
	StartsOn  sql.NullTime `db:"starts_on"`
	EndsOn    sql.NullTime `db:"ends_on"`
	CreatedAt time.Time    `db:"created_at"`
}

func (ds dbSession) toSession() course.Session {
	ses := course.Session{ID: ds.ID, Name: ds.Name, CreatedAt: ds.CreatedAt}
	if ds.StartsOn.Valid {
		ses.StartsOn = ds.StartsOn.Time
	}
	if ds.EndsOn.Valid {
		ses.EndsOn = ds.EndsOn.Time
	}
	return ses
}

type dbLecture struct {
	ID             int       `db:"id"`
	SessionID      int       `db:"session_id"`
	Title          string    `db:"title"`
	Sequence       int       `db:"sequence"`
	LectureDate    time.Time `db:"lecture_date"`
	AttendanceType string    `db:"attendance_type"`
	CreatedAt      time.Time `db:"created_at"`
}

func (dl dbLecture) toLecture() course.Lecture {
	return course.Lecture{
		ID:             dl.ID,
		SessionID:      dl.SessionID,
		Title:          dl.Title,
		Sequence:       dl.Sequence,
		LectureDate:    dl.LectureDate,
		AttendanceType: dl.AttendanceType,
		CreatedAt:      dl.CreatedAt,
	}
}

type dbEnrollment struct {
	UserID    int       `db:"user_id"`
	SessionID int       `db:"session_id"`
	Status    string    `db:"enroll_status"`
	CreatedAt time.Time `db:"created_at"`
}

func (de dbEnrollment) toEnrollment() course.Enrollment {
	return course.Enrollment{
		UserID:    de.UserID,
		SessionID: de.SessionID,
		Status:    de.Status,
		CreatedAt: de.CreatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateSession(ctx context.Context, ses course.Session) (course.Session, error) {
	query := `
INSERT INTO session (name, starts_on, ends_on, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		ses.Name, nullTime(ses.StartsOn), nullTime(ses.EndsOn), ses.CreatedAt,
	).Scan(&ses.ID)
	if err != nil {
		return course.Session{}, dbErr(err)
	}
	return ses, nil
}

func (repo *courseRepository) GetSessionByID(ctx context.Context, id int) (course.Session, error) {
	var row dbSession
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Session{}, course.ErrSessionNotFound
		}
		return course.Session{}, dbErr(err)
	}
	return row.toSession(), nil
}

func (repo *courseRepository) QueryAllSessions(ctx context.Context) ([]course.Session, error) {
	var rows []dbSession
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM session ORDER BY id`); err != nil {
		return nil, dbErr(err)
	}
	sessions := make([]course.Session, len(rows))
	for i, row := range rows {
		sessions[i] = row.toSession()
	}
	return sessions, nil
}

func (repo *courseRepository) CreateLecture(ctx context.Context, lec course.Lecture) (course.Lecture, error) {
	query := `
INSERT INTO lecture (session_id, title, sequence, lecture_date, attendance_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		lec.SessionID, lec.Title, lec.Sequence, lec.LectureDate, lec.AttendanceType, lec.CreatedAt,
	).Scan(&lec.ID)
	if err != nil {
		return course.Lecture{}, dbErr(err)
	}
	return lec, nil
}

func (repo *courseRepository) GetLectureByID(ctx context.Context, id int) (course.Lecture, error) {
	var row dbLecture
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM lecture WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Lecture{}, course.ErrLectureNotFound
		}
		return course.Lecture{}, dbErr(err)
	}
	return row.toLecture(), nil
}

func (repo *courseRepository) QueryLecturesBySession(ctx context.Context, sessionID int) ([]course.Lecture, error) {
	query := `SELECT * FROM lecture WHERE session_id = $1 ORDER BY sequence, id`
	var rows []dbLecture
	if err := repo.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, dbErr(err)
	}
	lectures := make([]course.Lecture, len(rows))
	for i, row := range rows {
		lectures[i] = row.toLecture()
	}
	return lectures, nil
}

func (repo *courseRepository) UpsertEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	query := `
INSERT INTO enrollment (user_id, session_id, enroll_status, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id, user_id) DO UPDATE SET enroll_status = EXCLUDED.enroll_status
RETURNING created_at`
	err := repo.db.QueryRowContext(
		ctx, query,
		enr.UserID, enr.SessionID, enr.Status, enr.CreatedAt,
	).Scan(&enr.CreatedAt)
	if err != nil {
		return course.Enrollment{}, dbErr(err)
	}
	return enr, nil
}

func (repo *courseRepository) QueryEnrollmentsBySession(ctx context.Context, sessionID int) ([]course.Enrollment, error) {
	query := `SELECT * FROM enrollment WHERE session_id = $1 ORDER BY user_id`
	return repo.queryEnrollments(ctx, query, sessionID)
}

func (repo *courseRepository) QueryEnrollmentsByUser(ctx context.Context, userID int) ([]course.Enrollment, error) {
	query := `SELECT * FROM enrollment WHERE user_id = $1 ORDER BY session_id`
	return repo.queryEnrollments(ctx, query, userID)
}

func (repo *courseRepository) queryEnrollments(ctx context.Context, query string, arg interface{}) ([]course.Enrollment, error) {
	var rows []dbEnrollment
	if err := repo.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, dbErr(err)
	}
	enrollments := make([]course.Enrollment, len(rows))
	for i, row := range rows {
		enrollments[i] = row.toEnrollment()
	}
	return enrollments, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
