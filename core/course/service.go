package course

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrLectureNotFound = errors.New("lecture not found")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, ses Session) (Session, error)
		GetSessionByID(ctx context.Context, id int) (Session, error)
		QueryAllSessions(ctx context.Context) ([]Session, error)
		CreateLecture(ctx context.Context, lec Lecture) (Lecture, error)
		GetLectureByID(ctx context.Context, id int) (Lecture, error)
		// QueryLecturesBySession returns lectures ordered by their sequence.
		QueryLecturesBySession(ctx context.Context, sessionID int) ([]Lecture, error)
		UpsertEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollmentsBySession(ctx context.Context, sessionID int) ([]Enrollment, error)
		QueryEnrollmentsByUser(ctx context.Context, userID int) ([]Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	ses := Session{
		Name:      ns.Name,
		StartsOn:  ns.StartsOn,
		EndsOn:    ns.EndsOn,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateSession(ctx, ses)
}

func (svc *Service) GetSession(ctx context.Context, id int) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) QueryAllSessions(ctx context.Context) ([]Session, error) {
	return svc.repo.QueryAllSessions(ctx)
}

func (svc *Service) CreateLecture(ctx context.Context, sessionID int, nl NewLecture) (Lecture, error) {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return Lecture{}, err
	}
	lec := Lecture{
		SessionID:      sessionID,
		Title:          nl.Title,
		Sequence:       nl.Sequence,
		LectureDate:    nl.LectureDate,
		AttendanceType: nl.AttendanceType,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateLecture(ctx, lec)
}

func (svc *Service) GetLecture(ctx context.Context, id int) (Lecture, error) {
	return svc.repo.GetLectureByID(ctx, id)
}

func (svc *Service) QueryLectures(ctx context.Context, sessionID int) ([]Lecture, error) {
	return svc.repo.QueryLecturesBySession(ctx, sessionID)
}

// FindLectureOn returns the session's lecture scheduled on the calendar
// date of `day`, or ErrLectureNotFound when none is scheduled.
func (svc *Service) FindLectureOn(ctx context.Context, sessionID int, day time.Time) (Lecture, error) {
	lectures, err := svc.repo.QueryLecturesBySession(ctx, sessionID)
	if err != nil {
		return Lecture{}, err
	}
	for _, lec := range lectures {
		if lec.IsOn(day) {
			return lec, nil
		}
	}
	return Lecture{}, ErrLectureNotFound
}

func (svc *Service) Enroll(ctx context.Context, sessionID int, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return Enrollment{}, err
	}
	enr := Enrollment{
		UserID:    ne.UserID,
		SessionID: sessionID,
		Status:    ne.Status,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.UpsertEnrollment(ctx, enr)
}

func (svc *Service) QueryEnrollments(ctx context.Context, sessionID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsBySession(ctx, sessionID)
}

func (svc *Service) QueryUserEnrollments(ctx context.Context, userID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByUser(ctx, userID)
}

// ActiveEnrollments returns the session's current roster (ENROLLED/ACTIVE only).
func (svc *Service) ActiveEnrollments(ctx context.Context, sessionID int) ([]Enrollment, error) {
	all, err := svc.repo.QueryEnrollmentsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	active := make([]Enrollment, 0, len(all))
	for _, enr := range all {
		if enr.IsActive() {
			active = append(active, enr)
		}
	}
	return active, nil
}
