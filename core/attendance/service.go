package attendance

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/stg-academy/haksa/core/course"
)

var (
	// errors
	ErrNotFound       = errors.New("attendance record not found")
	ErrAlreadyExists  = errors.New("an attendance record already exists for this user and lecture")
	ErrLectureNotFound = errors.New("lecture not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidCode     = errors.New("invalid attendance code")
	ErrCodeNotIssued   = errors.New("no attendance code issued for this lecture")
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id string) (Attendance, error)
		// GetAttendanceByLectureAndUser returns ErrNotFound when the
		// (lecture, user) pair has no record yet.
		GetAttendanceByLectureAndUser(ctx context.Context, lectureID, userID int) (Attendance, error)
		QueryAttendanceByLecture(ctx context.Context, lectureID, skip, limit int) ([]Attendance, error)
		QueryAttendanceBySession(ctx context.Context, sessionID, skip, limit int) ([]Attendance, error)
	}

	// CodeStore keeps the short-lived numeric check-in codes, one per lecture.
	CodeStore interface {
		PutCode(ctx context.Context, lectureID int, code string, ttl time.Duration) error
		// GetCode returns ErrCodeNotIssued when no live code exists for the lecture.
		GetCode(ctx context.Context, lectureID int) (string, error)
	}

	// Event describes a committed attendance mutation for live subscribers.
	Event struct {
		Type      string    `json:"type"` // "created" | "updated"
		LectureID int       `json:"lecture_id"`
		UserID    int       `json:"user_id"`
		Status    Status    `json:"status"`
		At        time.Time `json:"at"`
	}

	// Publisher fans Events out to live dashboards. Must not block.
	Publisher interface {
		Publish(evt Event)
	}

	Service struct {
		repo      Repository
		codes     CodeStore
		courseSvc *course.Service
		pub       Publisher
	}
)

func NewService(repo Repository, codes CodeStore, courseSvc *course.Service, pub Publisher) *Service {
	return &Service{repo: repo, codes: codes, courseSvc: courseSvc, pub: pub}
}

func (svc *Service) publish(typ string, att Attendance) {
	if svc.pub == nil {
		return
	}
	svc.pub.Publish(Event{
		Type:      typ,
		LectureID: att.LectureID,
		UserID:    att.UserID,
		Status:    att.Status,
		At:        time.Now().UTC(),
	})
}

func (svc *Service) QueryByLecture(ctx context.Context, lectureID int, qf QueryFilter) ([]Attendance, error) {
	qf.Clean()
	return svc.repo.QueryAttendanceByLecture(ctx, lectureID, qf.Skip, qf.Limit)
}

func (svc *Service) QueryBySession(ctx context.Context, sessionID int, qf QueryFilter) ([]Attendance, error) {
	qf.Clean()
	return svc.repo.QueryAttendanceBySession(ctx, sessionID, qf.Skip, qf.Limit)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Attendance, error) {
	return svc.repo.GetAttendanceByID(ctx, id)
}

func (svc *Service) GetByLectureAndUser(ctx context.Context, lectureID, userID int) (Attendance, error) {
	return svc.repo.GetAttendanceByLectureAndUser(ctx, lectureID, userID)
}

// Create records attendance for a (lecture, user) pair that has none yet.
func (svc *Service) Create(ctx context.Context, lectureID int, na NewAttendance) (Attendance, error) {
	if _, err := svc.courseSvc.GetLecture(ctx, lectureID); err != nil {
		return Attendance{}, lectureErr(err)
	}
	now := time.Now().UTC()
	att, err := svc.repo.CreateAttendance(ctx, newRecord(lectureID, na, now))
	if err != nil {
		return Attendance{}, err
	}
	svc.publish("created", att)
	return att, nil
}

// Update mutates an existing record's status, detail type and note.
func (svc *Service) Update(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	if ua.DetailType == "" {
		ua.DetailType = string(ua.Status)
	}
	att.Status = ua.Status
	att.DetailType = nullString(ua.DetailType)
	att.Note = nullString(ua.Note)
	att.UpdatedAt = time.Now().UTC()
	att, err = svc.repo.UpdateAttendance(ctx, att)
	if err != nil {
		return Attendance{}, err
	}
	svc.publish("updated", att)
	return att, nil
}

// Set applies the create-or-update decision for one (lecture, user) pair:
// update when a record exists, create otherwise. The unique index on
// (lecture_id, user_id) backstops the race between the get and the create.
func (svc *Service) Set(ctx context.Context, lectureID, userID int, status Status, note string) (Attendance, error) {
	existing, err := svc.repo.GetAttendanceByLectureAndUser(ctx, lectureID, userID)
	if err == nil {
		return svc.Update(ctx, existing.ID, UpdateAttendance{Status: status, Note: note})
	}
	if err != ErrNotFound {
		return Attendance{}, err
	}
	return svc.Create(ctx, lectureID, NewAttendance{UserID: userID, Status: status, Note: note})
}

// CheckInWithCode validates the short-lived numeric code a learner entered
// and records a PRESENT attendance when it matches the lecture's live code.
func (svc *Service) CheckInWithCode(ctx context.Context, lectureID int, ca CodeAttendance) (Attendance, error) {
	if err := ca.Validate(); err != nil {
		return Attendance{}, err
	}

	lec, err := svc.courseSvc.GetLecture(ctx, lectureID)
	if err != nil {
		return Attendance{}, lectureErr(err)
	}
	if _, err := svc.courseSvc.GetSession(ctx, lec.SessionID); err != nil {
		return Attendance{}, sessionErr(err)
	}

	code, err := svc.codes.GetCode(ctx, lectureID)
	if err != nil || code != ca.AttendanceCode {
		return Attendance{}, ErrInvalidCode
	}

	na := NewAttendance{UserID: ca.UserID, Status: ca.Status, DetailType: ca.DetailType}
	att, err := svc.repo.CreateAttendance(ctx, newRecord(lectureID, na, time.Now().UTC()))
	if err != nil {
		return Attendance{}, err
	}
	svc.publish("created", att)
	return att, nil
}

// IssueCode generates a fresh 4-digit code for the lecture and stores it
// with the configured TTL, replacing any previous code.
func (svc *Service) IssueCode(ctx context.Context, lectureID int, ttl time.Duration) (string, error) {
	if _, err := svc.courseSvc.GetLecture(ctx, lectureID); err != nil {
		return "", lectureErr(err)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%04d", n.Int64())
	if err := svc.codes.PutCode(ctx, lectureID, code, ttl); err != nil {
		return "", err
	}
	return code, nil
}

// lectureErr and sessionErr translate course lookup misses into this
// package's sentinels; any other repository error passes through untouched.
func lectureErr(err error) error {
	if err == course.ErrLectureNotFound {
		return ErrLectureNotFound
	}
	return err
}

func sessionErr(err error) error {
	if err == course.ErrSessionNotFound {
		return ErrSessionNotFound
	}
	return err
}

func newRecord(lectureID int, na NewAttendance, now time.Time) Attendance {
	if na.DetailType == "" {
		na.DetailType = string(na.Status)
	}
	return Attendance{
		LectureID:  lectureID,
		UserID:     na.UserID,
		Status:     na.Status,
		DetailType: nullString(na.DetailType),
		Note:       nullString(na.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
