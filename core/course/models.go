package course

import (
	"time"

	"github.com/stg-academy/haksa/core"
)

// Attendance types. Advisory only; the attendance workflows do not enforce them.
const (
	AttendanceTypeElectronic = "ELECTRONIC"
	AttendanceTypeManual     = "MANUAL"
)

// Enrollment statuses. ENROLLED and ACTIVE make up the current roster;
// everything else is excluded from attendance.
const (
	EnrollStatusEnrolled  = "ENROLLED"
	EnrollStatusActive    = "ACTIVE"
	EnrollStatusCompleted = "COMPLETED"
	EnrollStatusDropped   = "DROPPED"
)

type Session struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartsOn  time.Time `json:"starts_on"`
	EndsOn    time.Time `json:"ends_on"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Lecture struct {
	ID             int       `json:"id"`
	SessionID      int       `json:"session_id"`
	Title          string    `json:"title"`
	Sequence       int       `json:"sequence"`
	LectureDate    time.Time `json:"lecture_date"`
	AttendanceType string    `json:"attendance_type"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// IsOn reports whether the lecture falls on the same calendar date as t,
// compared in t's location.
func (l Lecture) IsOn(t time.Time) bool {
	return l.LectureDate.In(t.Location()).Format("2006-01-02") == t.Format("2006-01-02")
}

type Enrollment struct {
	UserID    int       `json:"user_id"`
	SessionID int       `json:"session_id"`
	Status    string    `json:"enroll_status"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// IsActive reports whether the enrollment belongs to the current roster.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollStatusEnrolled || e.Status == EnrollStatusActive
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Name     string    `json:"name" validate:"required"`
	StartsOn time.Time `json:"starts_on"`
	EndsOn   time.Time `json:"ends_on"`
}

func (ns *NewSession) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

// NewLecture contains information needed to create a new Lecture.
type NewLecture struct {
	Title          string    `json:"title" validate:"required"`
	Sequence       int       `json:"sequence" validate:"min=0"`
	LectureDate    time.Time `json:"lecture_date" validate:"required"`
	AttendanceType string    `json:"attendance_type" validate:"omitempty,oneof=ELECTRONIC MANUAL"`
}

func (nl *NewLecture) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	if nl.AttendanceType == "" {
		nl.AttendanceType = AttendanceTypeManual
	}
	return core.Validate.Struct(nl)
}

// NewEnrollment contains information needed to enroll a user into a Session.
type NewEnrollment struct {
	UserID int    `json:"user_id" validate:"required"`
	Status string `json:"enroll_status" validate:"omitempty,oneof=ENROLLED ACTIVE COMPLETED DROPPED"`
}

func (ne *NewEnrollment) Validate() error {
	if ne.Status == "" {
		ne.Status = EnrollStatusEnrolled
	}
	return core.Validate.Struct(ne)
}
