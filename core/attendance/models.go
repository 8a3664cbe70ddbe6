package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/stg-academy/haksa/core"
)

// Attendance is a persisted fact that a user attended (or didn't) a lecture.
// At most one record exists per (lecture, user) pair.
type Attendance struct {
	ID         string      `json:"id"` // opaque, server-assigned
	LectureID  int         `json:"lecture_id"`
	UserID     int         `json:"user_id"`
	Status     Status      `json:"status"`
	DetailType null.String `json:"detail_type"`
	Note       null.String `json:"note"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC

	// denormalized user display fields, populated by list queries
	UserName  string `json:"user_name,omitempty"`
	UserClass string `json:"user_class,omitempty"`
}

// NewAttendance contains information needed to create a new Attendance record.
type NewAttendance struct {
	UserID     int    `json:"user_id" validate:"required"`
	Status     Status `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
	DetailType string `json:"detail_type" validate:"omitempty"`
	Note       string `json:"note"`
}

func (na *NewAttendance) Validate() error {
	na.Note = core.CleanString(na.Note)
	if na.DetailType == "" {
		na.DetailType = string(na.Status)
	}
	return core.Validate.Struct(na)
}

// UpdateAttendance defines what information may be provided to modify an
// existing Attendance record.
type UpdateAttendance struct {
	Status     Status `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
	DetailType string `json:"detail_type" validate:"omitempty"`
	Note       string `json:"note"`
}

func (ua *UpdateAttendance) Validate() error {
	ua.Note = core.CleanString(ua.Note)
	if ua.DetailType == "" {
		ua.DetailType = string(ua.Status)
	}
	return core.Validate.Struct(ua)
}

// CodeAttendance contains information needed for a code check-in.
type CodeAttendance struct {
	UserID         int    `json:"user_id" validate:"required"`
	Status         Status `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
	DetailType     string `json:"detail_type" validate:"omitempty"`
	AttendanceCode string `json:"attendance_code" validate:"required,len=4"`
}

func (ca *CodeAttendance) Validate() error {
	if ca.DetailType == "" {
		ca.DetailType = string(ca.Status)
	}
	return core.Validate.Struct(ca)
}

// Cell carries one roster × lecture matrix cell into the edit workflows.
// Attendance is nil when the cell has no backing record.
type Cell struct {
	UserID       int         `json:"user_id"`
	UserName     string      `json:"user_name"`
	LectureID    int         `json:"lecture_id"`
	LectureTitle string      `json:"lecture_title"`
	Attendance   *Attendance `json:"attendance"`
}

func nullString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// QueryFilter narrows attendance list queries.
type QueryFilter struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

// defaultLimit is large enough to be effectively unpaginated for one lecture.
const defaultLimit = 1000

func (qf *QueryFilter) Clean() {
	if qf.Skip < 0 {
		qf.Skip = 0
	}
	if qf.Limit <= 0 {
		qf.Limit = defaultLimit
	}
}
