package attendance

import (
	"context"
	"strings"
	"unicode/utf8"
)

// CheckInState is the code check-in workflow state.
type CheckInState string

const (
	StateIdle       CheckInState = "idle"
	StateSubmitting CheckInState = "submitting"
	StateSuccess    CheckInState = "success"
	StateError      CheckInState = "error"
)

// user-facing messages
const (
	msgCodeLength      = "enter a 4-digit code"
	msgLectureNotFound = "lecture could not be found"
	msgSessionNotFound = "session could not be found"
	msgCodeIncorrect   = "the code is incorrect"
)

// legacy server detail strings, matched as a fallback for stores that
// predate the sentinel errors
var legacyMessages = map[string]string{
	"Lecture not found":       msgLectureNotFound,
	"Session not found":       msgSessionNotFound,
	"Invalid attendance code": msgCodeIncorrect,
}

// CodeCheckIn is the self-service flow where a learner enters a 4-digit
// code to check into their lecture: idle → submitting → success | error.
type CodeCheckIn struct {
	svc       *Service
	lectureID int
	userID    int

	state   CheckInState
	message string
	code    string
	records []Attendance
}

// NewCodeCheckIn opens the workflow for one learner and lecture. known
// seeds the locally known records for the lecture, used only for the
// UI-level duplicate guard; the store stays the sole authority on
// duplicates when a code is used.
func NewCodeCheckIn(svc *Service, lectureID, userID int, known []Attendance) *CodeCheckIn {
	return &CodeCheckIn{
		svc:       svc,
		lectureID: lectureID,
		userID:    userID,
		state:     StateIdle,
		records:   known,
	}
}

func (w *CodeCheckIn) State() CheckInState  { return w.state }
func (w *CodeCheckIn) Message() string      { return w.message }
func (w *CodeCheckIn) Code() string         { return w.code }
func (w *CodeCheckIn) Records() []Attendance { return w.records }

// Disabled reports whether a prior successful check-in for this lecture
// is already known locally.
func (w *CodeCheckIn) Disabled() bool {
	for _, att := range w.records {
		if att.LectureID == w.lectureID && att.UserID == w.userID {
			return true
		}
	}
	return false
}

// SetCode accumulates keypad input into the code field.
func (w *CodeCheckIn) SetCode(code string) { w.code = code }

// Submit validates the code length locally, then asks the store to record
// a PRESENT check-in. A code that is not exactly 4 characters fails
// without touching the store.
func (w *CodeCheckIn) Submit(ctx context.Context, code string) {
	w.code = code
	if utf8.RuneCountInString(code) != 4 {
		w.state = StateError
		w.message = msgCodeLength
		return
	}

	w.state = StateSubmitting
	att, err := w.svc.CheckInWithCode(ctx, w.lectureID, CodeAttendance{
		UserID:         w.userID,
		Status:         StatusPresent,
		DetailType:     string(StatusPresent),
		AttendanceCode: code,
	})
	if err != nil {
		w.state = StateError
		w.message = checkInMessage(err)
		return
	}

	w.records = append(w.records, att)
	w.state = StateSuccess
	w.message = ""
	w.code = "" // reset the code field
}

// checkInMessage maps store errors to user-facing text; unmapped errors
// pass their raw message through.
func checkInMessage(err error) string {
	switch err {
	case ErrLectureNotFound:
		return msgLectureNotFound
	case ErrSessionNotFound:
		return msgSessionNotFound
	case ErrInvalidCode, ErrCodeNotIssued:
		return msgCodeIncorrect
	}
	msg := err.Error()
	for detail, mapped := range legacyMessages {
		if strings.Contains(msg, detail) {
			return mapped
		}
	}
	return msg
}
