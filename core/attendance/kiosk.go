package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/course"
)

var (
	ErrNoLectureToday   = errors.New("no lecture scheduled today")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrNoSelection      = errors.New("no roster entry selected")

	// NowFunc is the kiosk's clock; mockable.
	NowFunc = time.Now
)

type (
	// DirectoryUser is the learner descriptor supplied by the user directory.
	DirectoryUser struct {
		ID          int
		Name        string
		Information string // free-text affiliation
	}

	// UserDirectory is any collaborator that can list learner descriptors.
	UserDirectory interface {
		QueryDirectory(ctx context.Context, skip, limit int) ([]DirectoryUser, error)
	}

	// Kiosk resolves walk-up learners to their roster identity and checks
	// them into today's lecture.
	Kiosk struct {
		svc       *Service
		courseSvc *course.Service
		dir       UserDirectory
		logger    core.Logger
	}

	// RosterEntry is one eligible learner, annotated with their existing
	// record for today's lecture if any.
	RosterEntry struct {
		UserID      int         `json:"user_id"`
		Name        string      `json:"name"`
		Affiliation string      `json:"affiliation"`
		Attendance  *Attendance `json:"attendance"`
	}

	// KioskState is the check-in outcome shown on the shared screen.
	KioskState string

	// KioskSession holds one loaded kiosk flow: today's lecture, the
	// eligible roster and the incremental search state.
	KioskSession struct {
		svc     *Service
		Lecture course.Lecture

		roster   []*RosterEntry
		query    string
		selected *RosterEntry
		state    KioskState
	}
)

const (
	KioskIdle    KioskState = ""
	KioskSuccess KioskState = "success"
	KioskError   KioskState = "error"
)

func NewKiosk(svc *Service, courseSvc *course.Service, dir UserDirectory, logger core.Logger) *Kiosk {
	return &Kiosk{svc: svc, courseSvc: courseSvc, dir: dir, logger: logger}
}

// Load resolves the session, finds today's lecture, builds the eligible
// roster from active enrollments crossed with the user directory, and
// annotates each entry with any existing record. Search is unusable until
// Load succeeds; a session with no lecture today fails with
// ErrNoLectureToday.
func (k *Kiosk) Load(ctx context.Context, sessionID int) (*KioskSession, error) {
	if _, err := k.courseSvc.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	lec, err := k.courseSvc.FindLectureOn(ctx, sessionID, NowFunc())
	if err != nil {
		if err == course.ErrLectureNotFound {
			return nil, ErrNoLectureToday
		}
		return nil, err
	}

	enrollments, err := k.courseSvc.ActiveEnrollments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	enrolled := make(map[int]bool, len(enrollments))
	for _, enr := range enrollments {
		enrolled[enr.UserID] = true
	}

	users, err := k.dir.QueryDirectory(ctx, 0, defaultLimit)
	if err != nil {
		return nil, err
	}

	// an attendance fetch failure degrades the lecture to "no record",
	// it does not abort the roster load
	byUser := make(map[int]*Attendance)
	atts, err := k.svc.QueryByLecture(ctx, lec.ID, QueryFilter{})
	if err != nil {
		if k.logger != nil {
			k.logger.Warn("kiosk: loading attendance for lecture failed", err)
		}
	} else {
		for i := range atts {
			att := atts[i]
			byUser[att.UserID] = &att
		}
	}

	ses := &KioskSession{svc: k.svc, Lecture: lec}
	for _, usr := range users {
		if !enrolled[usr.ID] {
			continue
		}
		ses.roster = append(ses.roster, &RosterEntry{
			UserID:      usr.ID,
			Name:        usr.Name,
			Affiliation: usr.Information,
			Attendance:  byUser[usr.ID],
		})
	}
	return ses, nil
}

func (s *KioskSession) Query() string     { return s.query }
func (s *KioskSession) State() KioskState { return s.state }

func (s *KioskSession) Selected() *RosterEntry { return s.selected }

// Roster returns the full eligible roster.
func (s *KioskSession) Roster() []RosterEntry {
	return s.project(func(*RosterEntry) bool { return true })
}

// Matches filters the roster by the accumulated query: an entry matches
// when its name or affiliation contains the query literally
// (case-insensitive) or through its lead-consonant projection. An empty
// query matches everyone.
func (s *KioskSession) Matches() []RosterEntry {
	return s.project(func(e *RosterEntry) bool {
		return matchesQuery(e.Name, s.query) || matchesQuery(e.Affiliation, s.query)
	})
}

func (s *KioskSession) project(keep func(*RosterEntry) bool) []RosterEntry {
	out := make([]RosterEntry, 0, len(s.roster))
	for _, e := range s.roster {
		if keep(e) {
			out = append(out, *e)
		}
	}
	return out
}

// AppendQuery accumulates on-screen keypad input (literal text or lead
// consonant glyphs).
func (s *KioskSession) AppendQuery(input string) { s.query += input }

// Backspace drops the last rune of the query.
func (s *KioskSession) Backspace() {
	runes := []rune(s.query)
	if len(runes) > 0 {
		s.query = string(runes[:len(runes)-1])
	}
}

func (s *KioskSession) ClearQuery() { s.query = "" }

// Select picks a roster entry for confirmation. An entry that already has
// a record is rejected with ErrAlreadyCheckedIn.
func (s *KioskSession) Select(userID int) error {
	for _, e := range s.roster {
		if e.UserID != userID {
			continue
		}
		if e.Attendance != nil {
			return ErrAlreadyCheckedIn
		}
		s.selected = e
		return nil
	}
	return ErrNotFound
}

// Confirm records a PRESENT check-in for the selected entry and patches
// the roster in place; the other rows are untouched. On failure the error
// state is shown and the learner can return to the roster.
func (s *KioskSession) Confirm(ctx context.Context) error {
	if s.selected == nil {
		return ErrNoSelection
	}
	att, err := s.svc.Create(ctx, s.Lecture.ID, NewAttendance{
		UserID:     s.selected.UserID,
		Status:     StatusPresent,
		DetailType: string(StatusPresent),
	})
	if err != nil {
		s.state = KioskError
		return err
	}
	s.selected.Attendance = &att
	s.state = KioskSuccess
	return nil
}

// Reset clears the selection, the outcome state and the search query,
// returning to the roster view.
func (s *KioskSession) Reset() {
	s.selected = nil
	s.state = KioskIdle
	s.query = ""
}
