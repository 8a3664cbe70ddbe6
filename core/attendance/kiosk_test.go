package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
)

func kioskFixture(t *testing.T) (*fixture, *attendance.Kiosk, int, directory) {
	t.Helper()
	f := setup(t)
	ses := f.createSession(t)
	f.createLecture(t, ses.ID, time.Now())

	dir := directory{
		{ID: 1, Name: "홍길동", Information: "문래 장년부"},
		{ID: 2, Name: "김철수", Information: "청년부"},
		{ID: 3, Name: "이영희", Information: "청년부"},
	}
	for _, u := range dir {
		f.enroll(t, ses.ID, u.ID)
	}
	kiosk := attendance.NewKiosk(f.svc, f.courseSvc, dir, nil)
	return f, kiosk, ses.ID, dir
}

func TestKiosk_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("no lecture today disables the flow", func(t *testing.T) {
		f := setup(t)
		ses := f.createSession(t)
		f.createLecture(t, ses.ID, time.Now().AddDate(0, 0, 1))
		kiosk := attendance.NewKiosk(f.svc, f.courseSvc, directory{}, nil)

		if _, err := kiosk.Load(ctx, ses.ID); err != attendance.ErrNoLectureToday {
			t.Errorf("Load() error = %v, want ErrNoLectureToday", err)
		}
	})

	t.Run("empty attendance yields all-eligible roster", func(t *testing.T) {
		_, kiosk, sesID, _ := kioskFixture(t)

		session, err := kiosk.Load(ctx, sesID)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		roster := session.Roster()
		if len(roster) != 3 {
			t.Fatalf("Roster() = %d entries, want 3", len(roster))
		}
		for _, e := range roster {
			if e.Attendance != nil {
				t.Errorf("entry %d loaded as checked-in", e.UserID)
			}
		}
	})

	t.Run("excludes inactive enrollments", func(t *testing.T) {
		f, kiosk, sesID, _ := kioskFixture(t)
		// user 3 dropped out
		ne := course.NewEnrollment{UserID: 3, Status: course.EnrollStatusDropped}
		if _, err := f.courseSvc.Enroll(ctx, sesID, ne); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}

		session, err := kiosk.Load(ctx, sesID)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if roster := session.Roster(); len(roster) != 2 {
			t.Errorf("Roster() = %d entries, want 2", len(roster))
		}
	})

	t.Run("annotates existing records", func(t *testing.T) {
		f, kiosk, sesID, _ := kioskFixture(t)
		lec, err := f.courseSvc.FindLectureOn(ctx, sesID, time.Now())
		if err != nil {
			t.Fatalf("FindLectureOn() failed: %v", err)
		}
		f.createRecord(t, lec.ID, 2, attendance.StatusPresent)

		session, err := kiosk.Load(ctx, sesID)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		var checked int
		for _, e := range session.Roster() {
			if e.Attendance != nil {
				checked++
				if e.UserID != 2 {
					t.Errorf("entry %d annotated, want only user 2", e.UserID)
				}
			}
		}
		if checked != 1 {
			t.Errorf("%d entries annotated, want 1", checked)
		}
	})
}

func TestKioskSession_search(t *testing.T) {
	ctx := context.Background()
	_, kiosk, sesID, _ := kioskFixture(t)
	session, err := kiosk.Load(ctx, sesID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	names := func(entries []attendance.RosterEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Name
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty matches everyone", query: "", want: []string{"홍길동", "김철수", "이영희"}},
		{name: "name substring", query: "홍", want: []string{"홍길동"}},
		{name: "affiliation substring", query: "장년", want: []string{"홍길동"}},
		{name: "affiliation shared", query: "청년부", want: []string{"김철수", "이영희"}},
		{name: "initial consonants of name", query: "ㅎㄱㄷ", want: []string{"홍길동"}},
		{name: "initial consonants of affiliation", query: "ㅊㄴㅂ", want: []string{"김철수", "이영희"}},
		{name: "no match", query: "xyz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session.ClearQuery()
			session.AppendQuery(tt.query)
			got := names(session.Matches())
			if len(got) != len(tt.want) {
				t.Fatalf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
				}
			}
		})
	}

	t.Run("backspace drops one rune", func(t *testing.T) {
		session.ClearQuery()
		session.AppendQuery("ㅎㄱ")
		session.Backspace()
		if session.Query() != "ㅎ" {
			t.Errorf("Query() = %q, want %q", session.Query(), "ㅎ")
		}
	})
}

func TestKioskSession_checkIn(t *testing.T) {
	ctx := context.Background()
	f, kiosk, sesID, _ := kioskFixture(t)
	session, err := kiosk.Load(ctx, sesID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// full walk-up flow for user 2
	if err := session.Select(2); err != nil {
		t.Fatalf("Select(2) failed: %v", err)
	}
	if err := session.Confirm(ctx); err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}
	if session.State() != attendance.KioskSuccess {
		t.Errorf("State() = %q, want success", session.State())
	}

	// the roster row flipped in place; the other rows are untouched
	for _, e := range session.Roster() {
		checkedIn := e.Attendance != nil
		if (e.UserID == 2) != checkedIn {
			t.Errorf("entry %d checked-in = %v", e.UserID, checkedIn)
		}
	}
	att, err := f.svc.GetByLectureAndUser(ctx, session.Lecture.ID, 2)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if att.Status != attendance.StatusPresent || att.DetailType.String != string(attendance.StatusPresent) {
		t.Errorf("record = %q/%q, want PRESENT/PRESENT", att.Status, att.DetailType.String)
	}

	// re-selecting the checked-in user is rejected before any store call
	creates := f.repo.createCalls
	if err := session.Select(2); err != attendance.ErrAlreadyCheckedIn {
		t.Errorf("Select(2) error = %v, want ErrAlreadyCheckedIn", err)
	}
	if f.repo.createCalls != creates {
		t.Errorf("Select() reached the store")
	}

	// reset returns to a clean roster view
	session.AppendQuery("홍")
	session.Reset()
	if session.Query() != "" || session.State() != attendance.KioskIdle || session.Selected() != nil {
		t.Errorf("Reset() left query=%q state=%q selected=%v", session.Query(), session.State(), session.Selected())
	}
}

func TestKioskSession_confirmWithoutSelection(t *testing.T) {
	ctx := context.Background()
	_, kiosk, sesID, _ := kioskFixture(t)
	session, err := kiosk.Load(ctx, sesID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := session.Confirm(ctx); err != attendance.ErrNoSelection {
		t.Errorf("Confirm() error = %v, want ErrNoSelection", err)
	}
}
