package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	dummydb "github.com/stg-academy/haksa/storage/database/dummy"
)

func TestCellEdit_createOrUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("cell without record creates exactly once", func(t *testing.T) {
		f := setup(t)
		ses := f.createSession(t)
		lec := f.createLecture(t, ses.ID, time.Now())

		edit := f.svc.OpenEdit(attendance.Cell{UserID: 7, LectureID: lec.ID})
		if edit.Status != attendance.StatusPresent {
			t.Errorf("OpenEdit() seeded status %q, want PRESENT", edit.Status)
		}

		edit.Status = attendance.StatusLate
		edit.Note = "traffic"
		att, err := edit.Save(ctx)
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if f.repo.createCalls != 1 || f.repo.updateCalls != 0 {
			t.Errorf("Save() made %d creates and %d updates, want 1 and 0", f.repo.createCalls, f.repo.updateCalls)
		}
		if att.Status != attendance.StatusLate || att.Note.String != "traffic" {
			t.Errorf("Save() = %+v", att)
		}
		if att.DetailType.String != string(attendance.StatusLate) {
			t.Errorf("Save() detail_type = %q, want %q", att.DetailType.String, attendance.StatusLate)
		}
	})

	t.Run("cell with record updates exactly once", func(t *testing.T) {
		f := setup(t)
		ses := f.createSession(t)
		lec := f.createLecture(t, ses.ID, time.Now())
		existing := f.createRecord(t, lec.ID, 7, attendance.StatusAbsent)
		f.repo.createCalls = 0

		edit := f.svc.OpenEdit(attendance.Cell{UserID: 7, LectureID: lec.ID, Attendance: &existing})
		if edit.Status != attendance.StatusAbsent {
			t.Errorf("OpenEdit() seeded status %q, want the record's ABSENT", edit.Status)
		}

		edit.Status = attendance.StatusExcused
		att, err := edit.Save(ctx)
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if f.repo.createCalls != 0 || f.repo.updateCalls != 1 {
			t.Errorf("Save() made %d creates and %d updates, want 0 and 1", f.repo.createCalls, f.repo.updateCalls)
		}
		if att.ID != existing.ID {
			t.Errorf("Save() updated record %s, want %s", att.ID, existing.ID)
		}
		if att.Status != attendance.StatusExcused {
			t.Errorf("Save() status = %q, want EXCUSED", att.Status)
		}
		if att.DetailType.String != string(attendance.StatusExcused) {
			t.Errorf("Save() detail_type = %q, want %q", att.DetailType.String, attendance.StatusExcused)
		}
	})
}

func TestBulkEdit_mixedCells(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ses := f.createSession(t)
	lec := f.createLecture(t, ses.ID, time.Now())
	existing := f.createRecord(t, lec.ID, 1, attendance.StatusAbsent)
	f.repo.createCalls = 0

	bulk := f.svc.OpenBulkEdit([]attendance.Cell{
		{UserID: 1, LectureID: lec.ID, Attendance: &existing},
		{UserID: 2, LectureID: lec.ID},
		{UserID: 3, LectureID: lec.ID},
	})
	bulk.Status = attendance.StatusPresent
	bulk.Note = "field trip"

	results, err := bulk.Save(ctx)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Save() returned %d results, want 3", len(results))
	}
	if failed := results.Failed(); len(failed) != 0 {
		t.Fatalf("Save() reported %d failures: %+v", len(failed), failed)
	}
	// each cell keeps its own decision
	if f.repo.createCalls != 2 || f.repo.updateCalls != 1 {
		t.Errorf("Save() made %d creates and %d updates, want 2 and 1", f.repo.createCalls, f.repo.updateCalls)
	}
	for _, res := range results {
		if res.Attendance.Status != attendance.StatusPresent || res.Attendance.Note.String != "field trip" {
			t.Errorf("cell (%d) = %+v, want the shared status and note", res.Cell.UserID, res.Attendance)
		}
	}
}

func TestBulkEdit_partialFailureKeepsPriorSuccesses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ses := f.createSession(t)
	lec := f.createLecture(t, ses.ID, time.Now())
	// user 2 already has a record the bulk open does not know about;
	// its create hits the unique index
	f.createRecord(t, lec.ID, 2, attendance.StatusAbsent)

	bulk := f.svc.OpenBulkEdit([]attendance.Cell{
		{UserID: 1, LectureID: lec.ID},
		{UserID: 2, LectureID: lec.ID},
		{UserID: 3, LectureID: lec.ID},
	})
	results, err := bulk.Save(ctx)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	failed := results.Failed()
	if len(failed) != 1 || failed[0].Cell.UserID != 2 {
		t.Fatalf("Failed() = %+v, want just user 2", failed)
	}
	if failed[0].Err != attendance.ErrAlreadyExists {
		t.Errorf("failed cell error = %v, want ErrAlreadyExists", failed[0].Err)
	}
	// best effort: users 1 and 3 stay committed
	for _, userID := range []int{1, 3} {
		if _, err := f.svc.GetByLectureAndUser(ctx, lec.ID, userID); err != nil {
			t.Errorf("user %d record not committed: %v", userID, err)
		}
	}
}

func TestService_Set(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ses := f.createSession(t)
	lec := f.createLecture(t, ses.ID, time.Now())

	att, err := f.svc.Set(ctx, lec.ID, 5, attendance.StatusPresent, "")
	if err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	again, err := f.svc.Set(ctx, lec.ID, 5, attendance.StatusLate, "caught napping")
	if err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if again.ID != att.ID {
		t.Errorf("Set() created a second record %s for the same pair", again.ID)
	}
	if f.repo.createCalls != 1 || f.repo.updateCalls != 1 {
		t.Errorf("Set() made %d creates and %d updates, want 1 and 1", f.repo.createCalls, f.repo.updateCalls)
	}
	// the update keeps detail_type in step with the new status
	if again.DetailType.String != string(attendance.StatusLate) {
		t.Errorf("Set() detail_type = %q, want %q", again.DetailType.String, attendance.StatusLate)
	}
	stored, err := f.svc.GetByLectureAndUser(ctx, lec.ID, 5)
	if err != nil {
		t.Fatalf("GetByLectureAndUser() failed: %v", err)
	}
	if stored.DetailType.String != string(attendance.StatusLate) {
		t.Errorf("stored detail_type = %q, want %q", stored.DetailType.String, attendance.StatusLate)
	}
}

// brokenCourseRepo fails every lecture lookup with an infrastructure error.
type brokenCourseRepo struct {
	course.Repository
	err error
}

func (r brokenCourseRepo) GetLectureByID(context.Context, int) (course.Lecture, error) {
	return course.Lecture{}, r.err
}

func TestService_lectureLookupFailurePassesThrough(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	boom := errors.New("connection refused")
	courseSvc := course.NewService(brokenCourseRepo{Repository: dummydb.NewCourseRepository(f.db), err: boom})
	svc := attendance.NewService(f.repo, f.codes, courseSvc, nil)

	if _, err := svc.Create(ctx, 1, attendance.NewAttendance{UserID: 5, Status: attendance.StatusPresent}); err != boom {
		t.Errorf("Create() error = %v, want the repository error", err)
	}
	if _, err := svc.IssueCode(ctx, 1, time.Minute); err != boom {
		t.Errorf("IssueCode() error = %v, want the repository error", err)
	}
	ca := attendance.CodeAttendance{UserID: 5, Status: attendance.StatusPresent, AttendanceCode: "1234"}
	if _, err := svc.CheckInWithCode(ctx, 1, ca); err != boom {
		t.Errorf("CheckInWithCode() error = %v, want the repository error", err)
	}
}

func TestService_IssueCode(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ses := f.createSession(t)
	lec := f.createLecture(t, ses.ID, time.Now())

	code, err := f.svc.IssueCode(ctx, lec.ID, time.Minute)
	if err != nil {
		t.Fatalf("IssueCode() failed: %v", err)
	}
	if len(code) != 4 {
		t.Errorf("IssueCode() = %q, want a 4-digit code", code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Errorf("IssueCode() = %q, want digits only", code)
		}
	}

	if _, err := f.svc.IssueCode(ctx, lec.ID+99, time.Minute); err != attendance.ErrLectureNotFound {
		t.Errorf("IssueCode(unknown lecture) error = %v, want ErrLectureNotFound", err)
	}
}
