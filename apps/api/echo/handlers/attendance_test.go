package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
)

// attFixture wires one session with two lectures (one today, one next week)
// and two enrolled students.
type attFixture struct {
	ta *testApp

	ses        course.Session
	today      course.Lecture
	nextWeek   course.Lecture
	hong       user.User
	kim        user.User
	staff      user.User
	staffToken string
}

func newAttFixture(t *testing.T) *attFixture {
	t.Helper()

	ta := setupAPI(t)
	ctx := context.Background()

	f := &attFixture{ta: ta}

	f.staff = createUser(t, ta.usrRepo, "Teacher", "teach1", "teach@test.kr", "", []string{user.RoleTeacher}, true)
	f.staffToken = getToken(t, f.staff)

	f.hong = f.createStudent(t, "홍길동", "hong01", "hong@test.kr", "문래 장년부")
	f.kim = f.createStudent(t, "김철수", "kim001", "kim@test.kr", "청년부")

	ses, err := ta.courseSvc.CreateSession(ctx, course.NewSession{Name: "2026 Fall"})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	f.ses = ses

	f.today = f.createLecture(t, "Week 1", 1, time.Now())
	f.nextWeek = f.createLecture(t, "Week 2", 2, time.Now().AddDate(0, 0, 7))

	for _, usr := range []user.User{f.hong, f.kim} {
		if _, err := ta.courseSvc.Enroll(ctx, ses.ID, course.NewEnrollment{UserID: usr.ID, Status: course.EnrollStatusEnrolled}); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
	return f
}

func (f *attFixture) createStudent(t *testing.T, name, uname, email, affiliation string) user.User {
	t.Helper()

	usr := user.User{
		Name:        name,
		Username:    uname,
		Email:       email,
		Information: affiliation,
		Roles:       []string{user.RoleStudent},
		IsActive:    true,
	}
	usr, err := f.ta.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return usr
}

func (f *attFixture) createLecture(t *testing.T, title string, seq int, date time.Time) course.Lecture {
	t.Helper()

	lec, err := f.ta.courseSvc.CreateLecture(context.Background(), f.ses.ID, course.NewLecture{
		Title:       title,
		Sequence:    seq,
		LectureDate: date,
	})
	if err != nil {
		t.Fatalf("createLecture() failed: %v", err)
	}
	return lec
}

func (f *attFixture) setCell(t *testing.T, lectureID, userID int, status attendance.Status) attendance.Attendance {
	t.Helper()

	att, err := f.ta.attSvc.Set(context.Background(), lectureID, userID, status, "")
	if err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	return att
}

func Test_attendanceAPI_matrixRetrieve(t *testing.T) {
	f := newAttFixture(t)

	f.setCell(t, f.today.ID, f.hong.ID, attendance.StatusPresent)
	f.setCell(t, f.today.ID, f.kim.ID, attendance.StatusLate)
	f.setCell(t, f.nextWeek.ID, f.kim.ID, attendance.StatusPresent)

	matrixPath := fmt.Sprintf("/v1/sessions/%d/attendance/matrix", f.ses.ID)
	student := getToken(t, f.hong)

	tests := []httpTest{
		{name: "Auth required", path: matrixPath, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: matrixPath, token: student, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Session not found", path: "/v1/sessions/999/attendance/matrix", token: f.staffToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Session not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.ta.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("full matrix", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, matrixPath, f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		var resp MatrixResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(resp.Lectures) != 2 {
			t.Errorf("failed! len(lectures) = %d; want 2", len(resp.Lectures))
		}
		if len(resp.Rows) != 2 {
			t.Fatalf("failed! len(rows) = %d; want 2", len(resp.Rows))
		}

		byName := make(map[string]attendance.Row, len(resp.Rows))
		for _, row := range resp.Rows {
			byName[row.User.Name] = row
		}
		if att := byName["홍길동"].Cells[f.today.ID]; att == nil || att.Status != attendance.StatusPresent {
			t.Errorf("failed! 홍길동 today cell = %+v", att)
		}
		if att := byName["홍길동"].Cells[f.nextWeek.ID]; att != nil {
			t.Errorf("failed! 홍길동 next week cell should be empty, got %+v", att)
		}
		if att := byName["김철수"].Cells[f.today.ID]; att == nil || att.Status != attendance.StatusLate {
			t.Errorf("failed! 김철수 today cell = %+v", att)
		}
	})

	t.Run("search filters rows", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, matrixPath+"?search=홍", f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		var resp MatrixResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(resp.Rows) != 1 || resp.Rows[0].User.Name != "홍길동" {
			t.Errorf("failed! rows = %+v; want only 홍길동", resp.Rows)
		}
	})
}

func Test_attendanceAPI_matrixExport(t *testing.T) {
	f := newAttFixture(t)

	f.setCell(t, f.today.ID, f.hong.ID, attendance.StatusPresent)
	f.setCell(t, f.today.ID, f.kim.ID, attendance.StatusAbsent)

	path := fmt.Sprintf("/v1/sessions/%d/attendance/export", f.ses.ID)
	req, rec := newAuthRequest(http.MethodGet, path, f.staffToken)
	f.ta.app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	wantDispo := fmt.Sprintf(`attachment; filename="attendance-%d.xlsx"`, f.ses.ID)
	if dispo := rec.Header().Get("Content-Disposition"); dispo != wantDispo {
		t.Errorf("failed! Content-Disposition = %q; want %q", dispo, wantDispo)
	}

	file, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("excelize.OpenReader() failed: %v", err)
	}
	defer func() { _ = file.Close() }()

	rows, err := file.GetRows("Attendance")
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("failed! len(rows) = %d; want 3", len(rows))
	}
	if rows[0][0] != "Name" || rows[0][1] != "Class" {
		t.Errorf("failed! header = %v", rows[0])
	}
	// rows sorted by name: 김철수 before 홍길동
	if rows[1][0] != "김철수" || rows[1][2] != "A" {
		t.Errorf("failed! first row = %v", rows[1])
	}
	if rows[2][0] != "홍길동" || rows[2][2] != "P" {
		t.Errorf("failed! second row = %v", rows[2])
	}
}

func Test_attendanceAPI_cellSet(t *testing.T) {
	f := newAttFixture(t)

	path := func(lectureID int) string { return fmt.Sprintf("/v1/lectures/%d/attendance", lectureID) }

	t.Run("lecture not found", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Lecture not found"})}
		body := marchallObj(t, CellSetRequest{UserID: f.hong.ID, Status: attendance.StatusPresent})
		req, rec := newAuthRequest(http.MethodPost, path(999), f.staffToken, body)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var created attendance.Attendance

	t.Run("creates missing cell", func(t *testing.T) {
		body := marchallObj(t, CellSetRequest{UserID: f.hong.ID, Status: attendance.StatusPresent, Note: "first"})
		req, rec := newAuthRequest(http.MethodPost, path(f.today.ID), f.staffToken, body)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if created.ID == "" || created.Status != attendance.StatusPresent || created.Note.String != "first" {
			t.Errorf("failed! created = %+v", created)
		}
	})

	t.Run("updates existing cell in place", func(t *testing.T) {
		body := marchallObj(t, CellSetRequest{UserID: f.hong.ID, Status: attendance.StatusLate})
		req, rec := newAuthRequest(http.MethodPost, path(f.today.ID), f.staffToken, body)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var updated attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if updated.ID != created.ID {
			t.Errorf("failed! id = %s; want %s", updated.ID, created.ID)
		}
		if updated.Status != attendance.StatusLate {
			t.Errorf("failed! status = %s; want %s", updated.Status, attendance.StatusLate)
		}
	})
}

func Test_attendanceAPI_bulkEdit(t *testing.T) {
	f := newAttFixture(t)
	ctx := context.Background()

	// 김철수 already has a record, 홍길동 does not
	existing := f.setCell(t, f.today.ID, f.kim.ID, attendance.StatusPresent)

	body := marchallObj(t, BulkEditRequest{
		UserIDs: []int{f.hong.ID, f.kim.ID},
		Status:  attendance.StatusExcused,
		Note:    "field trip",
	})
	path := fmt.Sprintf("/v1/lectures/%d/attendance/bulk", f.today.ID)
	req, rec := newAuthRequest(http.MethodPost, path, f.staffToken, body)
	f.ta.app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp BulkEditResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if resp.Failed != 0 {
		t.Errorf("failed! failed = %d; want 0", resp.Failed)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("failed! len(results) = %d; want 2", len(resp.Results))
	}

	for _, usr := range []user.User{f.hong, f.kim} {
		att, err := f.ta.attSvc.GetByLectureAndUser(ctx, f.today.ID, usr.ID)
		if err != nil {
			t.Fatalf("GetByLectureAndUser() failed: %v", err)
		}
		if att.Status != attendance.StatusExcused || att.Note.String != "field trip" {
			t.Errorf("failed! record for %s = %+v", usr.Name, att)
		}
	}

	// updated in place, not recreated
	att, err := f.ta.attSvc.GetByLectureAndUser(ctx, f.today.ID, f.kim.ID)
	if err != nil {
		t.Fatalf("GetByLectureAndUser() failed: %v", err)
	}
	if att.ID != existing.ID {
		t.Errorf("failed! id = %s; want %s", att.ID, existing.ID)
	}
}

func Test_attendanceAPI_code(t *testing.T) {
	f := newAttFixture(t)

	issuePath := func(lectureID int) string { return fmt.Sprintf("/v1/lectures/%d/attendance/code", lectureID) }
	checkInPath := func(lectureID int) string { return fmt.Sprintf("/v1/lectures/%d/attendance/check-in", lectureID) }
	student := getToken(t, f.hong)
	invalidCodeData := marchallObj(t, httpErr{Error: "Invalid attendance code"})

	t.Run("issue: staff required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		req, rec := newAuthRequest(http.MethodPost, issuePath(f.today.ID), student)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("issue: lecture not found", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Lecture not found"})}
		req, rec := newAuthRequest(http.MethodPost, issuePath(999), f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("check-in before any code issued", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: invalidCodeData}
		body := marchallObj(t, attendance.CodeAttendance{UserID: f.hong.ID, Status: attendance.StatusPresent, AttendanceCode: "1234"})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.today.ID), student, body)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var issued CodeIssueResponse

	t.Run("issue code", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, issuePath(f.today.ID), f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !regexp.MustCompile(`^\d{4}$`).MatchString(issued.Code) {
			t.Errorf("failed! code = %q; want 4 digits", issued.Code)
		}
		if want := int(f.ta.conf.AttendanceCodeTTL.Seconds()); issued.ExpiresIn != want {
			t.Errorf("failed! expires_in = %d; want %d", issued.ExpiresIn, want)
		}
	})

	t.Run("check-in with wrong code", func(t *testing.T) {
		wrong := "0000"
		if issued.Code == wrong {
			wrong = "0001"
		}
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: invalidCodeData}
		body := marchallObj(t, attendance.CodeAttendance{UserID: f.hong.ID, Status: attendance.StatusPresent, AttendanceCode: wrong})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.today.ID), student, body)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("check-in with valid code", func(t *testing.T) {
		body := marchallObj(t, attendance.CodeAttendance{UserID: f.hong.ID, Status: attendance.StatusPresent, AttendanceCode: issued.Code})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.today.ID), student, body)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var att attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if att.UserID != f.hong.ID || att.Status != attendance.StatusPresent {
			t.Errorf("failed! att = %+v", att)
		}
	})

	t.Run("duplicate check-in rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "an attendance record already exists for this user and lecture"}),
		}
		body := marchallObj(t, attendance.CodeAttendance{UserID: f.hong.ID, Status: attendance.StatusPresent, AttendanceCode: issued.Code})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.today.ID), student, body)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_attendanceAPI_kiosk(t *testing.T) {
	f := newAttFixture(t)

	rosterPath := func(sessionID int) string { return fmt.Sprintf("/v1/sessions/%d/kiosk", sessionID) }
	checkInPath := func(sessionID int) string { return fmt.Sprintf("/v1/sessions/%d/kiosk/check-in", sessionID) }

	getRoster := func(t *testing.T, path string) KioskRosterResponse {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp KioskRosterResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return resp
	}

	t.Run("no lecture today", func(t *testing.T) {
		ses, err := f.ta.courseSvc.CreateSession(context.Background(), course.NewSession{Name: "Future"})
		if err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
		if _, err := f.ta.courseSvc.CreateLecture(context.Background(), ses.ID, course.NewLecture{
			Title: "Later", Sequence: 1, LectureDate: time.Now().AddDate(0, 0, 1),
		}); err != nil {
			t.Fatalf("CreateLecture() failed: %v", err)
		}

		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "no lecture scheduled today"})}
		req, rec := newAuthRequest(http.MethodGet, rosterPath(ses.ID), f.staffToken)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("full roster", func(t *testing.T) {
		resp := getRoster(t, rosterPath(f.ses.ID))
		if resp.Lecture.ID != f.today.ID {
			t.Errorf("failed! lecture = %d; want %d", resp.Lecture.ID, f.today.ID)
		}
		if len(resp.Entries) != 2 {
			t.Errorf("failed! len(entries) = %d; want 2", len(resp.Entries))
		}
	})

	t.Run("initial consonant search", func(t *testing.T) {
		resp := getRoster(t, rosterPath(f.ses.ID)+"?query="+"%E3%85%8E%E3%84%B1%E3%84%B7") // ㅎㄱㄷ
		if len(resp.Entries) != 1 || resp.Entries[0].Name != "홍길동" {
			t.Errorf("failed! entries = %+v; want only 홍길동", resp.Entries)
		}
	})

	t.Run("affiliation search", func(t *testing.T) {
		resp := getRoster(t, rosterPath(f.ses.ID)+"?query="+"%EC%B2%AD%EB%85%84") // 청년
		if len(resp.Entries) != 1 || resp.Entries[0].Name != "김철수" {
			t.Errorf("failed! entries = %+v; want only 김철수", resp.Entries)
		}
	})

	t.Run("check-in", func(t *testing.T) {
		body := marchallObj(t, KioskCheckInRequest{UserID: f.hong.ID})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.ses.ID), f.staffToken, body)
		f.ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var att attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if att.UserID != f.hong.ID || att.Status != attendance.StatusPresent {
			t.Errorf("failed! att = %+v", att)
		}

		resp := getRoster(t, rosterPath(f.ses.ID))
		for _, entry := range resp.Entries {
			if entry.UserID == f.hong.ID && entry.Attendance == nil {
				t.Error("failed! roster entry not annotated after check-in")
			}
		}
	})

	t.Run("duplicate check-in rejected", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "already checked in"})}
		body := marchallObj(t, KioskCheckInRequest{UserID: f.hong.ID})
		req, rec := newAuthRequest(http.MethodPost, checkInPath(f.ses.ID), f.staffToken, body)
		f.ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
