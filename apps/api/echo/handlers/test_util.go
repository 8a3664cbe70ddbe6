package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/stg-academy/haksa/apps/api/echo/helpers"
	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
	emailsvc "github.com/stg-academy/haksa/services/email"
	exportsvc "github.com/stg-academy/haksa/services/export"
	livesvc "github.com/stg-academy/haksa/services/live"
	"github.com/stg-academy/haksa/storage/codestore"
	dummydb "github.com/stg-academy/haksa/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func testConfig() *core.Config {
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Haksa",
		SecretKey:       []byte("secret"),
		FrontendBaseURL: "http://localhost:8080",
		DefaultFromName: "Haksa",
		DefaultFromAddr: "noreply@localhost",

		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		AttendanceCodeTTL:         15 * time.Minute,
	}
	return conf
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func initApp(conf *core.Config) (*echo.Echo, *echo.Group, echo.MiddlewareFunc) {
	app := echo.New()
	app.Pre(middleware.RemoveTrailingSlash())
	app.HTTPErrorHandler = helpers.AppHTTPErrorHandler
	v1 := app.Group("/v1")
	jwt := helpers.ConfigureAuth(conf)
	return app, v1, jwt
}

func getToken(t *testing.T, usr user.User) string {
	claims := helpers.GetUserClaims(usr)
	token, err := helpers.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

type testApp struct {
	app       *echo.Echo
	conf      *core.Config
	usrRepo   user.Repository
	usrSvc    *user.Service
	courseSvc *course.Service
	attSvc    *attendance.Service
}

// svcDirectory exposes the user service as the kiosk's learner directory.
type svcDirectory struct {
	svc *user.Service
}

var _ attendance.UserDirectory = svcDirectory{}

func (d svcDirectory) QueryDirectory(ctx context.Context, skip, limit int) ([]attendance.DirectoryUser, error) {
	users, err := d.svc.QueryAll(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	dir := make([]attendance.DirectoryUser, len(users))
	for i, usr := range users {
		dir[i] = attendance.DirectoryUser{ID: usr.ID, Name: usr.Name, Information: usr.Information}
	}
	return dir, nil
}

func setupAPI(t *testing.T) *testApp {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupAPI() failed: %v", err)
	}

	conf := testConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	courseSvc := course.NewService(dummydb.NewCourseRepository(db))
	attSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), codestore.NewInMemStore(), courseSvc, nil)
	kiosk := attendance.NewKiosk(attSvc, courseSvc, svcDirectory{svc: usrSvc}, nil)

	app, v1, jwt := initApp(conf)
	RegisterUserAPI(v1, jwt, usrSvc)
	RegisterCourseAPI(v1, jwt, courseSvc)
	RegisterAttendanceAPI(v1, jwt, AttendanceDeps{
		Svc:       attSvc,
		CourseSvc: courseSvc,
		Kiosk:     kiosk,
		Exporter:  exportsvc.NewExcelExporter(),
		Hub:       livesvc.NewHub(nil),
		Conf:      conf,
	})

	return &testApp{
		app:       app,
		conf:      conf,
		usrRepo:   usrRepo,
		usrSvc:    usrSvc,
		courseSvc: courseSvc,
		attSvc:    attSvc,
	}
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
