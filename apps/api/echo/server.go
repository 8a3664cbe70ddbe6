package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/stg-academy/haksa/apps/api/echo/handlers"
	"github.com/stg-academy/haksa/apps/api/echo/helpers"
	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
	exportsvc "github.com/stg-academy/haksa/services/export"
	livesvc "github.com/stg-academy/haksa/services/live"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       *user.Service
		CourseSvc     *course.Service
		AttendanceSvc *attendance.Service
		Kiosk         *attendance.Kiosk
		Exporter      *exportsvc.ExcelExporter
		Hub           *livesvc.Hub
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = helpers.NewAppHTTPErrorHandler(s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := helpers.ConfigureAuth(conf)

	handlers.RegisterUserAPI(v1, jwt, s.deps.UserSvc)
	handlers.RegisterCourseAPI(v1, jwt, s.deps.CourseSvc)
	handlers.RegisterAttendanceAPI(v1, jwt, handlers.AttendanceDeps{
		Svc:       s.deps.AttendanceSvc,
		CourseSvc: s.deps.CourseSvc,
		Kiosk:     s.deps.Kiosk,
		Exporter:  s.deps.Exporter,
		Hub:       s.deps.Hub,
		Conf:      conf,
	})
}

func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.ServerAddress()); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

// signalShutdown requests a graceful stop, same as a SIGTERM from outside.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Errors() <-chan error            { return s.errs }
func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Haksa API!")
}
