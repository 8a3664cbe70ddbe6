package helpers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	"github.com/stg-academy/haksa/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	ErrHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	ErrHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTokenSigningFailed   = errors.New("failed to sign token")
)

// domainHTTPError maps service sentinels to HTTP errors. The detail strings
// for the lecture, session and code cases are relied on by existing clients
// and must stay stable.
func domainHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case attendance.ErrLectureNotFound, course.ErrLectureNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "Lecture not found"), true
	case attendance.ErrSessionNotFound, course.ErrSessionNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "Session not found"), true
	case attendance.ErrInvalidCode:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid attendance code"), true
	case attendance.ErrCodeNotIssued:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid attendance code"), true
	case user.ErrInvalidGoogleToken:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()), true
	case user.ErrAccountDeactivated:
		return echo.NewHTTPError(http.StatusForbidden, err.Error()), true
	case attendance.ErrNotFound, user.ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error()), true
	case attendance.ErrAlreadyExists:
		return echo.NewHTTPError(http.StatusConflict, err.Error()), true
	case attendance.ErrSaveInFlight:
		return echo.NewHTTPError(http.StatusConflict, err.Error()), true
	case attendance.ErrNoLectureToday, attendance.ErrAlreadyCheckedIn, attendance.ErrNoSelection:
		return echo.NewHTTPError(http.StatusConflict, err.Error()), true
	}
	return nil, false
}

// NewAppHTTPErrorHandler returns an echo.HTTPErrorHandler that knows how to
// handle our errors. signalShutdown is called whenever a core shutdown error
// is caught, so the server can stop gracefully.
func NewAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		appHTTPErrorHandler(err, c, signalShutdown)
	}
}

// AppHTTPErrorHandler is the handler without a shutdown hook, for tests and
// embedded apps.
func AppHTTPErrorHandler(err error, c echo.Context) {
	appHTTPErrorHandler(err, c, nil)
}

func appHTTPErrorHandler(err error, c echo.Context, signalShutdown func()) {
	var code int
	var message interface{}

	if herr, ok := domainHTTPError(err); ok {
		err = herr
	}

	switch err := err.(type) {
	case *echo.HTTPError:
		if err == middleware.ErrJWTMissing {
			code = http.StatusUnauthorized
			message = err.Message
			break
		}
		if err.Internal != nil {
			if herr, ok := err.Internal.(*echo.HTTPError); ok {
				err = herr
			}
		}
		code = err.Code
		message = err.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string)
		for _, vErr := range err {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		code = http.StatusBadRequest
		message = fldErrs
	case *core.ValidationError:
		if err.Fields != nil {
			fldErrs := make(map[string]string)
			for _, fErr := range err.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = err.Error()
		}
		code = http.StatusBadRequest
	default: // any other error is a server error
		code = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)

		// shutting down...
		if core.IsShutdown(err) && signalShutdown != nil {
			signalShutdown()
		}
	}

	if c.Echo().Debug {
		message = err.Error()
	} else if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	// Send response
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead { // Issue #608
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
