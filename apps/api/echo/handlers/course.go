package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stg-academy/haksa/apps/api/echo/helpers"
	"github.com/stg-academy/haksa/core/course"
)

type courseAPI struct {
	service *course.Service
}

func RegisterCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseAPI{service: svc}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.sessionCreate, helpers.AdminMiddleware())
	sg.GET("", api.sessionQuery)
	sg.GET("/:id", api.sessionRetrieve)
	sg.POST("/:id/lectures", api.lectureCreate, helpers.StaffMiddleware())
	sg.GET("/:id/lectures", api.lectureQuery)
	sg.POST("/:id/enrollments", api.enrollmentUpsert, helpers.StaffMiddleware())
	sg.GET("/:id/enrollments", api.enrollmentQuery, helpers.StaffMiddleware())

	ug := g.Group("/users", jwt)
	ug.GET("/:id/enrollments", api.userEnrollmentQuery, helpers.SelfOrStaffMiddleware())
}

func (api *courseAPI) sessionCreate(ctx echo.Context) error {
	data := new(course.NewSession)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ses, err := api.service.CreateSession(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ses)
}

func (api *courseAPI) sessionQuery(ctx echo.Context) error {
	sessions, err := api.service.QueryAllSessions(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *courseAPI) sessionRetrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	ses, err := api.service.GetSession(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ses)
}

func (api *courseAPI) lectureCreate(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(course.NewLecture)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	lec, err := api.service.CreateLecture(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lec)
}

func (api *courseAPI) lectureQuery(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	lectures, err := api.service.QueryLectures(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *courseAPI) enrollmentUpsert(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(course.NewEnrollment)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.service.Enroll(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseAPI) enrollmentQuery(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.service.QueryEnrollments(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *courseAPI) userEnrollmentQuery(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.service.QueryUserEnrollments(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, helpers.ErrHTTPNotFound
	}
	return id, nil
}
