package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stg-academy/haksa/apps/api/echo/helpers"
	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/attendance"
	"github.com/stg-academy/haksa/core/course"
	exportsvc "github.com/stg-academy/haksa/services/export"
	livesvc "github.com/stg-academy/haksa/services/live"
)

type AttendanceDeps struct {
	Svc       *attendance.Service
	CourseSvc *course.Service
	Kiosk     *attendance.Kiosk
	Exporter  *exportsvc.ExcelExporter
	Hub       *livesvc.Hub
	Conf      *core.Config
}

type attendanceAPI struct {
	deps AttendanceDeps
}

func RegisterAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps AttendanceDeps) {
	api := attendanceAPI{deps: deps}

	sg := g.Group("/sessions/:id/attendance", jwt)
	sg.GET("/matrix", api.matrixRetrieve, helpers.StaffMiddleware())
	sg.GET("/export", api.matrixExport, helpers.StaffMiddleware())

	lg := g.Group("/lectures/:id/attendance", jwt)
	lg.GET("", api.lectureQuery, helpers.StaffMiddleware())
	lg.POST("", api.cellSet, helpers.StaffMiddleware())
	lg.POST("/bulk", api.bulkEdit, helpers.StaffMiddleware())
	lg.POST("/code", api.codeIssue, helpers.StaffMiddleware())
	lg.POST("/check-in", api.codeCheckIn)

	kg := g.Group("/sessions/:id/kiosk", jwt)
	kg.GET("", api.kioskRoster, helpers.StaffMiddleware())
	kg.POST("/check-in", api.kioskCheckIn, helpers.StaffMiddleware())

	// live dashboard feed
	g.GET("/attendance/live", api.liveFeed, jwt)
}

// buildMatrix assembles the session's roster × lecture grid.
func (api *attendanceAPI) buildMatrix(ctx echo.Context, sessionID int) (*attendance.Matrix, error) {
	reqCtx := ctx.Request().Context()

	if _, err := api.deps.CourseSvc.GetSession(reqCtx, sessionID); err != nil {
		return nil, err
	}
	lectures, err := api.deps.CourseSvc.QueryLectures(reqCtx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := api.deps.Svc.QueryBySession(reqCtx, sessionID, attendance.QueryFilter{})
	if err != nil {
		return nil, err
	}
	return attendance.BuildMatrix(records, lectures), nil
}

func (api *attendanceAPI) matrixRetrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	matrix, err := api.buildMatrix(ctx, id)
	if err != nil {
		return err
	}
	if ctx.QueryParam("sort") == "name" {
		matrix.SortBy("name")
		if ctx.QueryParam("order") == "desc" {
			matrix.SortBy("name")
		}
	}

	return ctx.JSON(http.StatusOK, MatrixResponse{
		Lectures: matrix.Lectures(),
		Rows:     matrix.Rows(ctx.QueryParam("search")),
	})
}

func (api *attendanceAPI) matrixExport(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	ses, err := api.deps.CourseSvc.GetSession(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	matrix, err := api.buildMatrix(ctx, id)
	if err != nil {
		return err
	}
	matrix.SortBy("name")

	buff, err := api.deps.Exporter.Export(matrix, ses.Name)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("attendance-%d.xlsx", ses.ID)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(
		http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buff.Bytes(),
	)
}

func (api *attendanceAPI) lectureQuery(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	records, err := api.deps.Svc.QueryByLecture(ctx.Request().Context(), id, *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceAPI) cellSet(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(CellSetRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	att, err := api.deps.Svc.Set(ctx.Request().Context(), id, data.UserID, data.Status, data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceAPI) bulkEdit(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(BulkEditRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()

	// rebuild the cells server-side so each one carries its own
	// create-or-update decision
	cells := make([]attendance.Cell, 0, len(data.UserIDs))
	for _, userID := range data.UserIDs {
		cell := attendance.Cell{LectureID: id, UserID: userID}
		if att, err := api.deps.Svc.GetByLectureAndUser(reqCtx, id, userID); err == nil {
			cell.Attendance = &att
		} else if err != attendance.ErrNotFound {
			return err
		}
		cells = append(cells, cell)
	}

	edit := api.deps.Svc.OpenBulkEdit(cells)
	edit.Status = data.Status
	edit.Note = data.Note
	results, err := edit.Save(reqCtx)
	if err != nil {
		return err
	}

	resp := BulkEditResponse{Results: make([]BulkCellResponse, len(results))}
	for i, res := range results {
		r := BulkCellResponse{UserID: res.Cell.UserID, Attendance: res.Attendance}
		if res.Err != nil {
			r.Error = res.Err.Error()
			resp.Failed++
		}
		resp.Results[i] = r
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *attendanceAPI) codeIssue(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	code, err := api.deps.Svc.IssueCode(ctx.Request().Context(), id, api.deps.Conf.AttendanceCodeTTL)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CodeIssueResponse{
		Code:      code,
		ExpiresIn: int(api.deps.Conf.AttendanceCodeTTL.Seconds()),
	})
}

func (api *attendanceAPI) codeCheckIn(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(attendance.CodeAttendance)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	att, err := api.deps.Svc.CheckInWithCode(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attendanceAPI) kioskRoster(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	session, err := api.deps.Kiosk.Load(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	session.AppendQuery(ctx.QueryParam("query"))

	return ctx.JSON(http.StatusOK, KioskRosterResponse{
		Lecture: session.Lecture,
		Entries: session.Matches(),
	})
}

func (api *attendanceAPI) kioskCheckIn(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	data := new(KioskCheckInRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	session, err := api.deps.Kiosk.Load(reqCtx, id)
	if err != nil {
		return err
	}
	if err := session.Select(data.UserID); err != nil {
		return err
	}
	if err := session.Confirm(reqCtx); err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, session.Selected().Attendance)
}

func (api *attendanceAPI) liveFeed(ctx echo.Context) error {
	return api.deps.Hub.Subscribe(ctx.Response(), ctx.Request())
}

type (
	MatrixResponse struct {
		Lectures []course.Lecture `json:"lectures"`
		Rows     []attendance.Row `json:"rows"`
	}

	CellSetRequest struct {
		UserID int               `json:"user_id" validate:"required"`
		Status attendance.Status `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
		Note   string            `json:"note"`
	}

	BulkEditRequest struct {
		UserIDs []int             `json:"user_ids" validate:"required,min=1"`
		Status  attendance.Status `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
		Note    string            `json:"note"`
	}

	BulkCellResponse struct {
		UserID     int                    `json:"user_id"`
		Attendance *attendance.Attendance `json:"attendance,omitempty"`
		Error      string                 `json:"error,omitempty"`
	}

	BulkEditResponse struct {
		Failed  int                `json:"failed"`
		Results []BulkCellResponse `json:"results"`
	}

	CodeIssueResponse struct {
		Code      string `json:"code"`
		ExpiresIn int    `json:"expires_in"`
	}

	KioskRosterResponse struct {
		Lecture course.Lecture           `json:"lecture"`
		Entries []attendance.RosterEntry `json:"entries"`
	}

	KioskCheckInRequest struct {
		UserID int `json:"user_id" validate:"required"`
	}
)

func (cr *CellSetRequest) Validate() error {
	cr.Note = core.CleanString(cr.Note)
	return core.Validate.Struct(cr)
}

func (br *BulkEditRequest) Validate() error {
	br.Note = core.CleanString(br.Note)
	return core.Validate.Struct(br)
}

func (kr *KioskCheckInRequest) Validate() error {
	return core.Validate.Struct(kr)
}
