package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stg-academy/haksa/apps/api/echo/helpers"
	"github.com/stg-academy/haksa/core"
	"github.com/stg-academy/haksa/core/user"
)

var (
	errUsrNotFoundInCtx  = errors.New("user object not found in echo.Context")
	noPermsToSetRolesMsg = "not enough rights to set these roles"
)

type userAPI struct {
	service *user.Service
}

func RegisterUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userAPI{service: svc}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.userLogin)
	ug.POST("/login/google", api.userGoogleLogin)
	ug.POST("/password-reset", api.userResetPassword)
	ug.POST("/password-reset-confirm", api.userConfirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.userRefreshToken)
	ag.POST("/register", api.userCreate, helpers.AdminMiddleware())
	ag.GET("", api.userQuery, helpers.AdminMiddleware())
	ag.DELETE("", api.userDestroyMultiple, helpers.AdminMiddleware())
	ag.GET("/roles", api.userQueryRoles, helpers.AdminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.service))
	dg.GET("", api.userRetrieve)
	dg.PUT("", api.userUpdate)
	dg.DELETE("", api.userDestroy, helpers.AdminMiddleware())
}

// Handlers

func (api *userAPI) userCreate(ctx echo.Context) error {
	data := new(user.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.service); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := helpers.GetContextUser(ctx, api.service)
	if err != nil {
		return err
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: noPermsToSetRolesMsg})
	}

	usr, err := api.service.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userAPI) userLogin(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := helpers.Authenticate(ctx, data.Username, data.Password, api.service)
	if err != nil {
		return err
	}
	token, err := helpers.GenerateToken(claims)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userAPI) userGoogleLogin(ctx echo.Context) error {
	data := new(GoogleLoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.service.AuthenticateGoogle(ctx.Request().Context(), data.IDToken)
	if err != nil {
		return err
	}
	token, err := helpers.GenerateToken(helpers.GetUserClaims(usr))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userAPI) userRefreshToken(ctx echo.Context) error {
	token, err := helpers.RefreshToken(ctx, api.service)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userAPI) userResetPassword(ctx echo.Context) error {
	data := new(PasswordResetRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// always accept: do not leak which emails exist
	if err := api.service.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && err != user.ErrNotFound {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "If the email exists, a password reset link has been sent to it.",
	})
}

func (api *userAPI) userConfirmPasswordReset(ctx echo.Context) error {
	data := new(user.ResetUserPassword)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if _, err := api.service.ResetPassword(ctx.Request().Context(), *data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Password has been reset successfully."})
}

func (api *userAPI) userQuery(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if filter.IsEmpty() {
		users, err := api.service.QueryAll(reqCtx, 0, 0)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, users)
	}

	users, err := api.service.Filter(reqCtx, *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userAPI) userRetrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errUsrNotFoundInCtx
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) userUpdate(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errUsrNotFoundInCtx
	}

	data := new(user.UpdateUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	ctxUsr, err := helpers.GetContextUser(ctx, api.service)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() {
		// user cannot edit other users
		if usr.ID != ctxUsr.ID {
			return helpers.ErrHTTPForbidden
		}

		// `IsActive` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "" {
			return helpers.ErrHTTPForbidden
		}
	}

	if err := data.Validate(usr, api.service); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: noPermsToSetRolesMsg})
	}

	usr, err = api.service.Update(ctx.Request().Context(), usr.ID, *data)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) userDestroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errUsrNotFoundInCtx
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := helpers.GetContextUser(ctx, api.service)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID {
		return helpers.ErrHTTPForbidden
	}

	if err := api.service.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userAPI) userDestroyMultiple(ctx echo.Context) error {
	data := new(DestroyMultipleRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if data.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := helpers.GetContextUser(ctx, api.service)
	if err != nil {
		return err
	}
	sort.Ints(data.IDs)
	if i := sort.SearchInts(data.IDs, ctxUsr.ID); i < len(data.IDs) {
		if match := data.IDs[i]; ctxUsr.ID == match {
			return helpers.ErrHTTPForbidden
		}
	}

	if err := api.service.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userAPI) userQueryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func ctxUserOrAdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if id, err := strconv.Atoi(ctx.Param("id")); err == nil {
				ctxUsr, err := helpers.GetContextUser(ctx, svc)
				if err != nil {
					return err
				}

				if id == ctxUsr.ID || ctxUsr.IsAdmin() {
					usr, err := svc.GetByID(ctx.Request().Context(), id)
					if err == nil {
						ctx.Set("object", usr)
						return next(ctx)
					} else if err != user.ErrNotFound {
						return err
					}
				}
			}
			return helpers.ErrHTTPNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	GoogleLoginRequest struct {
		IDToken string `json:"id_token" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	DestroyMultipleRequest struct {
		IDs []int `query:"id"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true)
	return core.Validate.Struct(lr)
}

func (gr *GoogleLoginRequest) Validate() error {
	return core.Validate.Struct(gr)
}

func (pr *PasswordResetRequest) Validate() error {
	pr.Email = core.CleanString(pr.Email, true)
	return core.Validate.Struct(pr)
}
