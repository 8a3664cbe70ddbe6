package helpers

import "github.com/labstack/echo/v4"

func AdminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return ErrHTTPForbidden
		}
	}
}

// SelfOrStaffMiddleware lets a user at their own `:id` resource, and staff
// anywhere. Anyone else gets a 404, same as the user detail endpoints.
func SelfOrStaffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin || claims.IsTeacher || claims.Subject == ctx.Param("id") {
				return next(ctx)
			}
			return ErrHTTPNotFound
		}
	}
}

// StaffMiddleware lets teachers and admins through.
func StaffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin || claims.IsTeacher {
				return next(ctx)
			}
			return ErrHTTPForbidden
		}
	}
}
