package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
)

type studentApi struct {
	svc      student.Service
	staffSvc staff.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service, staffSvc staff.Service) {
	api := studentApi{svc: svc, staffSvc: staffSvc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.list)
	sg.POST("", api.create, adminMiddleware())

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// getStudent loads the path student and hides those of other organizations
// from tenant staff.
func (api *studentApi) getStudent(ctx echo.Context) (student.Student, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return student.Student{}, errHttpNotFound
	}
	std, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil && std.OrganizationID != *claims.OrganizationID {
		return student.Student{}, errHttpNotFound
	}
	return std, nil
}

// Handlers

func (api *studentApi) list(ctx echo.Context) error {
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	var students []student.Student
	if v := ctx.QueryParam("class_id"); v != "" {
		classID, err := strconv.Atoi(v)
		if err != nil {
			return errHttpNotFound
		}
		students, err = api.svc.QueryByClass(ctx.Request().Context(), orgID, classID)
		if err != nil {
			return errors.Wrap(err, "querying students by class")
		}
		if students == nil {
			students = []student.Student{}
		}
		return ctx.JSON(http.StatusOK, students)
	}

	students, err = api.svc.QueryByOrganization(ctx.Request().Context(), orgID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	// tenant admins only enroll students into their own organization
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil {
		data.OrganizationID = *claims.OrganizationID
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	std, err = api.svc.Update(ctx.Request().Context(), std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
