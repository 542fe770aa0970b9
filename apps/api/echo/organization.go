package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/organization"
)

type organizationApi struct {
	svc organization.Service
}

func registerOrganizationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc organization.Service) {
	api := organizationApi{svc: svc}

	og := g.Group("/organizations", jwt)
	og.GET("", api.list, platformAdminMiddleware())
	og.POST("", api.create, platformAdminMiddleware())

	dg := og.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, platformAdminMiddleware())
	dg.GET("/branches", api.listBranches)
	dg.POST("/branches", api.createBranch, adminMiddleware())
}

// pathOrgID parses the :id path param and, for tenant staff, rejects any
// organization other than their own.
func pathOrgID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil && *claims.OrganizationID != id {
		return 0, errHttpForbidden
	}
	return id, nil
}

// Handlers

func (api *organizationApi) list(ctx echo.Context) error {
	orgs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying all organizations")
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (api *organizationApi) create(ctx echo.Context) error {
	var data organization.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}

	org, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}
	return ctx.JSON(http.StatusCreated, org)
}

func (api *organizationApi) retrieve(ctx echo.Context) error {
	id, err := pathOrgID(ctx)
	if err != nil {
		return err
	}

	org, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding organization by ID")
	}
	return ctx.JSON(http.StatusOK, org)
}

func (api *organizationApi) update(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data organization.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganization")
	}

	org, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, org)
}

func (api *organizationApi) listBranches(ctx echo.Context) error {
	id, err := pathOrgID(ctx)
	if err != nil {
		return err
	}

	brs, err := api.svc.QueryBranches(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	return ctx.JSON(http.StatusOK, brs)
}

func (api *organizationApi) createBranch(ctx echo.Context) error {
	id, err := pathOrgID(ctx)
	if err != nil {
		return err
	}

	var data organization.NewBranch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBranch")
	}
	data.OrganizationID = id

	br, err := api.svc.CreateBranch(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating branch")
	}
	return ctx.JSON(http.StatusCreated, br)
}
