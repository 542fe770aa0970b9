package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/staff"
)

type billingApi struct {
	svc      billing.Service
	staffSvc staff.Service
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc billing.Service, staffSvc staff.Service) {
	api := billingApi{svc: svc, staffSvc: staffSvc}

	bg := g.Group("/fee-items", jwt)
	bg.GET("", api.list)
	bg.POST("", api.create, adminMiddleware(staff.RoleAdminOwner, staff.RoleAdminPrincipal, staff.RoleAdminBursar))

	dg := bg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/pay", api.markPaid, adminMiddleware(staff.RoleAdminOwner, staff.RoleAdminPrincipal, staff.RoleAdminBursar))
	dg.POST("/void", api.void, adminMiddleware(staff.RoleAdminOwner, staff.RoleAdminPrincipal, staff.RoleAdminBursar))
}

func (api *billingApi) getFeeItem(ctx echo.Context) (billing.FeeItem, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return billing.FeeItem{}, errHttpNotFound
	}
	item, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return billing.FeeItem{}, errors.Wrap(err, "finding fee item by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return billing.FeeItem{}, errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil && item.OrganizationID != *claims.OrganizationID {
		return billing.FeeItem{}, errHttpNotFound
	}
	return item, nil
}

// Handlers

func (api *billingApi) list(ctx echo.Context) error {
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	var items []billing.FeeItem
	if v := ctx.QueryParam("student_id"); v != "" {
		studentID, err := strconv.Atoi(v)
		if err != nil {
			return errHttpNotFound
		}
		items, err = api.svc.QueryByStudent(ctx.Request().Context(), studentID)
		if err != nil {
			return errors.Wrap(err, "querying fee items by student")
		}
		// the student filter must not leak another organization's items
		kept := make([]billing.FeeItem, 0, len(items))
		for _, item := range items {
			if item.OrganizationID == orgID {
				kept = append(kept, item)
			}
		}
		return ctx.JSON(http.StatusOK, kept)
	}

	items, err = api.svc.QueryByOrganization(ctx.Request().Context(), orgID)
	if err != nil {
		return errors.Wrap(err, "querying fee items")
	}
	if items == nil {
		items = []billing.FeeItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *billingApi) create(ctx echo.Context) error {
	var data billing.NewFeeItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeItem")
	}

	// tenant admins only bill within their own organization
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil {
		data.OrganizationID = *claims.OrganizationID
	}

	item, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *billingApi) retrieve(ctx echo.Context) error {
	item, err := api.getFeeItem(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *billingApi) markPaid(ctx echo.Context) error {
	item, err := api.getFeeItem(ctx)
	if err != nil {
		return err
	}

	item, err = api.svc.MarkPaid(ctx.Request().Context(), item.ID)
	if err != nil {
		return errors.Wrap(err, "marking fee item paid")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *billingApi) void(ctx echo.Context) error {
	item, err := api.getFeeItem(ctx)
	if err != nil {
		return err
	}

	item, err = api.svc.Void(ctx.Request().Context(), item.ID)
	if err != nil {
		return errors.Wrap(err, "voiding fee item")
	}
	return ctx.JSON(http.StatusOK, item)
}
