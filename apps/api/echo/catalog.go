package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/staff"
)

// each catalog kind gets its own routes backed by the same handler set
var catalogKindPaths = map[catalog.Kind]string{
	catalog.KindDepartment: "/departments",
	catalog.KindSubject:    "/subjects",
	catalog.KindFeeType:    "/fee-types",
	catalog.KindClass:      "/classes",
}

type catalogApi struct {
	kind     catalog.Kind
	svc      catalog.Service
	staffSvc staff.Service
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc catalog.Service, staffSvc staff.Service) {
	for _, kind := range catalog.Kinds {
		api := catalogApi{kind: kind, svc: svc, staffSvc: staffSvc}

		kg := g.Group(catalogKindPaths[kind], jwt)
		kg.GET("", api.list)
		kg.POST("", api.create, adminMiddleware())

		dg := kg.Group("/:id")
		dg.GET("", api.retrieve)
		dg.PUT("", api.update, adminMiddleware())
		dg.DELETE("", api.destroy, adminMiddleware())
		dg.POST("/restore", api.restore, adminMiddleware())
		dg.POST("/enable", api.enable, adminMiddleware())
		dg.GET("/removal-plan", api.removalPlan, adminMiddleware())
	}
}

// resolveOrgID returns the organization an operation applies to: the caller's
// own organization, or the `organization_id` query param for platform staff.
func resolveOrgID(ctx echo.Context) (int, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil {
		return *claims.OrganizationID, nil
	}
	if v := ctx.QueryParam("organization_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			return id, nil
		}
	}
	return 0, core.NewValidationError(nil, core.FieldError{Field: "organization_id", Error: "required"})
}

// getEntity loads the path entity and rejects ids of another kind, so e.g.
// /v1/subjects/:id never resolves a department.
func (api *catalogApi) getEntity(ctx echo.Context) (catalog.Entity, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return catalog.Entity{}, errHttpNotFound
	}
	ent, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return catalog.Entity{}, errors.Wrap(err, "finding catalog entry by ID")
	}
	if ent.Kind != api.kind {
		return catalog.Entity{}, errHttpNotFound
	}
	return ent, nil
}

// Handlers

func (api *catalogApi) list(ctx echo.Context) error {
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	ents, err := api.svc.ResolveVisible(ctx.Request().Context(), orgID)
	if err != nil {
		return errors.Wrap(err, "resolving visible catalog entries")
	}

	kinded := make([]catalog.Entity, 0, len(ents))
	for _, ent := range ents {
		if ent.Kind == api.kind {
			kinded = append(kinded, ent)
		}
	}
	return ctx.JSON(http.StatusOK, kinded)
}

func (api *catalogApi) create(ctx echo.Context) error {
	var data catalog.NewEntity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntity")
	}
	data.Kind = api.kind

	// tenant admins only create private entries owned by their organization;
	// platform admins choose the owner (or none, for a global entry)
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil {
		data.OwnerOrganizationID = claims.OrganizationID
	}

	ent, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating catalog entry")
	}
	return ctx.JSON(http.StatusCreated, ent)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}

	// tenant staff only see entries visible to their organization
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.OrganizationID != nil {
		if err := api.svc.Visible(ctx.Request().Context(), *claims.OrganizationID, api.kind, ent.ID); err != nil {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, ent)
}

func (api *catalogApi) update(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}

	var data catalog.UpdateEntity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntity")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ent, err = api.svc.Update(ctx.Request().Context(), ent.ID, data, claims.OrganizationID)
	if err != nil {
		return errors.Wrap(err, "updating catalog entry")
	}
	return ctx.JSON(http.StatusOK, ent)
}

func (api *catalogApi) restore(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ent, err = api.svc.Restore(ctx.Request().Context(), ent.ID, claims.OrganizationID)
	if err != nil {
		return errors.Wrap(err, "restoring catalog entry")
	}
	return ctx.JSON(http.StatusOK, ent)
}

func (api *catalogApi) enable(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Enable(ctx.Request().Context(), ent.ID, orgID); err != nil {
		return errors.Wrap(err, "enabling catalog entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) removalPlan(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	plan, err := api.svc.ClassifyRemoval(ctx.Request().Context(), ent.ID, orgID)
	if err != nil {
		return errors.Wrap(err, "classifying removal")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *catalogApi) destroy(ctx echo.Context) error {
	ent, err := api.getEntity(ctx)
	if err != nil {
		return err
	}
	orgID, err := resolveOrgID(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.RemoveOrDelete(ctx.Request().Context(), ent.ID, orgID)
	if err != nil {
		return errors.Wrap(err, "removing catalog entry")
	}
	return ctx.JSON(http.StatusOK, res)
}
