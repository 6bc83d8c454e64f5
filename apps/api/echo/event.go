package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/user"
)

type eventApi struct {
	svc      *event.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{
		svc:      deps.EventSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/events", jwt)
	eg.POST("", api.create, adminMiddleware(api.userSvc))
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, adminMiddleware(api.userSvc))
	eg.DELETE("/:id", api.destroy, adminMiddleware(api.userSvc))
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evt, err := api.svc.Create(ctx.Request().Context(), ctxUsr.Caller(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter event.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), ctxUsr.Caller(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evt, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
