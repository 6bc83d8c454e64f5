package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/user"
)

type messageApi struct {
	svc      *message.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messageApi{
		svc:      deps.MessageSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/messages", jwt)
	mg.POST("", api.create)
	mg.GET("", api.query)
	mg.GET("/:id", api.retrieve)
	mg.PUT("/:id/read", api.markRead)
	mg.DELETE("/:id", api.destroy, adminMiddleware(api.userSvc))
}

func (api *messageApi) create(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.Create(ctx.Request().Context(), ctxUsr.Caller(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter message.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []message.Message{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	msgs, err := api.svc.Query(ctx.Request().Context(), ctxUsr.Caller(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data message.MarkMessageRead
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkMessageRead")
	}

	msg, err := api.svc.MarkRead(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"), data.Read)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
