package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/homework"
	"github.com/trezcool/shule/core/user"
)

type homeworkApi struct {
	svc      *homework.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerHomeworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := homeworkApi{
		svc:      deps.HomeworkSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	hg := g.Group("/homework", jwt)
	hg.POST("", api.create)
	hg.GET("", api.query)
	hg.GET("/:id", api.retrieve)
	hg.PUT("/:id", api.update)
	hg.DELETE("/:id", api.destroy)
}

func (api *homeworkApi) create(ctx echo.Context) error {
	var data homework.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	hw, err := api.svc.Create(ctx.Request().Context(), ctxUsr.Caller(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, hw)
}

func (api *homeworkApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter homework.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []homework.Homework{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	hws, err := api.svc.Query(ctx.Request().Context(), ctxUsr.Caller(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if hws == nil {
		hws = []homework.Homework{}
	}
	return ctx.JSON(http.StatusOK, hws)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	hw, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data homework.UpdateHomework
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	hw, err := api.svc.Update(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
