package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

type classApi struct {
	svc      *class.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:      deps.ClassSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, adminMiddleware(api.userSvc))
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/students", api.students)
	cg.PUT("/:id", api.update, adminMiddleware(api.userSvc))
	cg.DELETE("/:id", api.destroy, adminMiddleware(api.userSvc))
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.Create(ctx.Request().Context(), ctxUsr.Caller(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), ctxUsr.Caller(), ordering.Orderings)
	if err != nil {
		return err
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) students(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	students, err := api.svc.Students(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(cls, api.validate, api.svc); err != nil {
		return err
	}

	cls, err = api.svc.Update(ctx.Request().Context(), ctxUsr.Caller(), cls.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
