package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/user"
)

type gradeApi struct {
	svc      *grade.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{
		svc:      deps.GradeSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.DELETE("/:id", api.destroy)
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grd, err := api.svc.Create(ctx.Request().Context(), ctxUsr.Caller(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *gradeApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter grade.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.Grade{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	grades, err := api.svc.Query(ctx.Request().Context(), ctxUsr.Caller(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grd, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data grade.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Update(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr.Caller(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
