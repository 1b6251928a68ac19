package handler

import (
	"errors"
	"strconv"

	"greenloop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupActivity struct {
	container *do.Injector
}

type submitActivityPayload struct {
	Category string `json:"category"`
	CO2Grams int    `json:"co2_grams"`
}

func (gr *groupActivity) Submit(c echo.Context) error {
	serviceActivity, err := do.Invoke[*services.ServiceActivity](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload submitActivityPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	if payload.Category == "" {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("category is required"), errorx.Invalid))
	}

	if payload.CO2Grams < 0 {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("co2_grams must not be negative"), errorx.Invalid))
	}

	record, err := serviceActivity.SubmitActivity(ctx, user, payload.Category, payload.CO2Grams)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, record, nil)
}

func (gr *groupActivity) List(c echo.Context) error {
	serviceActivity, err := do.Invoke[*services.ServiceActivity](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	records, err := serviceActivity.GetUserActivities(ctx, user.ID, limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, records, nil)
}
