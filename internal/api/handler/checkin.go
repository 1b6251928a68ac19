package handler

import (
	"errors"
	"time"

	"greenloop/internal/interfaces"
	"greenloop/internal/pkg"
	"greenloop/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupCheckin struct {
	container *do.Injector
}

type makeupCheckinPayload struct {
	Date string  `json:"date"`
	Note *string `json:"note"`
}

func (gr *groupCheckin) List(c echo.Context) error {
	serviceCheckin, err := do.Invoke[*services.ServiceCheckin](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	if v := c.QueryParam("from"); v != "" {
		from, err = pkg.ParseCalendarDate(v, time.UTC)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
	}

	if v := c.QueryParam("to"); v != "" {
		to, err = pkg.ParseCalendarDate(v, time.UTC)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
	}

	events, err := serviceCheckin.ListCheckins(ctx, user.ID, from, to)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	return httpx.RestAbort(c, events, nil)
}

// Makeup backfills a missed day. The quota and future-date rules live here,
// on the caller side of the ledger.
func (gr *groupCheckin) Makeup(c echo.Context) error {
	serviceCheckin, err := do.Invoke[*services.ServiceCheckin](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	rateLimiter, err := do.Invoke[interfaces.Limiter](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	if err := rateLimiter.Allow(ctx, services.LimitKeyMakeupCheckin(user.ID), redis_rate.PerMinute(services.MAKEUP_RATE_LIMIT_PER_MINUTE)); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.RateLimiting))
	}

	var payload makeupCheckinPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	loc := serviceConfig.Timezone(ctx)
	date, err := pkg.ParseCalendarDate(payload.Date, loc)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	if date.After(pkg.DayOf(time.Now(), loc)) {
		return httpx.RestAbort(c, nil, errorx.Wrap(services.ErrFutureCheckinDate, errorx.Invalid))
	}

	quota, _ := serviceConfig.GetIntConfig(ctx, services.CONFIG_MAKEUP_QUOTA_PER_MONTH, services.MAKEUP_QUOTA_DEFAULT_MONTHLY)
	used, err := serviceCheckin.CountMakeupCheckinsThisMonth(ctx, user.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if used >= quota {
		return httpx.RestAbort(c, nil, errorx.Wrap(services.ErrMakeupQuotaExceeded, errorx.Invalid))
	}

	event, err := serviceCheckin.RecordMakeupCheckin(ctx, user.ID, date, payload.Note, nil)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyCheckedIn) {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, event, nil)
}

func (gr *groupCheckin) MyStreak(c echo.Context) error {
	serviceCheckin, err := do.Invoke[*services.ServiceCheckin](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	streak, err := serviceCheckin.ComputeStreak(ctx, user.ID, time.Now())
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, streak, nil)
}
