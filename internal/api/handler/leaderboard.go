package handler

import (
	"errors"

	"greenloop/internal/interfaces"
	"greenloop/internal/models"
	"greenloop/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupLeaderboard struct {
	container *do.Injector
}

func (gr *groupLeaderboard) GetPointsLeaderboard(c echo.Context) error {
	return gr.getLeaderboard(c, models.SCOPE_POINTS)
}

func (gr *groupLeaderboard) GetStreakLeaderboard(c echo.Context) error {
	return gr.getLeaderboard(c, models.SCOPE_STREAK)
}

func (gr *groupLeaderboard) getLeaderboard(c echo.Context, scope string) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	if _, err := ResolveValidUser(ctx, gr.container); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	snapshot, err := serviceLeaderboard.GetSnapshot(ctx, scope, false)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, snapshot, nil)
}

type myStreakRankResponse struct {
	GlobalRank int  `json:"global_rank"`
	RegionRank *int `json:"region_rank"`
	SchoolRank *int `json:"school_rank"`
}

// GetMyStreakRank answers "what is my rank" from the snapshot's full rank
// maps, so users outside the visible top-K still get a real position.
func (gr *groupLeaderboard) GetMyStreakRank(c echo.Context) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	snapshot, err := serviceLeaderboard.GetSnapshot(ctx, models.SCOPE_STREAK, false)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	response := &myStreakRankResponse{}
	if snapshot.Ranks != nil {
		response.GlobalRank = snapshot.Ranks.Global[user.ID]

		if user.RegionCode != nil {
			if ranks, ok := snapshot.Ranks.Regions[*user.RegionCode]; ok {
				if rank, ok := ranks[user.ID]; ok {
					response.RegionRank = &rank
				}
			}
		}

		if user.SchoolID != nil {
			if ranks, ok := snapshot.Ranks.Schools[*user.SchoolID]; ok {
				if rank, ok := ranks[user.ID]; ok {
					response.SchoolRank = &rank
				}
			}
		}
	}

	return httpx.RestAbort(c, response, nil)
}

// Refresh is the authorized manual rebuild trigger. No configured secret
// means the trigger is unavailable, not open.
func (gr *groupLeaderboard) Refresh(c echo.Context) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	rateLimiter, err := do.Invoke[interfaces.Limiter](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	scope := c.Param("scope")
	if scope != models.SCOPE_POINTS && scope != models.SCOPE_STREAK {
		return httpx.RestAbort(c, nil, errorx.Wrap(services.ErrUnknownScope, errorx.Invalid))
	}

	ctx := c.Request().Context()

	if err := rateLimiter.Allow(ctx, services.LimitKeyLeaderboardRefresh(scope), redis_rate.PerMinute(services.REFRESH_RATE_LIMIT_PER_MINUTE)); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.RateLimiting))
	}

	if err := serviceLeaderboard.AuthorizeRefresh(c.Request().Header.Get("X-Refresh-Key")); err != nil {
		if errors.Is(err, services.ErrRefreshNotConfigured) {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
		}
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Authn))
	}

	snapshot, err := serviceLeaderboard.RebuildCache(ctx, scope, "manual refresh")
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, snapshot, nil)
}
