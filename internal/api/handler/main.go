package handler

import (
	"net/http"

	"greenloop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🌱")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}

		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.

		u := groupUser{cfg.Container}
		routesAPIv1.GET("/user/me", u.Me)

		a := groupActivity{cfg.Container}
		routesAPIv1.POST("/activities", a.Submit)
		routesAPIv1.GET("/activities", a.List)

		ch := groupCheckin{cfg.Container}
		routesAPIv1.GET("/checkins", ch.List)
		routesAPIv1.POST("/checkins/makeup", ch.Makeup)
		routesAPIv1.GET("/streak", ch.MyStreak)

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard/points", l.GetPointsLeaderboard)
		routesAPIv1.GET("/leaderboard/streak", l.GetStreakLeaderboard)
		routesAPIv1.GET("/leaderboard/streak/me", l.GetMyStreakRank)
		routesAPIv1.POST("/leaderboard/:scope/refresh", l.Refresh)
	}

	return r, nil
}
