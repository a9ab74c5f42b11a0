package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/distribution"
	"github.com/opencontest/contest-api/internal/evaluation"
	servermiddleware "github.com/opencontest/contest-api/cmd/server/internal/middleware"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/cmd/server/internal/ratelimit"
	"github.com/opencontest/contest-api/internal/config"
	"github.com/opencontest/contest-api/internal/logger"
)

const name = "github.com/opencontest/contest-api/cmd/server/internal/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB          *gorm.DB
	distributor *distribution.Distributor
	evaluator   *evaluation.Evaluator
	config      *config.Config
}

func NewRedisLimiter(
	redisHost string,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	l := logger.Logger
	var store middleware.RateLimiterStore

	redisAddr := redisHost + ":6379"
	l.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	rdConf := &ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	}
	store = ratelimit.NewRedisLimitStore(*rdConf)

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	return middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func NewHandler(
	db *gorm.DB,
	distributor *distribution.Distributor,
	evaluator *evaluation.Evaluator,
	cfg *config.Config,
) Handler {
	return Handler{
		DB:          db,
		distributor: distributor,
		evaluator:   evaluator,
		config:      cfg,
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1")

	if h.config.RateLimit != nil && h.config.RateLimit.GlobalPerMinute > 0 {
		v1Group.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"global",
					h.config.RateLimit.GlobalPerMinute,
					h.config.RateLimit.FailOpen,
					nil,
				),
			),
		)
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	v1Group.GET("/ping/", h.Ping)

	v1Group.GET(
		"/contests/:contest_id/",
		h.ContestStatus,
		servermiddleware.PopulateFromIDParam[models.Contest](
			middlewareHandler,
			"contest_id",
			"contest",
		),
	)

	v1Group.POST(
		"/rounds/:round_id/distribute/",
		h.DistributeRound,
		servermiddleware.PopulateFromIDParam[models.Round](
			middlewareHandler,
			"round_id",
			"round",
		),
	)

	v1Group.POST(
		"/submissions/:submission_id/evaluate/",
		h.EvaluateSubmission,
		servermiddleware.PopulateFromIDParam[models.Submission](
			middlewareHandler,
			"submission_id",
			"submission",
		),
	)
}
