package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"checkin/middlewares"
	"checkin/models"
	"checkin/photos"
	"checkin/repository"
	"checkin/utils"
)

type Limits struct {
	Global     middlewares.LimiterConfig // per client IP, every route
	Auth       middlewares.LimiterConfig // per client IP, /signup and /login
	User       middlewares.LimiterConfig // per account, authenticated routes
	DailyQuota int                       // per account and day; 0 disables
}

// Deps is what the HTTP layer needs. Redis, Photos and Metrics are optional:
// without Redis there is no response cache and no quota, without Photos the
// upload endpoint answers 501.
type Deps struct {
	Repo     *repository.Repository
	Accounts models.AccountRepository
	Signer   *utils.TokenSigner
	Photos   photos.Store
	Redis    *redis.Client
	Metrics  *middlewares.Metrics
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
	Limits   Limits
	CacheTTL time.Duration
	Now      func() time.Time
}

type handlers struct {
	Deps
	inv *utils.CacheInvalidator
}

// RegisterRoutes mounts the API on server. ctx bounds the rate limiter
// sweepers.
func RegisterRoutes(ctx context.Context, server *gin.Engine, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}
	if d.Redis != nil {
		h.inv = utils.NewCacheInvalidator(d.Redis)
	}

	server.Use(middlewares.RequestLogger(d.Log))
	if d.Metrics != nil {
		server.Use(d.Metrics.Middleware())
	}
	global := middlewares.NewRateLimiter(ctx, d.Limits.Global)
	server.Use(global.Middleware(middlewares.ByIP("ip")))

	server.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if d.Gatherer != nil {
		server.GET("/metrics", middlewares.Handler(d.Gatherer))
	}

	authLimiter := middlewares.NewRateLimiter(ctx, d.Limits.Auth)
	server.POST("/signup", authLimiter.Middleware(middlewares.ByIP("signup")), h.signup)
	server.POST("/login", authLimiter.Middleware(middlewares.ByIP("login")), h.login)

	cache := middlewares.ResponseCache(d.Redis, d.CacheTTL)
	server.GET("/events", cache, h.getEvents)
	server.GET("/events/:id", cache, h.getEvent)
	server.GET("/events/:id/ics", cache, h.getEventICS)

	auth := server.Group("/")
	auth.Use(middlewares.Authenticate(d.Signer))
	userLimiter := middlewares.NewRateLimiter(ctx, d.Limits.User)
	auth.Use(userLimiter.Middleware(middlewares.ByUser))
	auth.Use(middlewares.Quota(d.Redis, middlewares.QuotaRule{
		Limit:  d.Limits.DailyQuota,
		Window: 24 * time.Hour,
		KeyFn:  middlewares.UserQuotaKey,
	}))
	auth.Use(cache)

	auth.GET("/account", h.getAccount)
	auth.PUT("/account/password", h.changePassword)

	auth.POST("/events", h.createEvent)
	auth.PUT("/events/:id", h.updateEvent)
	auth.DELETE("/events/:id", h.deleteEvent)
	auth.GET("/events/:id/people", h.getEventPeople)
	auth.GET("/events/:id/attendance", h.getAttendance)
	auth.GET("/events/:id/roster", h.getRoster)
	auth.PUT("/events/:id/attendance/:personId", h.setPresence)

	auth.GET("/people", h.getPeople)
	auth.GET("/people/:id", h.getPerson)
	auth.POST("/people", h.createPerson)
	auth.PUT("/people/:id", h.updatePerson)
	auth.POST("/people/:id/photo", h.uploadPhoto)
}

// purge drops cached GETs after a write. Failures only cost freshness until
// the TTL runs out.
func (h *handlers) purge(c *gin.Context, namespaces ...string) {
	if h.inv == nil {
		return
	}
	if _, err := h.inv.Purge(c.Request.Context(), namespaces...); err != nil {
		h.Log.Warn().Err(err).Strs("namespaces", namespaces).Msg("cache purge failed")
	}
}
