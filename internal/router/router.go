package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authhandler "github.com/doarbem/doar-api/internal/handler/auth"
	donationhandler "github.com/doarbem/doar-api/internal/handler/donation"
	healthhandler "github.com/doarbem/doar-api/internal/handler/health"
	institutionhandler "github.com/doarbem/doar-api/internal/handler/institution"
	notificationhandler "github.com/doarbem/doar-api/internal/handler/notification"
	promhandler "github.com/doarbem/doar-api/internal/handler/prometheus"
	ratinghandler "github.com/doarbem/doar-api/internal/handler/rating"
	"github.com/doarbem/doar-api/internal/middleware"
	"github.com/doarbem/doar-api/internal/validation"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
	Timeout    time.Duration
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware

	authH         *authhandler.Handler
	donationH     *donationhandler.Handler
	notificationH *notificationhandler.Handler
	ratingH       *ratinghandler.Handler
	institutionH  *institutionhandler.Handler
	healthH       *healthhandler.Handler
	prometheusH   *promhandler.Handler
}

func New(
	auth *middleware.AuthMiddleware,
	authH *authhandler.Handler,
	donationH *donationhandler.Handler,
	notificationH *notificationhandler.Handler,
	ratingH *ratinghandler.Handler,
	institutionH *institutionhandler.Handler,
	healthH *healthhandler.Handler,
	prometheusH *promhandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	validation.Register()
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		authH:         authH,
		donationH:     donationH,
		notificationH: notificationH,
		ratingH:       ratingH,
		institutionH:  institutionH,
		healthH:       healthH,
		prometheusH:   prometheusH,
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		prometheusH.Middleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.healthH.RegisterRoutes(api)
	api.GET("/metrics", r.prometheusH.Handler())

	// Public routes
	r.authH.RegisterRoutes(api)
	r.institutionH.RegisterRoutes(api)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.donationH.RegisterRoutes(protected, r.auth)
	r.notificationH.RegisterRoutes(protected)
	r.ratingH.RegisterRoutes(protected, r.auth)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
