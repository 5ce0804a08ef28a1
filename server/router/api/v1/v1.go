package v1

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/internal/metrics"
	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/store"
)

// maxConcurrentReplies caps in-flight responder calls across all
// conversations so a slow webhook cannot exhaust the server.
const maxConcurrentReplies = 8

type APIV1Service struct {
	Secret    string
	Profile   *profile.Profile
	Store     *store.Store
	Responder ai.Responder
	Metrics   *metrics.Metrics

	// inflightSends tracks conversations with a send in progress. A second
	// send for the same conversation is rejected instead of queued, which
	// is what keeps a duplicate submission from persisting twice.
	inflightSends sync.Map

	replySemaphore *semaphore.Weighted
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, responder ai.Responder, metrics *metrics.Metrics) *APIV1Service {
	return &APIV1Service{
		Secret:         secret,
		Profile:        profile,
		Store:          store,
		Responder:      responder,
		Metrics:        metrics,
		replySemaphore: semaphore.NewWeighted(maxConcurrentReplies),
	}
}

// RegisterRoutes attaches all /api/v1 routes to e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	apiGroup := e.Group("/api/v1")

	// Credential endpoints are rate limited per client IP.
	authGroup := apiGroup.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(5))))
	authGroup.POST("/signup", s.SignUp)
	authGroup.POST("/signin", s.SignIn)
	authGroup.POST("/signout", s.SignOut, s.AuthMiddleware)
	authGroup.GET("/me", s.GetCurrentSession, s.AuthMiddleware)
	authGroup.PATCH("/me", s.UpdateCurrentUser, s.AuthMiddleware)

	protected := apiGroup.Group("", s.AuthMiddleware)
	protected.GET("/chat", s.ResolveChat)
	protected.GET("/conversations", s.ListConversations)
	protected.POST("/conversations", s.CreateConversation)
	protected.DELETE("/conversations/:uid", s.DeleteConversation)
	protected.GET("/conversations/:uid/messages", s.ListMessages)
	protected.POST("/conversations/:uid/messages", s.SendMessage)
}

// errGeneric is the localized storage-failure message surfaced to users in
// place of raw database errors.
const errGeneric = "Algo deu errado. Tente novamente."

func genericError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, errGeneric).SetInternal(err)
}
