package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/internal/metrics"
	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/internal/version"
	apiv1 "github.com/usetradechat/tradechat/server/router/api/v1"
	"github.com/usetradechat/tradechat/store"
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, responder ai.Responder) (*Server, error) {
	secret := profile.Secret
	if secret == "" {
		return nil, errors.New("server secret required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowCredentials: false,
	}))
	e.Use(requestLogger())

	s := &Server{
		Secret:     secret,
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready. "+version.String())
	})

	chatMetrics := metrics.New()
	e.GET("/metrics", echo.WrapHandler(chatMetrics.Handler()))

	s.apiService = apiv1.NewAPIV1Service(secret, profile, store, responder, chatMetrics)
	s.apiService.RegisterRoutes(e)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)

	if s.Profile.UNIXSock != "" {
		listener, err := net.Listen("unix", s.Profile.UNIXSock)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on unix socket %s", s.Profile.UNIXSock)
		}
		s.echoServer.Listener = listener
		address = s.Profile.UNIXSock
	}

	go func() {
		var err error
		if s.echoServer.Listener != nil {
			err = s.echoServer.Start("")
		} else {
			err = s.echoServer.Start(address)
		}
		if err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Shutdown echo server
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	// Close database connection
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("tradechat stopped properly")
}

// requestLogger logs each request with slog, matching the service's
// structured logging everywhere else.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
				slog.Warn("request", attrs...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	})
}
