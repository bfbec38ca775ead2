// Package httpserver exposes the GeoCam HTTP surface (ORIGINAL §6) over gin,
// wired through pkg/httphelpers the same way the teacher's internal/registry/httpserver
// wires its own endpoints.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginratelimit "github.com/ljahier/gin-ratelimit"

	"geocam/internal/geocam/apiv1"
	"geocam/pkg/httphelpers"
	"geocam/pkg/logger"
	"geocam/pkg/model"
	"geocam/pkg/trace"
)

// Service is the service object for httpserver.
type Service struct {
	cfg         *model.Cfg
	log         *logger.Log
	server      *http.Server
	apiv1       *apiv1.Client
	tracer      *trace.Tracer
	gin         *gin.Engine
	httpHelpers *httphelpers.Client
	imageLimiter *ginratelimit.TokenBucket
}

// New creates a new httpserver service and starts listening.
func New(ctx context.Context, cfg *model.Cfg, api *apiv1.Client, tracer *trace.Tracer, log *logger.Log) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		log:    log.New("httpserver"),
		apiv1:  api,
		gin:    gin.New(),
		tracer: tracer,
		server: &http.Server{
			ReadHeaderTimeout: 3 * time.Second,
		},
		// Backpressure on the two codec-bound endpoints (ORIGINAL §5 "Limits",
		// §7 "Backpressure 429/503"): the worker pool already bounds concurrent
		// codec jobs, this bounds how fast a single peer can queue them.
		imageLimiter: ginratelimit.NewTokenBucket(cfg.Geocam.RateLimit.ImageRequestsPerMinute, time.Minute),
	}

	var err error
	s.httpHelpers, err = httphelpers.New(ctx, s.tracer, s.cfg, s.log)
	if err != nil {
		return nil, err
	}

	// CORS must be registered on the engine before Default() carves out rgRoot,
	// since gin.RouterGroup.Group snapshots the engine's middleware chain at
	// creation time (ORIGINAL §6 "Environment" configurable allow-list).
	s.gin.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Common.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	rgRoot, err := s.httpHelpers.Server.Default(ctx, s.server, s.gin, s.cfg.Geocam.APIServer.Addr)
	if err != nil {
		return nil, err
	}

	rgImage := rgRoot.Group("")
	rgImage.Use(ginratelimit.RateLimitByIP(s.imageLimiter))
	s.httpHelpers.Server.RegEndpoint(ctx, rgImage, http.MethodPost, "process-geocam-image", http.StatusOK, s.endpointProcess)
	s.httpHelpers.Server.RegEndpoint(ctx, rgImage, http.MethodPost, "complete-geocam-image", http.StatusOK, s.endpointComplete)

	s.httpHelpers.Server.RegEndpoint(ctx, rgRoot, http.MethodPost, "pure-png-verify", http.StatusOK, s.endpointPurePNGVerify)

	rgAPI := rgRoot.Group("api")
	s.httpHelpers.Server.RegEndpoint(ctx, rgAPI, http.MethodPost, "register-device-secure", http.StatusOK, s.endpointRegisterDevice)
	s.httpHelpers.Server.RegEndpoint(ctx, rgAPI, http.MethodGet, "devices-secure", http.StatusOK, s.endpointListDevices)
	s.httpHelpers.Server.RegEndpoint(ctx, rgAPI, http.MethodDelete, "delete-device", http.StatusOK, s.endpointDeleteDevice)
	s.httpHelpers.Server.RegEndpoint(ctx, rgAPI, http.MethodPost, "verify-image-secure", http.StatusOK, s.endpointVerifyImageSecure)
	s.httpHelpers.Server.RegEndpoint(ctx, rgAPI, http.MethodGet, "health", http.StatusOK, s.endpointHealth)

	go func() {
		if err := s.httpHelpers.Server.ListenAndServe(ctx, s.server, s.cfg.Geocam.APIServer); err != nil {
			s.log.Trace("listen_error", "error", err)
		}
	}()

	s.log.Info("Started")

	return s, nil
}

// Close shuts down the HTTP server.
func (s *Service) Close(ctx context.Context) error {
	s.log.Info("Stopped")
	return s.server.Shutdown(ctx)
}
