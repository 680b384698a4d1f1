package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const swaggerDocURL = "/swagger/flightbooking.swagger.json"

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	healthConn *grpc.ClientConn
	httpServer *http.Server
}

// Deps are the services the HTTP layer serves. Limiter may be nil, which
// turns rate limiting off.
type Deps struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Limiter  api.Limiter
}

// Run starts the gRPC health server and the gin HTTP server and blocks until
// ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s, err := newServers(cfg, deps)
	if err != nil {
		return err
	}
	defer s.healthConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.grpcServer.GracefulStop()
		return nil
	}
}

func newServers(cfg *config.Config, deps Deps) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health %s: %w", cfg.GRPC.Address, err)
	}

	router := NewRouter(cfg, deps, healthpb.NewHealthClient(conn))

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		healthConn: conn,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// NewRouter wires middleware, API routes, docs, the browser client and the
// health gateway onto one gin engine.
func NewRouter(cfg *config.Config, deps Deps, healthClient healthpb.HealthClient) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition", "Retry-After", "X-RateLimit-Remaining"}
	router.Use(cors.New(corsCfg))

	var writes []gin.HandlerFunc
	if cfg.RateLimit.Enabled && deps.Limiter != nil {
		writes = append(writes, api.RateLimit(deps.Limiter, cfg.RateLimit.Prefix, cache.Bucket{
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: time.Duration(cfg.RateLimit.RefillIntervalMS) * time.Millisecond,
		}))
	}

	api.NewFlightHandler(deps.Flights).Register(router.Group("/flights"))
	api.NewBookingHandler(deps.Bookings).Register(router.Group("/bookings"), writes...)

	if healthClient != nil {
		gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthClient))
		router.GET("/healthz", gin.WrapH(gateway))
	}

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocURL))))
	}

	if cfg.HTTP.WebDir != "" {
		router.Static("/ui", cfg.HTTP.WebDir)
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/ui/")
		})
	}

	return router
}
