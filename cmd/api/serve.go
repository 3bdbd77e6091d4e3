package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harentsoaR/clinic-api/internal/cache"
	"github.com/harentsoaR/clinic-api/internal/config"
	"github.com/harentsoaR/clinic-api/internal/handlers"
	"github.com/harentsoaR/clinic-api/internal/jobs"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store/mongostore"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

type serveOptions struct {
	memory        bool
	adminEmail    string
	adminPassword string
}

func serveCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "use the in-memory store instead of MongoDB (development only)")
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "", "create this admin account at startup if missing")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "", "password for --admin-email")
	return cmd
}

func runServer(parent context.Context, opts serveOptions) error {
	cfg, logger, err := setup(!opts.memory)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := openStore(ctx, cfg, opts.memory, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if ms, ok := s.(*mongostore.Store); ok {
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		logger.Info().Msg("connected to Redis")
	}
	var (
		doctorCache *cache.DoctorCache
		limiter     *middleware.RateLimiter
	)
	if rdb != nil {
		doctorCache = cache.NewDoctorCache(rdb, cfg.DoctorCacheTTL, logger)
		limiter = middleware.NewRateLimiter(rdb, cfg.BookingRateLimit, cfg.BookingRateWindow, "clinic:rl:booking")
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	h := handlers.NewHandler(s, tokens, doctorCache, logger)

	if opts.adminEmail != "" {
		if err := bootstrapAdmin(ctx, h.Accounts, opts.adminEmail, opts.adminPassword, logger); err != nil {
			return err
		}
	}

	scheduler, err := jobs.NewScheduler(cfg.ReconcileSchedule, h.Reconciler, time.Minute, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	if len(cfg.KafkaBrokers) > 0 {
		writer := services.NewKafkaWriter(cfg.KafkaBrokers)
		defer writer.Close()
		publisher := services.NewEventPublisher(s, writer, logger, services.PublisherConfig{
			Topic:     cfg.KafkaTopic,
			PollEvery: cfg.OutboxPollInterval,
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
	} else {
		logger.Warn().Msg("outbox publisher disabled (no kafka brokers configured)")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, h, tokens, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newRouter(cfg *config.Config, h *handlers.Handler, tokens *utils.TokenManager, limiter *middleware.RateLimiter, logger zerolog.Logger) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(r, tokens, limiter)
	return r
}
