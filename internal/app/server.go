// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fleetrent-service/internal/cache"
	"fleetrent-service/internal/config"
	"fleetrent-service/internal/db"
	maintenanceHandler "fleetrent-service/internal/handlers/maintenance"
	notifyH "fleetrent-service/internal/handlers/notification"
	reservationHandler "fleetrent-service/internal/handlers/reservation"
	vehicleHandler "fleetrent-service/internal/handlers/vehicle"
	wsHandler "fleetrent-service/internal/handlers/websocket"
	"fleetrent-service/internal/middleware"
	"fleetrent-service/internal/pkg/jwt"
	"fleetrent-service/internal/pkg/ratelimit"
	"fleetrent-service/internal/repository/postgres"
	"fleetrent-service/internal/scheduler"
	"fleetrent-service/internal/service/availability"
	maintenanceUsecase "fleetrent-service/internal/service/maintenance"
	notifyUsecase "fleetrent-service/internal/service/notification"
	"fleetrent-service/internal/service/pricing"
	reservationUsecase "fleetrent-service/internal/service/reservation"
	"fleetrent-service/internal/websocket"
	wsHandlers "fleetrent-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// NewLogger builds the process logger from APP_ENV and LOG_LEVEL.
func NewLogger(cfg config.AppConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// Run wires every component and serves until ctx is cancelled, then shuts
// down in reverse order.
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("PostgreSQL connected")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Address:  s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("Redis connected", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	vehicleRepo := postgres.NewVehicleRepository(dbWrapper)
	reservationRepo := postgres.NewReservationRepository(dbWrapper)
	maintenanceRepo := postgres.NewMaintenanceRepository(dbWrapper)
	notifyRepo := postgres.NewNotificationRepository(dbWrapper)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(verifier, logger)

	// ----- Services (Usecases) -----
	notifService := notifyUsecase.NewNotificationService(notifyRepo, hub, logger, s.cfg.NotifyTimeout)
	hub.RegisterHandler(wsHandlers.NewNotificationHandler(notifService))

	calendarCache := cache.NewCalendarCache(redisClient, s.cfg.CalendarCacheTTL)
	checker := availability.NewChecker(vehicleRepo, reservationRepo, maintenanceRepo, calendarCache, logger)
	limiter := ratelimit.NewLimiter(redisClient, s.cfg.ReservationRateLimit, s.cfg.ReservationRateWindow)

	reservationService := reservationUsecase.NewReservationService(
		reservationRepo,
		vehicleRepo,
		dbWrapper,
		checker,
		pricing.NewCalculator(s.cfg.AddonPrices),
		notifService,
		limiter,
		logger,
	)
	maintenanceService := maintenanceUsecase.NewMaintenanceService(maintenanceRepo, checker, logger)

	// ----- Scheduler -----
	sched, err := scheduler.NewScheduler(s.cfg.AutoCompleteCron, reservationService, logger)
	if err != nil {
		return err
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, &Handlers{
		ReservationHandler: reservationHandler.NewReservationHandler(reservationService),
		VehicleHandler:     vehicleHandler.NewVehicleHandler(checker, reservationService),
		MaintenanceHandler: maintenanceHandler.NewMaintenanceHandler(maintenanceService),
		NotifHandler:       notifyH.NewNotificationHandler(notifService),
		WSHandler:          wsHandler.NewWebSocketHandler(hub, logger),
		AuthMiddleware:     middleware.NewAuthMiddleware(verifier),
		Database:           pool,
	})

	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ----- Start -----
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	sched.Start()

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		sched.Stop()
		notifService.Wait()
		return err
	})

	return g.Wait()
}
