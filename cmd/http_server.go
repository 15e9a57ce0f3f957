package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhatdang2003/tms-backend/api"
	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	authPostgres "github.com/nhatdang2003/tms-backend/internal/auth/postgres"
	"github.com/nhatdang2003/tms-backend/internal/core/events"
	"github.com/nhatdang2003/tms-backend/internal/organization"
	organizationPostgres "github.com/nhatdang2003/tms-backend/internal/organization/postgres"
	"github.com/nhatdang2003/tms-backend/internal/permission"
	permissionPostgres "github.com/nhatdang2003/tms-backend/internal/permission/postgres"
	"github.com/nhatdang2003/tms-backend/internal/ratelimit"
	"github.com/nhatdang2003/tms-backend/internal/role"
	rolePostgres "github.com/nhatdang2003/tms-backend/internal/role/postgres"
	"github.com/nhatdang2003/tms-backend/internal/transport/middleware"
	"github.com/nhatdang2003/tms-backend/internal/transport/rest"
	"github.com/nhatdang2003/tms-backend/internal/user"
	userPostgres "github.com/nhatdang2003/tms-backend/internal/user/postgres"
	"github.com/nhatdang2003/tms-backend/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is the composition root: every long lived component is built
// once here and handed to the router.
type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies(path string) (*Dependencies, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	if _, err := api.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	rdb, err := initRedis(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	deps := &Dependencies{
		Config:   cfg,
		DB:       db,
		Gorm:     gdb,
		Redis:    rdb,
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
	}

	router, err := buildRouter(deps)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Router = router

	return deps, nil
}

func buildRouter(deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	lg := deps.Logger

	auth.SubscribeMailer(deps.EventBus, auth.NewLogMailSender(lg))
	auth.SubscribeAudit(deps.EventBus, lg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics := auth.NewMetrics(registry)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	accounts := authPostgres.NewAccountRepository(deps.Gorm)
	tokens := auth.NewTokenService(
		auth.NewTokenConfig(cfg.Security, lg),
		authPostgres.NewRefreshTokenRepository(deps.Gorm),
		deps.EventBus,
		authMetrics,
		lg,
	)
	resolver := auth.NewPermissionResolver(accounts, lg)
	gate := auth.NewGate(tokens, resolver, authMetrics, lg)
	ownership := auth.NewOwnershipPolicy(resolver)

	limits, err := buildRateLimits(cfg.RateLimit, deps.Redis, lg)
	if err != nil {
		return nil, err
	}

	authService := auth.NewService(accounts, tokens, deps.EventBus, authMetrics, auth.ServiceConfig{
		BCryptCost:       cfg.Security.BCryptCost,
		PasswordResetURL: cfg.Security.PasswordResetURL,
	}, lg)

	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), tokens, cfg.Security.BCryptCost, lg)
	roleService := role.NewService(rolePostgres.NewRoleRepository(deps.Gorm), lg)
	permissionService := permission.NewService(permissionPostgres.NewPermissionRepository(deps.Gorm), lg)
	organizationService := organization.NewService(organizationPostgres.NewOrganizationRepository(deps.Gorm), lg)

	mounts := []rest.Mount{
		{Prefix: "/auth", Module: auth.NewHandler(authService, limits)},
		{Prefix: "/users", Module: user.NewHandler(userService, ownership, lg)},
		{Prefix: "/roles", Module: role.NewHandler(roleService, lg)},
		{Prefix: "/permissions", Module: permission.NewHandler(permissionService, lg)},
		{Prefix: "/organizations", Module: organization.NewHandler(organizationService, lg)},
	}

	proxies, err := internal.ParseCIDRList(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	routerCfg := rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: proxies,
		HTTPMetrics:    httpMetrics,
		OpenAPI:        api.Spec,
	}
	if cfg.Observability.Metrics.Enabled {
		routerCfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		routerCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	// A nil *redis.Client must not reach the health handler as a non-nil interface.
	var healthRedis redis.Cmdable
	if deps.Redis != nil {
		healthRedis = deps.Redis
	}
	health := rest.NewHealthHandler(deps.DB, healthRedis)

	return rest.NewRouter(gate, health, mounts, routerCfg, lg), nil
}

func buildRateLimits(cfg internal.RateLimitConfig, rdb *redis.Client, lg *slog.Logger) (auth.RateLimits, error) {
	if !cfg.Enabled {
		return auth.RateLimits{}, nil
	}

	var client redis.Cmdable
	if rdb != nil {
		client = rdb
	}

	rules := ratelimit.Rules(cfg)
	build := func(name string) (func(http.Handler) http.Handler, error) {
		l, err := ratelimit.New(cfg, client, rules[name])
		if err != nil {
			return nil, fmt.Errorf("rate limiter %s: %w", name, err)
		}
		return ratelimit.Middleware(l, ratelimit.ByClientIP, lg), nil
	}

	var limits auth.RateLimits
	var err error
	if limits.Login, err = build(ratelimit.RuleLogin); err != nil {
		return limits, err
	}
	if limits.Refresh, err = build(ratelimit.RuleRefresh); err != nil {
		return limits, err
	}
	if limits.ForgotPassword, err = build(ratelimit.RuleForgotPassword); err != nil {
		return limits, err
	}
	if limits.ResetPassword, err = build(ratelimit.RuleResetPassword); err != nil {
		return limits, err
	}
	return limits, nil
}

// Close waits for in-flight events and releases connections.
func (d *Dependencies) Close() {
	if d.EventBus != nil {
		d.EventBus.Wait()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

// initRedis returns nil when no redis address is configured.
func initRedis(cfg *internal.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
