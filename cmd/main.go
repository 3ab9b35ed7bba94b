package main

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/infrastructure"
	"backoffice/internal/interfaces"
	"backoffice/internal/interfaces/http"
	"backoffice/internal/repository"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type repositories struct {
	clients  interfaces.ClientRepository
	products interfaces.ProductRepository
	plans    interfaces.PlanRepository
	bots     interfaces.BotRepository
	users    interfaces.UserRepository
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger, err := infrastructure.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "backoffice")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Info("no .env file loaded, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		// Development only: tokens stop verifying after a restart.
		cfg.JWT.Secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using a random development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := infrastructure.NewRestClient(cfg.Store.URL, cfg.Store.APIKey, cfg.Store.RequestTimeout, logger)
	blobs := infrastructure.NewBlobStorage(rest, cfg.Store.URL, cfg.Store.Bucket)

	repos := restRepositories(rest, cfg)
	if cfg.Postgres.URL != "" {
		pg, err := infrastructure.NewPostgresClient(ctx, cfg.Postgres.URL, logger)
		if err != nil {
			logger.Fatal("connect to database", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.AutoMigrate {
			if err := pg.EnsureSchema(ctx, tableNames(cfg)); err != nil {
				logger.Fatal("ensure schema", zap.Error(err))
			}
		}
		repos = postgresRepositories(pg, cfg)
		logger.Info("using direct database access for tables")
	}

	var sessions interfaces.SessionStore = infrastructure.NewMemorySessionStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		sessions = infrastructure.NewRedisSessionStore(rdb, cfg.Redis.TTL, logger)
		logger.Info("sessions stored in redis", zap.String("addr", cfg.Redis.Addr))
	}

	var (
		statusSource interfaces.BotStatusSource
		qrTrigger    interfaces.QRTrigger
	)
	switch cfg.Bot.Mode {
	case config.BotModeLocal:
		waManager, err := infrastructure.NewWhatsAppManager(cfg.Bot.DevicesDir, logger)
		if err != nil {
			logger.Fatal("init whatsapp manager", zap.Error(err))
		}
		defer waManager.DisconnectAll()
		statusSource, qrTrigger = waManager, waManager
	default:
		webhook := infrastructure.NewQRWebhook(cfg.Bot.WebhookURL, cfg.Store.RequestTimeout, logger)
		botService := usecases.NewBotService(repos.users, repos.bots, webhook, logger)
		statusSource, qrTrigger = botService, botService
	}
	qrTrigger = usecases.NewThrottledQRTrigger(qrTrigger, infrastructure.NewRequestLimiter(cfg.Bot.QRPerMinute, 1))
	panels := usecases.NewBotPanels(statusSource, qrTrigger, cfg.Bot.PollInterval, logger)
	defer panels.Close()

	clientService := usecases.NewClientService(repos.clients, cfg.Store.DefaultCampaignID, logger)
	productService := usecases.NewProductService(repos.products, blobs, logger)
	authUsecase := usecases.NewAuthUsecase(repos.users, sessions, cfg.JWT.Secret, cfg.JWT.TTL, logger)

	if !cfg.Server.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	middleware := http.NewMiddleware(cfg.JWT.Secret, authUsecase, cfg.Server.CORSOrigin, logger)
	http.SetupRoutes(r, http.Services{
		Auth:      authUsecase,
		Clients:   clientService,
		Products:  productService,
		Plans:     usecases.NewPlanService(repos.plans, logger),
		Dashboard: usecases.NewDashboardUsecase(clientService, productService, logger),
		Panels:    panels,
	}, middleware, cfg.Limits, logger)

	srv := &nethttp.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr), zap.String("bot_mode", cfg.Bot.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}

func restRepositories(rest *infrastructure.RestClient, cfg *config.Config) repositories {
	return repositories{
		clients:  repository.NewRestClientRepository(rest, cfg.Store.ClientsTable, cfg.Store.CountTimeout),
		products: repository.NewRestProductRepository(rest, cfg.Store.ProductsTable, cfg.Store.CountTimeout),
		plans:    repository.NewRestPlanRepository(rest, cfg.Store.PlansTable),
		bots:     repository.NewRestBotRepository(rest, cfg.Store.BotsTable),
		users:    repository.NewRestUserRepository(rest, cfg.Store.UsersTable),
	}
}

func postgresRepositories(pg *infrastructure.PostgresClient, cfg *config.Config) repositories {
	return repositories{
		clients:  repository.NewPostgresClientRepository(pg.Pool, cfg.Store.ClientsTable, cfg.Store.RequestTimeout),
		products: repository.NewPostgresProductRepository(pg.Pool, cfg.Store.ProductsTable, cfg.Store.RequestTimeout),
		plans:    repository.NewPostgresPlanRepository(pg.Pool, cfg.Store.PlansTable, cfg.Store.RequestTimeout),
		bots:     repository.NewPostgresBotRepository(pg.Pool, cfg.Store.BotsTable, cfg.Store.RequestTimeout),
		users:    repository.NewPostgresUserRepository(pg.Pool, cfg.Store.UsersTable, cfg.Store.RequestTimeout),
	}
}

func tableNames(cfg *config.Config) infrastructure.TableNames {
	return infrastructure.TableNames{
		Clients:  cfg.Store.ClientsTable,
		Products: cfg.Store.ProductsTable,
		Plans:    cfg.Store.PlansTable,
		Bots:     cfg.Store.BotsTable,
		Users:    cfg.Store.UsersTable,
	}
}
