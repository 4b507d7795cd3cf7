package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/mindmatch-backend/internal/config"
	"github.com/AnshRaj112/mindmatch-backend/internal/database"
	"github.com/AnshRaj112/mindmatch-backend/internal/handlers"
	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/AnshRaj112/mindmatch-backend/internal/middleware"
	"github.com/AnshRaj112/mindmatch-backend/internal/routes"
	"github.com/AnshRaj112/mindmatch-backend/internal/services"
	"github.com/AnshRaj112/mindmatch-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog, err := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if err := run(cfg, appLog); err != nil {
		appLog.Error("server stopped", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

// run owns every connection it opens; it returns instead of exiting so the
// deferred closes always run.
func run(cfg *config.Config, appLog logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Client contact details are encrypted at rest; without a key referrals
	// that carry them are refused.
	cipher, err := utils.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		appLog.Warn("client contact encryption disabled", map[string]interface{}{
			"error": err,
			"hint":  "generate a key with: openssl rand -base64 32",
		})
		cipher = nil
	}

	if err := database.ConnectPostgres(cfg.PostgresURI, appLog); err != nil {
		return fmt.Errorf("connect PostgreSQL: %w", err)
	}
	defer database.PostgresDB.Close()

	if err := database.ConnectRedis(cfg.RedisURI, appLog); err != nil {
		return fmt.Errorf("connect Redis: %w", err)
	}
	defer database.DisconnectRedis()

	if err := database.Connect(cfg.MongoURI, appLog); err != nil {
		return fmt.Errorf("connect MongoDB: %w", err)
	}
	defer database.Disconnect()

	rules, err := matching.LoadRules(cfg.MatchingRulesFile)
	if err != nil {
		return fmt.Errorf("load matching rules: %w", err)
	}
	engine := matching.NewEngine(rules)
	appLog.Info("matching rules loaded", map[string]interface{}{"version": engine.RulesVersion(), "issues": len(rules.Issues)})

	notifyCfg := services.NotificationConfig{
		FromEmail:         cfg.FromEmail,
		FrontendURL:       cfg.FrontendURL,
		ClinicalLeadPhone: cfg.ClinicalLeadPhone,
		EmailEnabled:      cfg.EmailEnabled,
		SMSEnabled:        cfg.SMSEnabled,
	}
	notifier := services.NewNotificationService(notifyCfg, nil, nil, appLog)
	if cfg.EmailEnabled || cfg.SMSEnabled {
		notifier, err = services.NewAWSNotificationService(ctx, cfg.AWSRegion, notifyCfg, appLog)
		if err != nil {
			return fmt.Errorf("initialize notifications: %w", err)
		}
	}

	var uploader services.FileUploader
	if cfg.CloudinaryConfigured() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			appLog.Warn("file uploads will not be available", map[string]interface{}{"error": err})
		} else {
			uploader = cld
		}
	} else {
		appLog.Warn("Cloudinary credentials not found, file uploads will not be available", nil)
	}

	audit := services.NewMatchAuditStore(database.DB, appLog)
	if err := audit.EnsureIndexes(ctx); err != nil {
		appLog.Warn("failed to ensure match run indexes", map[string]interface{}{"error": err})
	}

	hub := services.NewMatchEventHub(database.RedisClient, appLog)
	hub.Start(ctx)

	cache := services.NewCacheService(database.RedisClient)
	therapistStore := services.NewTherapistStore(database.PostgresDB, cache, cfg.TherapistCacheTTL, appLog)
	referralStore := services.NewReferralStore(database.PostgresDB, cipher, appLog)
	bookingStore := services.NewBookingStore(database.PostgresDB)

	matcher := services.NewMatchingService(engine, referralStore, therapistStore, appLog,
		services.WithMatchAudit(audit),
		services.WithMatchEvents(hub),
		services.WithMatchNotifier(notifier),
		services.WithDefaultLimit(cfg.MatchingDefaultLimit),
	)
	referrals := services.NewReferralService(referralStore, therapistStore, bookingStore, hub, notifier, appLog)
	therapists := services.NewTherapistService(therapistStore, uploader, cfg.CloudinaryFolder, notifier, appLog)

	h := handlers.New(matcher, referrals, therapists, hub, appLog)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(appLog))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → IntakeRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		appLog.Info("production security enabled", map[string]interface{}{"allowed_host": cfg.AllowedHost})
	}

	matchLimit := middleware.NewRedisRateLimiter(database.RedisClient, appLog)
	routes.SetupRoutes(r, h, matchLimit.Middleware)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("MindMatch backend running", map[string]interface{}{"port": cfg.Port, "env": cfg.Environment})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
	}

	appLog.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
