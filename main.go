package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/aggregator"
	"surveypulse/api/cache"
	"surveypulse/api/config"
	"surveypulse/api/database"
	"surveypulse/api/datasource"
	"surveypulse/api/handlers"
	"surveypulse/api/logger"
	"surveypulse/api/middleware"
	"surveypulse/api/models"
	"surveypulse/api/restclient"
	"surveypulse/api/store"
	"surveypulse/api/utils"
)

// responseRepository is served by the SQL store or the hosted REST backend.
type responseRepository interface {
	handlers.ResponseInserter
	handlers.ResponseDeleter
	datasource.ResponseReader
}

type routerDeps struct {
	cfg       config.Config
	db        handlers.Pinger
	issuer    *utils.TokenIssuer
	auth      *handlers.AuthHandlers
	survey    *handlers.SurveyHandlers
	dashboard *handlers.DashboardHandlers
	admin     *handlers.AdminHandlers
	funnel    *handlers.FunnelHandlers // nil when ClickHouse is not configured
}

func setupRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger.Component("http")))
	r.Use(middleware.CORSMiddleware(d.cfg.AllowedOrigins))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck(d.db))

		// Public survey endpoints
		api.GET("/survey/config", d.survey.GetConfig)
		api.POST("/survey/responses", d.survey.SubmitResponse)
		if d.funnel != nil {
			api.POST("/survey/events", d.funnel.TrackEvents)
		}

		// Authentication Endpoints (no authentication required)
		api.POST("/signup", d.auth.Signup)
		api.POST("/login", d.auth.Login)
		api.POST("/logout", d.auth.Logout)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(d.issuer, d.cfg.Auth.APIKey))
		{
			protected.GET("/profile", d.auth.Profile)

			adminGroup := protected.Group("/admin")
			{
				adminGroup.GET("/dashboard", d.dashboard.Dashboard)
				adminGroup.GET("/export", d.dashboard.Export)
				adminGroup.GET("/export.xlsx", d.dashboard.ExportXLSX)
				adminGroup.GET("/responses", d.dashboard.ListResponses)

				if d.funnel != nil {
					funnelGroup := adminGroup.Group("/funnel")
					funnelGroup.GET("/event-counts", d.funnel.GetEventCountsOverTime)
					funnelGroup.GET("/step-duration", d.funnel.GetAverageStepDuration)
					funnelGroup.GET("/steps", d.funnel.GetFunnel)
				}

				manage := adminGroup.Group("/")
				manage.Use(middleware.RoleRequired(models.RoleAdmin))
				{
					manage.DELETE("/responses/:id", d.admin.DeleteResponse)
					manage.GET("/questions", d.admin.ListQuestions)
					manage.POST("/questions", d.admin.CreateQuestion)
					manage.PUT("/questions/:id", d.admin.UpdateQuestion)
					manage.DELETE("/questions/:id", d.admin.DeleteQuestion)
					manage.GET("/settings", d.admin.GetSettings)
					manage.PUT("/settings", d.admin.UpdateSettings)
				}
			}
		}
	}

	return r
}

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- SQL database (users, questions, settings and, by default, responses) ---
	dbClient, err := database.NewSQLDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize %s database: %v", cfg.Database.Driver, err)
	}
	defer dbClient.Close()

	// --- ClickHouse (form funnel events), optional ---
	var funnelHandlers *handlers.FunnelHandlers
	if cfg.ClickHouse.Host != "" {
		chClient, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse database: %v", err)
		}
		defer chClient.Close()
		funnelHandlers = handlers.NewFunnelHandlers(store.NewEventStore(chClient))
	} else {
		log.Println("CLICKHOUSE_HOST not set, form funnel tracking disabled")
	}

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	questionStore := store.NewQuestionStore(dbClient.DB)
	settingsStore := store.NewSettingsStore(dbClient.DB)

	var responses responseRepository
	switch cfg.Responses.Backend {
	case "rest":
		client := restclient.New(cfg.Responses.RESTURL, cfg.Responses.RESTKey)
		responses = restclient.NewResponseRepository(client, cfg.Responses.RESTTable)
		log.WithField("url", cfg.Responses.RESTURL).Info("Survey responses served by REST backend")
	default:
		responses = store.NewResponseStore(dbClient.DB)
	}

	// --- Caches, aggregation and handlers ---
	issuer := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	settingsCache := cache.New[string, models.SurveySettings](cfg.Dashboard.CacheTTL)
	fetcher := datasource.NewFetcher(responses, cache.New[models.ResponseFilter, []models.SurveyResponse](cfg.Dashboard.CacheTTL))
	agg := aggregator.New(cfg.Dashboard.TopN, cfg.Dashboard.TermMinLength, cfg.Dashboard.Location)

	r := setupRouter(routerDeps{
		cfg:       cfg,
		db:        dbClient.DB,
		issuer:    issuer,
		auth:      handlers.NewAuthHandlers(userStore, issuer, cfg.Auth),
		survey:    handlers.NewSurveyHandlers(responses, questionStore, settingsStore, settingsCache),
		dashboard: handlers.NewDashboardHandlers(fetcher, agg),
		admin:     handlers.NewAdminHandlers(questionStore, settingsStore, responses, fetcher, settingsCache),
		funnel:    funnelHandlers,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Survey API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Survey API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
