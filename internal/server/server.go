package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/shelflife/internal/audit"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/authorization"
	"github.com/smallbiznis/shelflife/internal/batch"
	batchdomain "github.com/smallbiznis/shelflife/internal/batch/domain"
	"github.com/smallbiznis/shelflife/internal/cache"
	"github.com/smallbiznis/shelflife/internal/catalog"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/dailycheck"
	dailycheckdomain "github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	"github.com/smallbiznis/shelflife/internal/entry"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/notification"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
	"github.com/smallbiznis/shelflife/internal/observability"
	obsmiddleware "github.com/smallbiznis/shelflife/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shelflife/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shelflife/internal/observability/tracing"
	"github.com/smallbiznis/shelflife/internal/providers"
	"github.com/smallbiznis/shelflife/internal/providers/storage"
	"github.com/smallbiznis/shelflife/internal/ratelimit"
	"github.com/smallbiznis/shelflife/internal/store"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module wires every domain service behind the HTTP API.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	authorization.Module,
	cache.Module,
	catalog.Module,
	entry.Module,
	batch.Module,
	dailycheck.Module,
	store.Module,
	notification.Module,
	providers.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	expiry        *config.ExpiryConfigHolder
	catalogSvc    catalogdomain.Service
	entrySvc      entrydomain.Service
	batchSvc      batchdomain.Service
	dailyCheckSvc dailycheckdomain.Service
	storeSvc      storedomain.Service
	notifySvc     notificationdomain.Service
	activitySvc   auditdomain.Service
	authorizer    authorization.Service
	storage       storage.Provider
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Expiry        *config.ExpiryConfigHolder `optional:"true"`
	CatalogSvc    catalogdomain.Service
	EntrySvc      entrydomain.Service
	BatchSvc      batchdomain.Service
	DailyCheckSvc dailycheckdomain.Service
	StoreSvc      storedomain.Service
	NotifySvc     notificationdomain.Service
	ActivitySvc   auditdomain.Service
	Authorizer    authorization.Service `optional:"true"`
	Storage       storage.Provider
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		expiry:        p.Expiry,
		catalogSvc:    p.CatalogSvc,
		entrySvc:      p.EntrySvc,
		batchSvc:      p.BatchSvc,
		dailyCheckSvc: p.DailyCheckSvc,
		storeSvc:      p.StoreSvc,
		notifySvc:     p.NotifySvc,
		activitySvc:   p.ActivitySvc,
		authorizer:    p.Authorizer,
		storage:       p.Storage,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.RegisterAPIRoutes()
	s.RegisterStaticRoutes()
}

// RegisterAPIRoutes mounts the JSON API. Sibling wildcards share one name
// because the router rejects differently named parameters at the same
// position, so /:id is a device id on some routes and a batch or store id on
// others.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Products --------
	products := api.Group("/products")
	products.GET("", s.ListProducts)
	products.POST("", s.UpsertProduct)
	products.GET("/barcode/:barcode", s.GetProductByBarcode)

	// -------- Entries --------
	entries := products.Group("/entries")
	entries.GET("", s.ListEntries)
	entries.POST("", s.CreateEntry)
	entries.GET("/stats", s.GetEntryStats)
	entries.GET("/:id", s.GetEntryByID)
	entries.PUT("/:id", s.UpdateEntry)
	entries.DELETE("/:id", s.DeleteEntry)

	// -------- Batch scans --------
	batches := api.Group("/batch-scans")
	batches.POST("", s.CreateBatch)
	batches.GET("/session/:batchId", s.GetBatchByID)
	batches.GET("/:id", s.ListBatchesByDevice)
	batches.POST("/:id/items", s.AddBatchItem)
	batches.GET("/:id/items", s.ListBatchItems)
	batches.POST("/:id/complete", s.CompleteBatch)
	batches.DELETE("/:id", s.DeleteBatch)

	// -------- Teams / stores --------
	s.registerStoreRoutes(api.Group("/teams"))
	s.registerStoreRoutes(api.Group("/stores"))

	// -------- Daily checks --------
	checks := api.Group("/daily-checks")
	checks.POST("", s.StartDailyCheck)
	checks.GET("/store/:storeId", s.ListDailyChecksByStore)
	checks.GET("/:id", s.GetDailyCheck)
	checks.GET("/:id/worklist", s.GetDailyCheckWorklist)
	checks.POST("/:id/actions", s.RecordDailyCheckAction)
	checks.POST("/:id/complete", s.CompleteDailyCheck)

	// -------- Notifications --------
	notifications := api.Group("/notifications")
	notifications.POST("/register-token", s.RegisterPushToken)
	notifications.DELETE("/register-token", s.UnregisterPushToken)
	notifications.GET("/schedule", s.ListSchedules)
	notifications.POST("/schedule", s.CreateSchedule)
	notifications.GET("/schedule/:id", s.GetSchedule)
	notifications.PUT("/schedule/:id", s.UpdateSchedule)
	notifications.DELETE("/schedule/:id", s.DeleteSchedule)
	notifications.POST("/send-expiration-reminders", s.SendExpirationReminders)

	// -------- Uploads --------
	api.POST("/upload/product-image", s.UploadProductImage)

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) registerStoreRoutes(g *gin.RouterGroup) {
	g.POST("", s.CreateStore)
	g.POST("/join", s.JoinStore)
	g.GET("/:id", s.ListStoresByDevice)
	g.GET("/:id/members", s.ListStoreMembers)
	g.GET("/:id/entries", s.ListStoreEntries)
	g.GET("/:id/activity", s.ListStoreActivity)
	g.PUT("/:id/nickname", s.UpdateStoreNickname)
	g.POST("/:id/transfer", s.TransferStoreOwnership)
	g.DELETE("/:id/leave", s.LeaveStore)
	g.DELETE("/:id", s.DeleteStore)
}

// RegisterStaticRoutes serves locally stored uploads when the public URL is a
// path on this server.
func (s *Server) RegisterStaticRoutes() {
	prefix := strings.TrimSpace(s.cfg.Upload.PublicURL)
	if !strings.HasPrefix(prefix, "/") {
		return
	}
	dir := strings.TrimSpace(s.cfg.Upload.Dir)
	if dir == "" {
		dir = "./uploads"
	}
	s.engine.Static(prefix, dir)
}
