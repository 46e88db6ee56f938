package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/catalog"
	catalogdomain "github.com/canopyhq/canopy/internal/catalog/domain"
	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/importer"
	importerdomain "github.com/canopyhq/canopy/internal/importer/domain"
	"github.com/canopyhq/canopy/internal/observability"
	obsmiddleware "github.com/canopyhq/canopy/internal/observability/logger"
	obsmetrics "github.com/canopyhq/canopy/internal/observability/metrics"
	obstracing "github.com/canopyhq/canopy/internal/observability/tracing"
	"github.com/canopyhq/canopy/internal/organization"
	organizationdomain "github.com/canopyhq/canopy/internal/organization/domain"
	"github.com/canopyhq/canopy/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	organization.Module,
	catalog.Module,
	importer.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	organizationSvc organizationdomain.Service
	catalogSvc      catalogdomain.Service
	importSvc       importerdomain.Service
	importLimiter   *ratelimit.ImportLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	OrganizationSvc organizationdomain.Service
	CatalogSvc      catalogdomain.Service
	ImportSvc       importerdomain.Service
	ImportLimiter   *ratelimit.ImportLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		organizationSvc: p.OrganizationSvc,
		catalogSvc:      p.CatalogSvc,
		importSvc:       p.ImportSvc,
		importLimiter:   p.ImportLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Organizations --------
	api.GET("/organizations", s.ListOrganizations)
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations/:id", s.GetOrganizationByID)

	// -------- Catalog --------
	catalog := api.Group("/catalog", s.OrgContext())
	{
		catalog.GET("/products", s.ListProducts)
		catalog.GET("/products/:id", s.GetProductByID)
		catalog.GET("/export", s.ExportCatalog)

		catalog.POST("/imports", s.ImportRateLimit(), s.ImportBatch)
		catalog.POST("/imports/documents", s.ImportRateLimit(), s.ImportDocuments)
		catalog.GET("/imports", s.ListImportJobs)
	}
}
