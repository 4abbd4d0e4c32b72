package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/crossmark-io/crossmark-api/api/swagger"
	"github.com/crossmark-io/crossmark-api/internal/handler"
	"github.com/crossmark-io/crossmark-api/internal/middleware"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/internal/repository"
	"github.com/crossmark-io/crossmark-api/internal/service"
	"github.com/crossmark-io/crossmark-api/pkg/cache"
	"github.com/crossmark-io/crossmark-api/pkg/config"
	"github.com/crossmark-io/crossmark-api/pkg/crypto/fieldcrypt"
	"github.com/crossmark-io/crossmark-api/pkg/database"
	"github.com/crossmark-io/crossmark-api/pkg/logger"
	corsmiddleware "github.com/crossmark-io/crossmark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/crossmark-io/crossmark-api/pkg/middleware/requestid"
)

// @title Crossmark Classification API
// @version 1.0.0
// @description Cross-national security classification conversion service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Schema resolution degrades to direct repository reads without Redis.
		logr.Sugar().Warnw("redis unavailable, running without schema cache", "error", err)
		redisClient = nil
	}

	codec, err := fieldcrypt.New(cfg.Encryption)
	if err != nil {
		logr.Sugar().Fatalw("failed to init field encryption", "error", err)
	}

	validate := validator.New()

	schemaRepo := repository.NewSchemaRepository(db)
	dataObjectRepo := repository.NewDataObjectRepository(db, codec)
	conversionRepo := repository.NewConversionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	nationRepo := repository.NewNationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT, logr)
	auditSvc := service.NewAuditService(auditRepo, codec, metricsSvc, logr)
	schemaSvc := service.NewSchemaService(schemaRepo, cacheRepo, metricsSvc, validate, logr, service.SchemaServiceConfig{
		CacheTTL:      cfg.Conversion.SchemaCacheTTL,
		LookupTimeout: cfg.Conversion.PersistTimeout,
	})
	conversionSvc := service.NewConversionService(conversionRepo, dataObjectRepo, schemaSvc, auditSvc, metricsSvc, validate, logr, cfg.Conversion)
	dataObjectSvc := service.NewDataObjectService(dataObjectRepo, validate, logr)
	nationSvc := service.NewNationService(nationRepo, validate, logr)
	exportSvc := service.NewExportService(auditRepo, schemaRepo, nil, nil, logr)

	schemaHandler := handler.NewSchemaHandler(schemaSvc)
	conversionHandler := handler.NewConversionHandler(conversionSvc, dataObjectSvc)
	auditHandler := handler.NewAuditHandler(auditSvc, exportSvc, cfg.Audit)
	nationHandler := handler.NewNationHandler(nationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, auditSvc, schemaHandler, conversionHandler, auditHandler, nationHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	auditSvc *service.AuditService,
	schemaHandler *handler.SchemaHandler,
	conversionHandler *handler.ConversionHandler,
	auditHandler *handler.AuditHandler,
	nationHandler *handler.NationHandler,
) {
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	v1 := r.Group(prefix)
	v1.Use(middleware.JWT(authSvc))

	officers := middleware.RequireRoles(models.RoleAdmin, models.RoleOfficer)
	analysts := middleware.RequireRoles(models.RoleAdmin, models.RoleOfficer, models.RoleAnalyst)
	admins := middleware.RequireRoles(models.RoleAdmin)

	schemas := v1.Group("/schemas")
	{
		schemas.POST("", officers,
			middleware.Audit(auditSvc, models.OperationMutation, "register_classification_schema"),
			schemaHandler.Register)
		schemas.GET("", schemaHandler.List)
		schemas.GET("/nations", schemaHandler.Nations)
		schemas.GET("/:nation_code/active",
			middleware.Audit(auditSvc, models.OperationQuery, "resolve_active_schema"),
			schemaHandler.Active)
		schemas.GET("/:nation_code/versions/:version", schemaHandler.Get)
		schemas.POST("/:id/expire", officers,
			middleware.Audit(auditSvc, models.OperationMutation, "expire_classification_schema"),
			schemaHandler.Expire)
	}

	conversions := v1.Group("/conversions")
	conversions.Use(analysts)
	{
		// The conversion service writes its own audit entry before returning;
		// no route-level audit middleware here.
		conversions.POST("", conversionHandler.Convert)
		conversions.GET("", conversionHandler.ListRequests)
		conversions.GET("/:id", conversionHandler.GetRequest)
	}

	dataObjects := v1.Group("/data-objects")
	dataObjects.Use(analysts)
	{
		dataObjects.POST("",
			middleware.Audit(auditSvc, models.OperationMutation, "create_data_object"),
			conversionHandler.CreateDataObject)
		dataObjects.GET("", conversionHandler.ListDataObjects)
		dataObjects.GET("/:id",
			middleware.Audit(auditSvc, models.OperationQuery, "read_data_object"),
			conversionHandler.GetDataObject)
	}

	audit := v1.Group("/audit")
	audit.Use(officers)
	{
		audit.GET("", auditHandler.List)
		audit.GET("/requests/:request_id", auditHandler.GetByRequestID)
		audit.GET("/failures", auditHandler.Failures)
		audit.GET("/summary", auditHandler.Summary)
		audit.GET("/export/csv",
			middleware.Audit(auditSvc, models.OperationQuery, "export_audit_csv"),
			auditHandler.ExportCSV)
		audit.GET("/export/pdf",
			middleware.Audit(auditSvc, models.OperationQuery, "export_audit_pdf"),
			auditHandler.ExportPDF)
		audit.GET("/export/schema-coverage", auditHandler.SchemaCoverage)
	}

	nations := v1.Group("/nations")
	{
		nations.POST("", admins,
			middleware.Audit(auditSvc, models.OperationMutation, "create_nation"),
			nationHandler.Create)
		nations.GET("", nationHandler.List)
		nations.GET("/:code", nationHandler.Get)
		nations.GET("/:code/authorities", nationHandler.ListAuthorities)
	}

	v1.POST("/authorities", admins,
		middleware.Audit(auditSvc, models.OperationMutation, "create_issuing_authority"),
		nationHandler.CreateAuthority)
}
