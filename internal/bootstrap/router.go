package bootstrap

import (
	httpapi "github.com/claim-deploy/claim-deploy-backend/internal/api/http"
	"github.com/claim-deploy/claim-deploy-backend/internal/api/http/middleware"
	cleanuphttp "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/http"
	cleanuprepo "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/repository"
	cleanupsvc "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	provisionhttp "github.com/claim-deploy/claim-deploy-backend/internal/provision/http"
	provisionsvc "github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/templates"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	CronSecret     string

	DB    *pgxpool.Pool
	Redis *redis.Client

	Client    *vercel.Client
	Registry  *templates.Registry
	Service   *provisionsvc.Service
	Poller    *provisionsvc.Poller
	Defaults  provisionsvc.Defaults
	Reaper    *cleanupsvc.Reaper
	Reports   *cleanuprepo.ReportRepository
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(dep.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = dep.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id")
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(middleware.RequestIDMiddleware())

	provisionHandler := provisionhttp.NewHandler(dep.Client, dep.Registry, dep.Service, dep.Poller, dep.Defaults)
	provisionHandler.Register(api)

	cleanupHandler := cleanuphttp.NewHandler(dep.Reaper, dep.Reports, dep.CronSecret)
	cleanupHandler.Register(api)

	return r
}
