package main

import (
	"context"
	"log"
	"strings"

	"github.com/claim-deploy/claim-deploy-backend/config"
	"github.com/claim-deploy/claim-deploy-backend/internal/bootstrap"
	cleanupcron "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/cron"
	cleanuprepo "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/repository"
	cleanupsvc "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	provisionrepo "github.com/claim-deploy/claim-deploy-backend/internal/provision/repository"
	provisionsvc "github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/templates"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const serviceName = "claim-deploy-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Database.DSN != "" {
		pool, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
	} else {
		log.Println("DB_DSN not set, cleanup history disabled")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("REDIS_ADDR not set, provisioning run tracking disabled")
	}

	client, err := vercel.New(vercel.Options{
		BaseURL: cfg.Vercel.APIURL,
		Token:   cfg.Vercel.AccessToken,
		TeamID:  cfg.Vercel.TeamID,
	})
	if err != nil {
		log.Fatalf("Failed to create provisioning client: %v", err)
	}

	var source templates.Source
	if cfg.Templates.S3Bucket != "" {
		s3Source, err := templates.NewS3Source(ctx, cfg.Templates.S3Bucket)
		if err != nil {
			log.Fatalf("Failed to create S3 template source: %v", err)
		}
		source = s3Source
	} else {
		source = templates.DirSource{Dir: cfg.Templates.Dir}
	}
	registry := templates.NewRegistry(source)

	var runs *provisionrepo.RunRepository
	if rdb != nil {
		runs = provisionrepo.NewRunRepository(rdb)
	}

	defaults := provisionsvc.Defaults{
		IntegrationID:       cfg.Vercel.IntegrationID,
		ProductID:           cfg.Vercel.ProductID,
		BillingPlanID:       cfg.Vercel.BillingPlanID,
		Region:              cfg.Vercel.Region,
		IntegrationConfigID: cfg.Vercel.IntegrationConfigID,
	}

	poller := provisionsvc.NewPoller(client, cfg.Vercel.DeployTimeout)
	svc := provisionsvc.NewService(client, registry, poller, runs, defaults)

	reaper := cleanupsvc.NewReaper([]cleanupsvc.Kind{
		cleanupsvc.NewProjectKind(client, cfg.Cleanup.RepoURL),
		cleanupsvc.NewStorageKind(client),
	}, 0)

	var reports *cleanuprepo.ReportRepository
	if pool != nil {
		reports = cleanuprepo.NewReportRepository(pool)
	}

	if cfg.Cleanup.Schedule != "" {
		scheduler := cleanupcron.NewScheduler(reaper, reports, cfg.Cleanup.Schedule)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start cleanup scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: splitOrigins(cfg.Server.AllowedOrigins),
		CronSecret:     cfg.Cleanup.CronSecret,
		DB:             pool,
		Redis:          rdb,
		Client:         client,
		Registry:       registry,
		Service:        svc,
		Poller:         poller,
		Defaults:       defaults,
		Reaper:         reaper,
		Reports:        reports,
	})

	log.Printf("Starting %s on port %s", serviceName, cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
