// Command server runs the admin dashboard API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eggbucket/admin-api/internal/admin"
	"github.com/eggbucket/admin-api/internal/api"
	"github.com/eggbucket/admin-api/internal/blob"
	"github.com/eggbucket/admin-api/internal/blob/gcs"
	"github.com/eggbucket/admin-api/internal/blob/memblob"
	"github.com/eggbucket/admin-api/internal/cache"
	"github.com/eggbucket/admin-api/internal/cache/memcache"
	"github.com/eggbucket/admin-api/internal/cache/redisstore"
	"github.com/eggbucket/admin-api/internal/config"
	"github.com/eggbucket/admin-api/internal/health"
	"github.com/eggbucket/admin-api/internal/identity"
	"github.com/eggbucket/admin-api/internal/identity/firebaseauth"
	"github.com/eggbucket/admin-api/internal/identity/memident"
	"github.com/eggbucket/admin-api/internal/logger"
	"github.com/eggbucket/admin-api/internal/observability"
	"github.com/eggbucket/admin-api/internal/report"
	"github.com/eggbucket/admin-api/internal/store"
	"github.com/eggbucket/admin-api/internal/store/fsstore"
	"github.com/eggbucket/admin-api/internal/store/memstore"
)

var version = "dev"

func main() {
	cfg := config.Load()
	log := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "server",
	}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.ExposeBuildInfo(version)

	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		st = memstore.New()
		log.Warn().Msg("using in-memory store; data will not survive a restart")
	default:
		fs, err := fsstore.New(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Fatal().Err(err).Msg("firestore init failed")
		}
		defer fs.Close()
		st = fs
	}

	var ident identity.Service
	switch cfg.IdentityDriver {
	case "memory":
		ident = memident.New()
	default:
		fa, err := firebaseauth.New(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Fatal().Err(err).Msg("firebase auth init failed")
		}
		ident = fa
	}

	var images blob.Store
	switch cfg.BlobDriver {
	case "memory":
		images = memblob.New()
	default:
		g, err := gcs.New(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("gcs init failed")
		}
		images = g
	}

	var reportCache cache.Interface
	switch cfg.CacheDriver {
	case "redis":
		rc, err := redisstore.New(ctx, cfg.RedisAddr, log, cfg.CacheTTLDefault, cfg.CacheOpTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("redis init failed")
		}
		defer rc.Close()
		reportCache = rc
	default:
		mc := memcache.New(memcache.WithDefaultTTL(cfg.CacheTTLDefault))
		mc.StartSweeper(cfg.CacheSweepEvery)
		defer mc.Close()
		reportCache = mc
	}

	reports := report.New(st, reportCache, log,
		report.WithTTLs(cfg.CacheTTLDefault, cfg.CacheTTLToday),
		report.WithFanoutLimit(cfg.FanoutLimit),
	)
	adminSvc := admin.New(st, ident, images, reports, log, admin.Config{
		DeliveryEmailDomain: cfg.DeliveryEmailDomain,
		SalesEmailDomain:    cfg.SalesEmailDomain,
	})

	ready := health.Readiness(health.Check{
		Name: "store",
		Probe: func(ctx context.Context) error {
			_, err := st.ListZones(ctx)
			return err
		},
	})

	var handler http.Handler = api.NewRouter(api.NewHandlers(adminSvc, reports, log), log, cfg.CORSOrigins, ready)
	if err := api.Run(ctx, cfg.Addr, handler, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
