package main

import (
	"database/sql"
	"net/http"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"gitea.kood.tech/petrkubec/nearby/discovery"
	"gitea.kood.tech/petrkubec/nearby/presence"
	"gitea.kood.tech/petrkubec/nearby/store"
)

// app holds the wired collaborators shared by all handlers.
type app struct {
	cfg      Config
	log      *logrus.Logger
	db       *sql.DB
	ranker   *discovery.Ranker
	beats    heartbeater
	statuses presence.StatusSource
	privacy  presence.PrivacySource
	hub      *presence.Hub
	metrics  *metrics
	retry    retrypolicy.RetryPolicy[*discovery.Results]
}

// newApp wires Postgres for favorites and privacy, and either Postgres or
// Redis for the spatial index and presence. rdb may be nil unless
// cfg.GeoBackend is "redis".
func newApp(cfg Config, logger *logrus.Logger, db *sql.DB, rdb goredis.UniversalClient, reg prometheus.Registerer) *app {
	if cfg.PresenceWindow <= 0 {
		cfg.PresenceWindow = store.DefaultPresenceWindow
	}
	pg := store.NewPostgres(db)
	pg.Window = cfg.PresenceWindow
	privacy := store.Privacy{DB: db}

	a := &app{
		cfg:     cfg,
		log:     logger,
		db:      db,
		privacy: privacy,
		hub:     presence.NewHub(16),
		metrics: newMetrics(reg),
		retry:   newDiscoverRetryPolicy(cfg),
	}

	var index discovery.Index = pg
	if cfg.GeoBackend == "redis" && rdb != nil {
		index = store.NewRedisGeo(rdb)
		rp := store.NewRedisPresence(rdb, cfg.PresenceWindow)
		a.beats, a.statuses = rp, rp
	} else {
		a.beats, a.statuses = pg, pg
	}
	a.ranker = discovery.NewRanker(index, a.statuses, privacy, pg, logger)
	return a
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/login", a.loginHandler()) // POST

	mux.Handle("/discover", store.DataLoaderMiddleware(a.db)(a.authenticate(a.discoverHandler())))
	mux.Handle("/filters/labels", filterLabelsHandler())
	mux.Handle("/filters/clear", clearFiltersHandler())

	// Ping: mark this user as online "now"
	mux.Handle("/me/ping", a.authenticate(a.mePingHandler())) // POST
	mux.Handle("/ws/presence", a.wsPresenceHandler())

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return withCORS(mux)
}

func main() {
	logger := newLogger("nearby")
	cfg := loadConfig(logger)

	db, err := initDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Cannot reach the database")
	}
	defer db.Close()
	logger.Info("Database connection established successfully")

	var rdb goredis.UniversalClient
	if cfg.GeoBackend == "redis" {
		rdb, err = initRedis(cfg)
		if err != nil {
			logger.WithError(err).Fatal("Cannot reach redis")
		}
		defer rdb.Close()
	}

	a := newApp(cfg, logger, db, rdb, prometheus.DefaultRegisterer)

	logger.WithFields(logrus.Fields{"port": cfg.Port, "geo_backend": cfg.GeoBackend}).Info("Starting nearby backend")
	if err := http.ListenAndServe(":"+cfg.Port, a.routes()); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}
