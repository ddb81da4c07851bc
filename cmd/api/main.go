package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"pawtrail/internal/adapters/directions"
	server "pawtrail/internal/adapters/http_server"
	"pawtrail/internal/adapters/observability"
	redisad "pawtrail/internal/adapters/redis"
	"pawtrail/internal/adapters/token"
	"pawtrail/internal/app"
	"pawtrail/internal/domain"
	"pawtrail/internal/shared"
	mysqlrepo "pawtrail/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	var dirs domain.DirectionsClient
	if cfg.DirectionsBase != "" {
		c, err := directions.New(cfg.DirectionsBase, cfg.DirectionsKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("directions client init failed")
		}
		dirs = c
	} else {
		log.Warn().Msg("no directions provider configured; route legs use straight-line estimates")
	}

	auth := app.NewAuthService(repo, cache, issuer, app.AuthConfig{
		BcryptCost:     cfg.BcryptCost,
		PhoneCodeTTL:   cfg.PhoneCodeTTL,
		ResendCooldown: cfg.ResendCooldown,
		LoginMaxFails:  cfg.LoginMaxFails,
		LoginFailTTL:   cfg.LoginFailTTL,
		DevMode:        cfg.AppEnv == "dev" || cfg.AppEnv == "development",
	})

	h := &server.Handlers{
		Auth:         auth,
		Identities:   app.NewIdentityService(repo),
		Bookings:     app.NewBookingService(repo, repo, repo),
		Recurring:    app.NewRecurringService(repo, repo, repo, repo, cache, cfg.ExpandHorizonDays),
		Availability: app.NewAvailabilityService(repo, repo, cache),
		Catalog:      app.NewCatalogService(repo, cache, cfg.CacheTTL),
		Routes:       app.NewRouteService(repo, repo, dirs, cache),
		Payments:     app.NewPaymentAdminService(repo),
		Tokens:       issuer,
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
