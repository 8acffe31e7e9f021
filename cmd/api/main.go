package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_gateway/internal/adapters/amadeus"
	server "travel_gateway/internal/adapters/http_server"
	"travel_gateway/internal/adapters/observability"
	redisad "travel_gateway/internal/adapters/redis"
	"travel_gateway/internal/adapters/sherpa"
	"travel_gateway/internal/app"
	"travel_gateway/internal/domain"
	"travel_gateway/internal/shared"
	mysqlrepo "travel_gateway/internal/storage/mysql"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx := context.Background()

	// token store: redis when configured, so replicas share one token
	var tokens domain.TokenStore = amadeus.NewMemoryTokenStore()
	if cfg.RedisAddr != "" {
		rs := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		tokens = rs
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis token store ok")
	}

	// upstream clients; missing credentials leave the process serving
	var travel domain.TravelClient
	if c, err := amadeus.New(cfg.AmadeusBase, cfg.AmadeusClientID, cfg.AmadeusClientSecret,
		cfg.AmadeusRPS, cfg.AmadeusTimeout, amadeus.WithTokenStore(tokens)); err != nil {
		log.Error().Err(err).Msg("amadeus client not configured")
		travel = amadeus.Unconfigured{Err: err}
	} else {
		travel = c
	}

	var visa domain.VisaClient
	if c, err := sherpa.New(cfg.SherpaBase, cfg.SherpaKey); err != nil {
		log.Error().Err(err).Msg("sherpa client not configured")
		visa = sherpa.Unconfigured{Err: err}
	} else {
		visa = c
	}

	// optional fault audit log
	var faults domain.FaultLog
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		faults = mysqlrepo.New(db)
	}

	g := app.NewGateway(travel, visa, faults)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{G: g})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}
