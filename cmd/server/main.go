package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/diewo77/gestion-pepiniere/internal/config"
	"github.com/diewo77/gestion-pepiniere/internal/convention"
	"github.com/diewo77/gestion-pepiniere/internal/db"
	"github.com/diewo77/gestion-pepiniere/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func initLogger() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := log.ParseLevel(levelStr)
	if err != nil {
		log.Warnf("LOG_LEVEL invalide %q, niveau INFO conservé", levelStr)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	flag.Parse()
	_ = godotenv.Load()
	initLogger()

	cfg := config.Load()
	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(cfg.DatabaseDSN); err != nil {
			log.WithError(err).Fatal("migrate-only failed")
		}
		log.Info("migrations terminées")
		return
	}

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("Erreur connexion DB")
	}
	log.Infof("Starting server env=%s port=%s", cfg.Env, cfg.Port)

	// Daily anniversary scan, Paris calendar.
	scanner := convention.NewScanner(dbConn)
	c := cron.New(cron.WithLocation(convention.ParisTZ))
	if _, err := c.AddFunc(cfg.AnniversaireCron, func() {
		signales, err := scanner.Run()
		if err != nil {
			log.WithError(err).Error("scan anniversaires échoué")
			return
		}
		log.WithField("signales", signales).Info("scan anniversaires terminé")
	}); err != nil {
		log.WithError(err).Fatal("planification du scan anniversaires impossible")
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: server.New(dbConn, cfg.CORSOrigin)}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Error during shutdown")
	}
	log.Info("Server gracefully stopped")
}
