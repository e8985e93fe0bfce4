package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/adapter/in/rest"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/adapter/out/gormstore"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/adapter/out/memory"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/scheduler"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
	"github.com/f1v3-dev/lemontree-interview/pkg/logger"
	"github.com/f1v3-dev/lemontree-interview/pkg/metrics"
	"github.com/f1v3-dev/lemontree-interview/pkg/mysql"
	"github.com/f1v3-dev/lemontree-interview/pkg/wal"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// "mysql" or "memory"
		Backend string `yaml:"backend"`
		// journal path for the memory backend; empty disables journaling
		WALPath string `yaml:"wal_path"`
	} `yaml:"storage"`

	MySQL mysql.Config `yaml:"mysql"`

	Scheduler struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"scheduler"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func main() {
	cfg := loadConfig()
	logg := logger.New(cfg.Log.Level)
	collector := metrics.NewCollector()

	var store usecase.Store
	switch cfg.Storage.Backend {
	case "memory":
		var journal *wal.WAL
		if cfg.Storage.WALPath != "" {
			j, err := wal.New(cfg.Storage.WALPath)
			if err != nil {
				logg.WithError(err).Fatal("failed to open journal")
			}
			defer j.Close()
			journal = j
		}
		memStore, err := memory.NewStore(journal)
		if err != nil {
			logg.WithError(err).Fatal("failed to init memory store")
		}
		store = memStore
	default:
		dbClient, err := mysql.NewClient(cfg.MySQL, logg)
		if err != nil {
			logg.WithError(err).Fatal("failed to connect to mysql")
		}
		defer dbClient.Close()
		logg.Info("connected to mysql")

		gStore := gormstore.New(dbClient.DB())
		if err := gStore.AutoMigrate(); err != nil {
			logg.WithError(err).Fatal("failed to migrate schema")
		}
		store = gStore
	}

	memberUC := usecase.NewMemberUseCase(store, logg)
	tradeUC := usecase.NewTradeUseCase(store, logg)
	paybackUC := usecase.NewPaybackUseCase(store, logg, collector)
	paymentUC := usecase.NewPaymentUseCase(store, paybackUC, logg, collector)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logg.WithError(err).Fatal("invalid scheduler timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.New(memberUC, loc, logg, collector).Run(ctx)

	server := rest.NewServer(memberUC, tradeUC, paymentUC, paybackUC, logg, collector.Handler())
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}

	go func() {
		logg.WithField("addr", cfg.Server.Addr).Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Error("shutdown failed")
	}
	logg.Info("server exited")
}

func loadConfig() Config {
	cfgData, err := os.ReadFile("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Asia/Seoul"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}
