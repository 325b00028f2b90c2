// cmd/plantd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/carbon"
	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/coord"
	"github.com/Raaghu1804/hackathon-zss/internal/httpapi"
	"github.com/Raaghu1804/hackathon-zss/internal/insights"
	"github.com/Raaghu1804/hackathon-zss/internal/intake"
	"github.com/Raaghu1804/hackathon-zss/internal/ledger"
	"github.com/Raaghu1804/hackathon-zss/internal/logging"
	"github.com/Raaghu1804/hackathon-zss/internal/maintenance"
	"github.com/Raaghu1804/hackathon-zss/internal/observability"
	"github.com/Raaghu1804/hackathon-zss/internal/store"
	"github.com/Raaghu1804/hackathon-zss/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, logFile := logging.Init(cfg.LogDir, "plantd.log")
	defer logFile.Close()
	log.Info("config loaded",
		"bind", cfg.HTTPBind,
		"tickMs", cfg.TickIntervalMs,
		"mqtt", cfg.MQTTBroker != "",
		"kafka", len(cfg.KafkaBrokers) > 0,
		"analytics", cfg.GeminiAPIKey != "")

	metrics := observability.NewMetrics()

	engine := coord.NewEngine(cfg, log, nil)
	engine.SetMetrics(metrics)

	hub := ws.NewHub(log)
	engine.AddNotifier(hub)

	var st *store.Store
	if cfg.SQLitePath != "" {
		st, err = store.Open(cfg.SQLitePath, log)
		if err != nil {
			log.Error("store unavailable, history disabled", "path", cfg.SQLitePath, "error", err)
		} else {
			defer st.Close()
			engine.AddNotifier(st)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := ledger.New(cfg.KafkaBrokers, cfg.LedgerTopic, log)
		defer pub.Close()
		engine.AddNotifier(pub)
	}

	h := &httpapi.Handlers{
		Log:      log,
		Cfg:      cfg,
		Engine:   engine,
		Insights: insights.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, log),
		Store:    st,
		Metrics:  metrics,
	}
	// Forecasting and carbon reporting work off the persisted history.
	if st != nil {
		h.Maintenance = maintenance.New(st, cfg, log)
		h.Carbon = carbon.New(st, log)
	}
	router := httpapi.NewRouter(h, hub, metrics.Handler())
	srv := httpapi.NewServer(cfg.HTTPBind, log, router, log)

	if cfg.MQTTBroker != "" {
		interval := time.Duration(cfg.TickIntervalMs) * time.Millisecond
		sub, err := intake.NewSubscriber(cfg.MQTTBroker, cfg.MQTTTopicPrefix, interval, engine, log)
		if err != nil {
			log.Error("mqtt intake unavailable, HTTP snapshots only", "broker", cfg.MQTTBroker, "error", err)
		} else {
			sub.Start()
			defer sub.Stop()
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "err", err)
		}
	}()
	log.Info("plant coordination service started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("plant coordination service stopped")
}
