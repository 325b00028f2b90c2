// cmd/sensorsim/main.go
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/logging"
	"github.com/Raaghu1804/hackathon-zss/internal/sim"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	interval := flag.Duration("interval", 5*time.Second, "publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, logFile := logging.Init(cfg.LogDir, "sensorsim.log")
	defer logFile.Close()

	s, err := sim.New(*broker, cfg.MQTTTopicPrefix, *interval, cfg, *seed, log)
	if err != nil {
		log.Error("simulator start failed", "broker", *broker, "error", err)
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()
	log.Info("telemetry simulator started", "broker", *broker, "interval", *interval)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
}
