package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleetops/internal/config"
	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/events"
	"github.com/fleetdesk/fleetops/internal/fleet"
	"github.com/fleetdesk/fleetops/internal/handlers"
	"github.com/fleetdesk/fleetops/internal/metrics"
)

func main() {
	cfg := config.Load()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})

	var store db.Store
	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to MongoDB")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = db.NewMongoStore(ctx, client, cfg.MongoDB)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("failed to initialize Mongo store")
		}
		log.WithField("db", cfg.MongoDB).Info("using MongoDB store")
	} else {
		store = db.NewMemory()
		log.Info("MONGO_URI not set, using in-memory store")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.MQTTBroker != "" {
		p, err := events.NewMQTTPublisher(cfg.MQTTBroker, "fleetd")
		if err != nil {
			log.WithError(err).Fatal("failed to connect to MQTT broker")
		}
		defer p.Close()
		publisher = p
		log.WithField("broker", cfg.MQTTBroker).Info("publishing status events")
	}

	metrics.RegisterDefault()

	svc := fleet.NewService(store, publisher)
	mux := http.NewServeMux()
	handlers.NewFleetHandler(svc).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("fleetd listening")
	if err := http.ListenAndServe(addr, handlers.Instrument(mux)); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
