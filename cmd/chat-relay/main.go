package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/chat-relay/internal/api"
	"github.com/fathima-sithara/chat-relay/internal/config"
	"github.com/fathima-sithara/chat-relay/internal/events"
	"github.com/fathima-sithara/chat-relay/internal/logger"
	"github.com/fathima-sithara/chat-relay/internal/presence"
	"github.com/fathima-sithara/chat-relay/internal/repository"
	"github.com/fathima-sithara/chat-relay/internal/service"
	"github.com/fathima-sithara/chat-relay/internal/ws"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Mongo client; no store connection, no service.
	mc, err := repository.NewMongoClient(context.Background(), cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "error", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	store := repository.NewStore(mc.Database(cfg.Mongo.Database))

	// Redis presence (optional)
	var pres *presence.Store
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pres = presence.NewStore(rdb, cfg.Redis.Prefix)
	}

	hub := ws.NewHub(zlog)
	wsrv := ws.NewServer(hub, pres, zlog)

	// Kafka event mirror (optional)
	origin := uuid.New().String()
	var pub *events.Publisher
	var cons *events.Consumer
	consCtx, consCancel := context.WithCancel(context.Background())
	defer consCancel()
	if cfg.KafkaEnabled() {
		pub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, origin)
		cons = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, origin, zlog)
		go cons.Start(consCtx, func(ev events.MessageCreated) {
			hub.PublishMessage(ev.Topology, ev.RoomID, ev.Message)
		})
	}

	svc := service.New(store, hub, pub, zlog)
	app := api.NewServer(cfg, svc, wsrv, zlog)

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			zlog.Fatalw("server listen", "error", err)
		}
	}()
	zlog.Infow("chat-relay started", "port", cfg.App.Port)

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(ctx)
	consCancel()
	if pub != nil {
		_ = pub.Close()
	}
	if cons != nil {
		_ = cons.Close()
	}
	zlog.Info("chat-relay stopped")
}
