package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"lenchat/internal/chatsession"
	"lenchat/internal/config"
	"lenchat/internal/credstore"
	"lenchat/internal/logging"
	"lenchat/internal/transport"
	"lenchat/internal/userservice"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the network/server config file")
	dbPath := flag.String("db", "data/database.sqlite", "path to the sqlite credential store")
	flag.Parse()

	log := logging.New(logging.LevelInfo)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}

	store, err := credstore.Open(*dbPath)
	if err != nil {
		log.Error("open credential store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := userservice.New(store)
	sessions := chatsession.NewManager(svc.Authenticate, svc.Register)
	srv := transport.New(cfg, sessions, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutting down")
		srv.Shutdown()
	}()

	log.Info("user credentials: %s", *dbPath)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped: %v", err)
		os.Exit(1)
	}
}
