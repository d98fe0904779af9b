package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // Postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/groveworld/guardian/internal/api"
	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/config"
	"github.com/groveworld/guardian/internal/engine"
)

func main() {
	log.Println("Starting Guardian abuse-mitigation engine...")

	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := loadConfig()

	opts := engine.Options{
		AuditSinks: buildSinks(cfg),
	}

	eng := engine.New(cfg, opts)
	eng.Start()
	defer eng.Stop()

	server := api.NewServer(eng)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Block until asked to shut down so the deferred engine stop runs.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down")
}

func loadConfig() *config.Config {
	path := os.Getenv("GUARDIAN_CONFIG")
	if path == "" {
		log.Println("GUARDIAN_CONFIG not set, using built-in defaults")
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}
	return cfg
}

// buildSinks connects the optional durable audit sinks. Either backend
// being absent is fine; the engine still streams events to subscribers.
func buildSinks(cfg *config.Config) []audit.Sink {
	var sinks []audit.Sink

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("Postgres open failed: %v", err)
		}
		store, err := audit.NewPostgresStore(db, cfg.Audit.PostgresTable)
		if err != nil {
			log.Fatalf("Audit table init failed: %v", err)
		}
		sinks = append(sinks, store)
		log.Println("Audit sink: Postgres")
	}

	if addr := os.Getenv("REDIS_URL"); addr != "" {
		redisOpts, err := redis.ParseURL(addr)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable at startup, continuing: %v", err)
		}
		sinks = append(sinks, audit.NewRedisEmitter(client, cfg.Audit.RedisChannel))
		log.Println("Audit sink: Redis pub/sub")
	}

	return sinks
}
