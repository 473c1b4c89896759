// Command chatd serves a Chat-Completions-compatible HTTP surface over a
// single configured agent.
//
// # Configuration
//
// Environment variables:
//
//	CHATD_ADDR              - HTTP listen address (default: ":8090")
//	CHATD_AGENT_NAME         - Registered agent name (default: "default")
//	CHATD_MODEL_PROVIDER     - "openai" or "anthropic" (default: "openai")
//	CHATD_MODEL_NAME         - Default model id passed to the provider
//	OPENAI_API_KEY           - API key when CHATD_MODEL_PROVIDER=openai
//	ANTHROPIC_API_KEY        - API key when CHATD_MODEL_PROVIDER=anthropic
//	CHATD_MAX_ITERS          - Max reason/act iterations per call (default: 10)
//	CHATD_HOOK_BUDGET        - Per-hook timeout (default: "2s")
//	CHATD_SESSION_TTL        - Idle session engine eviction (default: "30m")
//	CHATD_SESSION_BACKEND    - "file", "redis", or "mongo" (default: "file")
//	CHATD_SESSION_DIR        - Root dir for the file backend (default: "./sessions")
//	REDIS_URL                - Redis address for the redis session backend
//	MONGO_URI                - Mongo connection string for the mongo backend
//	MONGO_DATABASE           - Mongo database name (default: "chatd")
//
// # Example
//
//	OPENAI_API_KEY=sk-... CHATD_MODEL_NAME=gpt-4o go run ./cmd/chatd
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/log"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/httpapi"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/modelport/providers/anthropic"
	"github.com/agentscope-go/reactcore/modelport/providers/openai"
	filebackend "github.com/agentscope-go/reactcore/session/backends/file"
	mongobackend "github.com/agentscope-go/reactcore/session/backends/mongo"
	redisbackend "github.com/agentscope-go/reactcore/session/backends/redis"
	"github.com/agentscope-go/reactcore/session"
	"github.com/agentscope-go/reactcore/telemetry"
	"github.com/agentscope-go/reactcore/toolkit"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(context.Background(), err)
	}
}

func run() error {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	addr := envOr("CHATD_ADDR", ":8090")
	agentName := envOr("CHATD_AGENT_NAME", httpapi.DefaultAgentName)

	port, err := buildPort()
	if err != nil {
		return fmt.Errorf("build model port: %w", err)
	}

	logger := telemetry.NewClueLogger()
	tk := toolkit.New(logger)

	cfg := engine.DefaultConfig()
	cfg.MaxIters = envIntOr("CHATD_MAX_ITERS", cfg.MaxIters)
	cfg.HookBudget = envDurationOr("CHATD_HOOK_BUDGET", cfg.HookBudget)
	cfg.SessionTTL = envDurationOr("CHATD_SESSION_TTL", cfg.SessionTTL)

	store, closeStore, err := buildSessionStore(ctx)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}
	defer closeStore()

	registry := httpapi.NewRegistry(agentName)
	registry.Register(httpapi.AgentSpec{
		Name:    agentName,
		Port:    port,
		Toolkit: tk,
		Config:  cfg,
		Logger:  logger,
	})

	server, err := httpapi.NewServer(httpapi.Options{
		Registry: registry,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	httpServer := &http.Server{Addr: addr, Handler: server.Routes()}

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Print(ctx, log.KV{K: "addr", V: addr}, log.KV{K: "agent", V: agentName})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf(ctx, "shutdown error: %v", err)
	}

	wg.Wait()
	log.Printf(ctx, "exited")
	return nil
}

func buildPort() (modelport.Port, error) {
	provider := envOr("CHATD_MODEL_PROVIDER", "openai")
	model := envOr("CHATD_MODEL_NAME", "gpt-4o")
	switch provider {
	case "openai":
		return openai.NewFromAPIKey(os.Getenv("OPENAI_API_KEY"), model)
	case "anthropic":
		maxTokens := envIntOr("CHATD_MAX_TOKENS", 4096)
		return anthropic.NewFromAPIKey(os.Getenv("ANTHROPIC_API_KEY"), model, maxTokens)
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}

// buildSessionStore wires the configured durable backend. The returned
// closer releases any connection the backend opened; it is a no-op for the
// file backend.
func buildSessionStore(ctx context.Context) (*session.Store, func(), error) {
	switch envOr("CHATD_SESSION_BACKEND", "file") {
	case "file":
		backend, err := filebackend.New(envOr("CHATD_SESSION_DIR", "./sessions"))
		if err != nil {
			return nil, nil, err
		}
		return session.New(backend), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_URL", "localhost:6379")})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		backend, err := redisbackend.New(rdb, "chatd-session:", envDurationOr("CHATD_SESSION_TTL", 30*time.Minute))
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return session.New(backend), func() { _ = rdb.Close() }, nil
	case "mongo":
		uri := envOr("MONGO_URI", "mongodb://localhost:27017")
		client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		backend, err := mongobackend.New(ctx, mongobackend.Options{
			Client:     client,
			Database:   envOr("MONGO_DATABASE", "chatd"),
			Collection: "sessions",
			Timeout:    10 * time.Second,
		})
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return session.New(backend), func() { _ = client.Disconnect(ctx) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", os.Getenv("CHATD_SESSION_BACKEND"))
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOr(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
