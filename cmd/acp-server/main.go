// Command acp-server runs the ACP run engine's HTTP surface over the
// built-in agent catalog, wiring store backend selection, agent
// registration, and graceful shutdown the way example/cmd/assistant/main.go
// wires its generated services, but by hand since there is no Goa design
// to generate a transport from.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/acp-project/acp-go/acplog"
	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/agent/workerpool"
	"github.com/acp-project/acp-go/agentlib"
	"github.com/acp-project/acp-go/config"
	"github.com/acp-project/acp-go/hooks"
	"github.com/acp-project/acp-go/session"
	"github.com/acp-project/acp-go/store"
	"github.com/acp-project/acp-go/store/memstore"
	"github.com/acp-project/acp-go/store/redisstore"
	"github.com/acp-project/acp-go/store/sqlstore"
	"github.com/acp-project/acp-go/transport/httpapi"
)

func main() {
	configPathF := flag.String("config", "", "path to a YAML config file (optional)")
	debugF := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPathF)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *debugF {
		cfg.Debug = true
	}

	ctx := acplog.NewContext(context.Background(), acplog.Config{Debug: cfg.Debug})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, closeBackend, err := buildStore(ctx, cfg.Store)
	if err != nil {
		acplog.Error(ctx, err, "failed to initialize store backend")
		os.Exit(1)
	}
	defer closeBackend()

	runStore := store.NewView[acpmodel.RunData](backend, "run:")
	resumeStore := store.NewView[acpmodel.AwaitResume](backend, "resume:")
	sessionStore := session.NewStore(backend, "session:")

	pool := workerpool.New(cfg.WorkerPoolSize)
	agents := map[string]httpapi.AgentEntry{}
	for _, d := range agentlib.Catalog(pool) {
		agents[d.Name] = httpapi.AgentEntry{
			Descriptor: httpapi.AgentDescriptor{Name: d.Name, Description: d.Description},
			Adapter:    d.Adapter,
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		client := anthropic.NewClient(option.WithAPIKey(key))
		llmAdapter := agentlib.LLM(&client.Messages, string(anthropic.ModelClaudeSonnet4_5_20250929), 1024)
		agents["llm"] = httpapi.AgentEntry{
			Descriptor: httpapi.AgentDescriptor{Name: "llm", Description: "LLM agent backed by Anthropic Claude"},
			Adapter:    llmAdapter,
		}
	}

	bus := hooks.NewBus()
	logSub, err := bus.Register(hooks.SubscriberFunc(func(ctx context.Context, evt hooks.Event) error {
		acplog.Info(ctx, "run event",
			acplog.KV{K: "run_id", V: evt.RunID},
			acplog.KV{K: "agent", V: evt.AgentID},
			acplog.KV{K: "type", V: string(evt.Type)},
		)
		return nil
	}))
	if err != nil {
		acplog.Error(ctx, err, "failed to register logging subscriber")
		os.Exit(1)
	}
	defer logSub.Close()

	srv, err := httpapi.New(httpapi.Config{
		Agents:       agents,
		RunStore:     runStore,
		CancelStore:  backend,
		ResumeStore:  resumeStore,
		SessionStore: sessionStore,
		Bus:          bus,
		RateLimit:    rate.Limit(50),
		RateBurst:    100,
	})
	if err != nil {
		acplog.Error(ctx, err, "failed to build HTTP server")
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(ctx),
		ReadHeaderTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		acplog.Info(ctx, "HTTP server listening", acplog.KV{K: "addr", V: cfg.Listen})
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
			return
		}
		errc <- nil
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			acplog.Error(ctx, err, "HTTP server failed")
			os.Exit(1)
		}
	case sig := <-sigc:
		acplog.Info(ctx, "received signal, shutting down", acplog.KV{K: "signal", V: sig.String()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		acplog.Error(ctx, err, "graceful shutdown failed")
	}
}

// buildStore constructs the configured store.Store backend along with a
// cleanup function the caller must defer.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("acp-server: redis backend requires store.redis_addr")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		var opts []redisstore.Option
		if cfg.RedisPrefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.RedisPrefix))
		}
		s := redisstore.New(client, opts...)
		return s, func() { _ = client.Close() }, nil

	case config.BackendSQL:
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("acp-server: sql backend requires store.postgres_dsn")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("acp-server: connect postgres: %w", err)
		}
		var opts []sqlstore.Option
		if cfg.PostgresTable != "" {
			opts = append(opts, sqlstore.WithTable(cfg.PostgresTable))
		}
		s, err := sqlstore.New(ctx, pool, cfg.PostgresDSN, opts...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, func() {
			_ = s.Close(context.Background())
			pool.Close()
		}, nil

	default:
		var opts []memstore.Option
		if cfg.MemoryTTL > 0 {
			opts = append(opts, memstore.WithTTL(cfg.MemoryTTL))
		}
		if cfg.MemoryMaxSize > 0 {
			opts = append(opts, memstore.WithMaxSize(cfg.MemoryMaxSize))
		}
		s := memstore.New(opts...)
		return s, func() { s.Close() }, nil
	}
}
