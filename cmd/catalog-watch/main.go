// catalog-watch tails one tenant's entity list the way an admin table view
// does: fetch through the HTTP API, reconcile through the durable overlay,
// and live-patch on broadcast events. Useful for eyeballing cross-process
// consistency while poking the API with curl.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-data/internal/config"
	"storefront-data/internal/logger"
	"storefront-data/internal/overlay"
	"storefront-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: catalog-watch <tenant> <kind> [api-base-url]")
		os.Exit(2)
	}
	tenant, kind := os.Args[1], os.Args[2]
	baseURL := "http://localhost:8080"
	if len(os.Args) > 3 {
		baseURL = os.Args[3]
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Log.Level, "console", "catalog-watch")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis carries both the durable overlay state and the cross-process
	// broadcast channel; without it the watcher still works, single-process.
	var kv store.KV
	var bus overlay.Bus
	local := overlay.NewLocalBus()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
		bus = overlay.NewFanoutBus(local, overlay.NewRedisBus(redisClient, log), log)
	} else {
		log.Warn("redis unavailable, overlay state will not survive this process", zap.Error(err))
		kv = store.NewMemoryKV()
		bus = overlay.NewFanoutBus(local, nil, log)
	}
	defer redisClient.Close()

	ov := overlay.New(kv, bus, tenant, kind, log)
	view := overlay.NewListView(ov, bus, overlay.NewHTTPFetcher(baseURL), log)
	if err := view.Mount(ctx); err != nil {
		log.Fatal("mount failed", zap.Error(err))
	}
	defer view.Unmount()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	dump(view)
	for {
		select {
		case <-ticker.C:
			_ = view.Refresh(ctx)
			dump(view)
		case <-sigCh:
			return
		}
	}
}

func dump(view *overlay.ListView) {
	rows := view.Rows()
	fmt.Printf("--- %d rows @ %s\n", len(rows), time.Now().Format(time.TimeOnly))
	for _, row := range rows {
		line, _ := json.Marshal(row)
		fmt.Println(string(line))
	}
}
