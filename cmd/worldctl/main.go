package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/respp/astrade-world/internal/core/observability/log"
	"github.com/respp/astrade-world/internal/core/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (env vars override)")
		keys       = flag.String("keys", "", "comma-separated entity keys to query and watch")
		models     = flag.String("models", "", "comma-separated model names to filter on")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := world.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	logger := log.New(level)

	w := world.New(cfg, logger)
	w.OnStateChange(func(prev, next world.ConnectionState) {
		fmt.Printf("state: %s -> %s\n", prev, next)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = w.Connect(ctx); err != nil {
		if world.KindOf(err) == world.KindInvalidConfig {
			fmt.Fprintln(os.Stderr, "connect:", err)
			os.Exit(1)
		}
		// Transient failure: retries are already scheduled, keep running.
		fmt.Fprintln(os.Stderr, "connect (retrying):", err)
	}

	if *keys != "" {
		filter := world.QueryFilter{Keys: split(*keys), Models: split(*models)}

		entities, err := w.QueryEntities(ctx, filter)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
		} else {
			fmt.Printf("query: %d entities\n", len(entities))
			for _, e := range entities {
				fmt.Println("  ", e.ID)
			}
		}

		sub, err := w.SubscribeToEntities(ctx, filter, func(u world.Update) {
			if u.Err != nil {
				fmt.Fprintln(os.Stderr, "update error:", u.Err)
				return
			}
			for _, e := range u.Data {
				fmt.Println("update:", e.ID)
			}
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "subscribe:", err)
		} else {
			defer sub.Cancel()
		}
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	cancel()
	w.Disconnect()
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
