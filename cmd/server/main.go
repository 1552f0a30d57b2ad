package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/live-poll-backend/internal/archive"
	"github.com/DoyleJ11/live-poll-backend/internal/config"
	"github.com/DoyleJ11/live-poll-backend/internal/httpapi"
	"github.com/DoyleJ11/live-poll-backend/internal/hub"
	"github.com/DoyleJ11/live-poll-backend/internal/session"
	"github.com/DoyleJ11/live-poll-backend/internal/ws"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	clk := clock.New()

	opts := session.Options{Clock: clk, Logger: log}
	if cfg.ArchiveDSN != "" {
		store, err := archive.Open(cfg.ArchiveDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		w := archive.NewWriter(store, 64, log)
		opts.Archive = w
		g.Go(func() error { return w.Run(gctx) })
		log.Info("poll archive enabled")
	}

	actors, stopActors := context.WithCancel(context.Background())
	defer stopActors()
	h := hub.NewHub(actors, log)
	s := session.New(actors, h, opts)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(s, clk, log, ws.Options{
			OriginPatterns: cfg.AllowedOrigins,
			OutboxSize:     cfg.OutboxSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Closing the hub closes every outbox, which ends the hijacked
		// websocket connections srv.Shutdown does not track.
		s.Submit(sctx, session.Shutdown{})
		select {
		case <-s.Done():
		case <-sctx.Done():
			stopActors()
		}
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		<-h.Done()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
