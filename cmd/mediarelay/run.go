package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"mediarelay/internal/bot"
	"mediarelay/internal/httpserver"
	"mediarelay/internal/metrics"
	"mediarelay/internal/notify"
	"mediarelay/internal/storage"
)

const badgerGCInterval = 5 * time.Minute

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and run the relay until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(parent context.Context) error {
	log := a.log

	store, err := a.openStore()
	if err != nil {
		log.WithError(err).Error("Failed to initialize state store")
		return err
	}
	defer a.closeStore(store)

	botHandler, err := bot.NewHandler(a.cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize Discord bot handler")
		return err
	}

	task := notify.New(a.notifyConfig(), botHandler.Platform(), store, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting mediarelay...")

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := botHandler.Start(ctx); err != nil {
			log.WithError(err).Error("Discord bot stopped")
			stop()
		}
	})
	wg.Go(func() {
		task.Run(ctx, a.cfg.ScanInterval)
	})
	wg.Go(func() {
		liveness := httpserver.New(fmt.Sprintf(":%d", a.cfg.Port), httpserver.LivenessRouter(), log)
		if err := liveness.Run(ctx); err != nil {
			log.WithError(err).Error("Liveness responder stopped")
		}
	})
	if a.cfg.MetricsAddr != "" {
		wg.Go(func() {
			srv := httpserver.New(a.cfg.MetricsAddr, httpserver.MetricsRouter(registry), log)
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		})
	}
	if badgerStore, ok := store.(*storage.BadgerCursorStore); ok {
		wg.Go(func() {
			badgerStore.RunGC(ctx, badgerGCInterval)
		})
	}

	log.Info("mediarelay is running. Press Ctrl+C to exit.")

	if r := wg.WaitAndRecover(); r != nil {
		log.WithField("panic", r.String()).Error("A background task panicked")
		return fmt.Errorf("background task panicked: %v", r.Value)
	}

	log.Info("mediarelay shut down gracefully.")
	return nil
}

func (a *app) notifyConfig() notify.Config {
	return notify.Config{
		GuildID:             a.cfg.GuildID,
		SourceChannelID:     a.cfg.SourceChannelID,
		RoleID:              a.cfg.NotifyRoleID,
		ForwardAttachments:  a.cfg.ForwardAttachments,
		AttachmentSizeLimit: a.cfg.AttachmentSizeLimit,
	}
}
