package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediarelay/internal/config"
	"mediarelay/internal/storage"
)

// app carries what every subcommand needs after startup.
type app struct {
	configDir string
	cfg       config.Config
	log       *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "mediarelay",
		Short: "Relay media between Discord channels and notify a role of new posts",
		Long: `mediarelay moves media out of a source channel when a moderator replies to a
message and mentions the bot, and periodically direct-messages members of a role
with everything posted to the source channel since the last scan.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "./configs", "Directory containing config.yaml")

	root.AddCommand(newRunCmd(a), newScanCmd(a), newCursorCmd(a))
	return root
}

// init loads configuration and sets up the logger.
func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return err
	}
	a.cfg = cfg

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	a.log = log

	log.WithFields(logrus.Fields{
		"source_channel_id":   cfg.SourceChannelID,
		"dest_channel_id":     cfg.DestChannelID,
		"notify_role_id":      cfg.NotifyRoleID,
		"scan_interval":       cfg.ScanInterval.String(),
		"forward_attachments": cfg.ForwardAttachments,
		"state_backend":       cfg.StateBackend,
	}).Info("Configuration loaded successfully")
	return nil
}

// openStore opens the configured cursor store.
func (a *app) openStore() (storage.CursorStore, error) {
	switch a.cfg.StateBackend {
	case config.BackendFile:
		return storage.NewFileCursorStore(a.cfg.StateFile, a.log), nil
	default:
		return storage.NewBadgerCursorStore(a.cfg.BadgerDBPath, a.log)
	}
}

func (a *app) closeStore(store storage.CursorStore) {
	a.log.Info("Closing state store...")
	if err := store.Close(); err != nil {
		a.log.WithError(err).Error("Error closing state store")
	}
}
