package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rlezama/flotilla/internal/alerts"
	"github.com/rlezama/flotilla/internal/compliance"
	"github.com/rlezama/flotilla/internal/config"
	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/rlezama/flotilla/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the scheduled availability sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}

	rec, err := buildReconciler(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := cron.New()
	_, err = sched.AddFunc(cfg.Reconcile.Schedule, func() {
		if err := runSweep(gormDB, rec, out); err != nil {
			fmt.Fprintf(out, "barrido fallido: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Reconcile.Schedule, err)
	}
	sched.Start()
	defer sched.Stop()
	fmt.Fprintf(out, "Barrido programado: %s\n", cfg.Reconcile.Schedule)

	return server.Start(ctx, server.StartOpts{
		DB:         gormDB,
		Reconciler: rec,
		Port:       cfg.Server.Port,
		Out:        out,
	})
}

// buildReconciler wires the configured alert channels into a reconciler.
func buildReconciler(cfg *config.Config) (*compliance.Reconciler, error) {
	var senders alerts.Multi
	if cfg.Alerts.Slack.BotToken != "" {
		senders = append(senders, alerts.NewSlack(alerts.SlackOpts{
			BotToken:  cfg.Alerts.Slack.BotToken,
			ChannelID: cfg.Alerts.Slack.Channel,
		}))
	}
	if cfg.Alerts.Discord.BotToken != "" {
		d, err := alerts.NewDiscord(alerts.DiscordOpts{
			BotToken:  cfg.Alerts.Discord.BotToken,
			ChannelID: cfg.Alerts.Discord.ChannelID,
		})
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		senders = append(senders, d)
	}

	rec := &compliance.Reconciler{Expected: cfg.ExpectedTires}
	if len(senders) > 0 {
		rec.Notifier = senders
	}
	return rec, nil
}

// runSweep reconciles every visible unit and reports the changed ones.
func runSweep(gormDB *gorm.DB, rec *compliance.Reconciler, out io.Writer) error {
	var units []models.Unit
	err := gormDB.Scopes(models.Visible).
		Preload("Tires", "record_status <> ?", models.RecordDeleted).
		Find(&units).Error
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}

	changed, errs := rec.ReconcileAll(gormDB, units)
	fmt.Fprintf(out, "Barrido: %d unidades revisadas, %d actualizadas\n", len(units), changed)
	for _, u := range units {
		if u.Status == models.UnitBloqueado && u.RazonBloqueo != "" {
			fmt.Fprintf(out, "  %s bloqueada: %s\n", u.NumeroEconomico, u.RazonBloqueo)
		}
	}
	for _, e := range errs {
		fmt.Fprintf(out, "  error: %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d unidades fallaron", len(errs))
	}
	return nil
}
