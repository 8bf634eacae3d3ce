package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"designcal/internal/config"
	appLog "designcal/internal/log"
	"designcal/internal/store"
)

const defaultConfigPath = "/etc/designcal/config.yaml"

// app carries the settings shared by all subcommands. Flags and
// DESIGNCAL_* environment variables are resolved through v and override
// the YAML config file.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "designcal",
		Short: "Appointment book and calendar views for design showrooms",
		Long: `designcal keeps the showroom appointment book, imports designers'
external calendars over ICS and lays overlapping appointments out side by
side in day and week views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newServeCmd(a),
		newLayoutCmd(a),
		newAgendaCmd(a),
		newCaptureCmd(a),
	)

	return root
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DESIGNCAL")
	// DESIGNCAL_DATABASE_DSN for database.dsn
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the YAML config and applies flag/env overrides.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.v.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	a.applyOverrides(cfg)
	appLog.Debug("effective config",
		"config_path", path,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"week_start", cfg.WeekStart,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"feeds", len(cfg.Feeds),
		"postgres", cfg.Database.DSN != "",
	)

	return cfg, nil
}

// applyOverrides copies flag and DESIGNCAL_* values over cfg, normalizes it
// and applies its log level.
func (a *app) applyOverrides(cfg *config.Config) {
	if v := a.v.GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v := a.v.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := a.v.GetString("timezone"); v != "" {
		cfg.Timezone = v
	}
	if v := a.v.GetString("cache_dir"); v != "" {
		cfg.CacheDir = v
	}
	if v := a.v.GetString("database.dsn"); v != "" {
		cfg.Database.DSN = v
	}
	cfg.Normalize()

	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
}

// openRepository connects to Postgres when a DSN is configured and falls
// back to the in-memory store otherwise. The returned func releases it.
func openRepository(ctx context.Context, cfg *config.Config) (store.Repository, func(), error) {
	if cfg.Database.DSN == "" {
		appLog.Warn("no database configured, appointments are kept in memory")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pg, closer(pool), nil
}

func closer(pool *pgxpool.Pool) func() {
	return func() {
		pool.Close()
		appLog.Debug("database pool closed")
	}
}
