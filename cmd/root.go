package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/pharmstock/internal/config"
	"github.com/lepinkainen/pharmstock/internal/csvutil"
	"github.com/lepinkainen/pharmstock/internal/datastore"
	"github.com/lepinkainen/pharmstock/internal/loader"
	"github.com/lepinkainen/pharmstock/internal/maintenance"
	"github.com/lepinkainen/pharmstock/internal/migrate"
)

// vacuumDelay gives the operator a window to abort a full vacuum when
// --confirm was not passed.
var vacuumDelay = 5 * time.Second

// CLI represents the complete command structure for the pharmstock application
type CLI struct {
	// Global flags
	DatabaseURL    string        `help:"PostgreSQL connection string for the target database" env:"DATABASE_URL"`
	PoolMinConns   int           `help:"Minimum number of pooled connections (0 = use config)"`
	PoolMaxConns   int           `help:"Maximum number of pooled connections (0 = use config)"`
	AcquireTimeout time.Duration `help:"How long to wait for a free pooled connection (0 = use config)"`
	PreferIPV4     bool          `name:"prefer-ipv4" help:"Dial the database host over IPv4 only"`

	Migrate    MigrateCmd    `cmd:"" help:"Migrate a SQLite database into PostgreSQL"`
	Load       LoadCmd       `cmd:"" help:"Load records from a CSV file into a target table"`
	Duplicates DuplicatesCmd `cmd:"" help:"Check for or clean up duplicate stock rows"`
	Vacuum     VacuumCmd     `cmd:"" help:"Run VACUUM FULL on current_stock to reclaim disk space"`
	Retention  RetentionCmd  `cmd:"" help:"Delete transactional documents older than the retention window"`
	Status     StatusCmd     `cmd:"" help:"Report server version and table row counts"`
}

// MigrateCmd represents the migrate command
type MigrateCmd struct {
	Source    string `arg:"" help:"Path to the SQLite source database file"`
	BatchSize int    `help:"Rows copied per batch (0 = use config)"`
}

// LoadCmd represents the load command
type LoadCmd struct {
	Input       string `arg:"" help:"Path to the CSV input file"`
	Table       string `short:"t" help:"Target table name" required:""`
	Mode        string `short:"m" help:"Load mode" enum:"replace-all,upsert,insert-skip," default:""`
	SkipInvalid bool   `help:"Skip malformed CSV rows instead of failing"`
}

// DuplicatesCmd represents the duplicates command
type DuplicatesCmd struct {
	CheckOnly bool `help:"Only report duplicates, don't delete anything"`
}

// VacuumCmd represents the vacuum command
type VacuumCmd struct {
	Confirm bool `help:"Skip the safety delay before taking the exclusive lock"`
}

// RetentionCmd represents the retention command
type RetentionCmd struct {
	Days      int  `help:"Retention window in days (0 = use config)"`
	CheckOnly bool `help:"Only report expired rows, don't delete anything"`
}

// StatusCmd represents the status command
type StatusCmd struct{}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("pharmstock"),
		kong.Description("Administrative and data-migration utilities for the pharmacy inventory database."),
		kong.UsageOnError(),
	)

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Enable environment variable support
	viper.AutomaticEnv()
	if err := viper.BindEnv("databaseurl", "DATABASE_URL"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("Config file not found, using defaults")
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// Initialize global config
	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	if cli.DatabaseURL != "" {
		config.SetDatabaseURL(cli.DatabaseURL)
	}
	config.SetPoolBounds(cli.PoolMinConns, cli.PoolMaxConns)
	if cli.AcquireTimeout > 0 {
		config.AcquireTimeout = cli.AcquireTimeout
	}
	if cli.PreferIPV4 {
		config.SetPreferIPv4(true)
	}
}

// openStore connects to the target database using the global config.
func openStore(ctx context.Context) (*datastore.PostgresStore, error) {
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (provide via --database-url flag, DATABASE_URL env or config file)")
	}

	return datastore.NewPostgresStore(ctx, config.DatabaseURL, datastore.PoolOptions{
		MinConns:       config.PoolMinConns,
		MaxConns:       config.PoolMaxConns,
		AcquireTimeout: config.AcquireTimeout,
		PreferIPv4:     config.PreferIPv4,
	})
}

// Run methods for each command

func (m *MigrateCmd) Run() error {
	ctx := context.Background()

	source, err := datastore.OpenSQLiteSource(ctx, m.Source)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = config.BatchSize
	}

	driver := migrate.NewDriver(source, store, batchSize)
	reports, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	var migrated, skipped int
	for _, report := range reports {
		if report.Skipped {
			skipped++
			slog.Warn("table skipped", "table", report.Table, "reason", report.SkipReason)
			continue
		}
		migrated++
	}
	slog.Info("migration finished", "migrated", migrated, "skipped", skipped)

	return nil
}

func (l *LoadCmd) Run() error {
	ctx := context.Background()

	spec, err := loader.SpecFor(l.Table)
	if err != nil {
		return err
	}

	records, err := csvutil.ReadRecords(l.Input, csvutil.ReaderOptions{SkipInvalid: l.SkipInvalid})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.Info("no records in input file, nothing to load")
		return nil
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := loader.New(store).Load(ctx, spec, records, resolveMode(l.Mode, l.Table))
	if err != nil {
		return err
	}

	slog.Info("load finished", "table", l.Table, "written", result.Written, "failed", len(result.Failures))
	return result.Err(l.Table)
}

// resolveMode applies the per-table defaults: stock snapshots replace,
// transactional documents accumulate.
func resolveMode(mode, table string) loader.Mode {
	if mode != "" {
		return loader.Mode(mode)
	}
	if table == "current_stock" {
		return loader.ReplaceAll
	}
	return loader.InsertSkipDuplicates
}

func (d *DuplicatesCmd) Run() error {
	ctx := context.Background()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if d.CheckOnly {
		report, err := maintenance.CheckDuplicates(ctx, store)
		if err != nil {
			return err
		}
		if report.Duplicates > 0 {
			slog.Warn("duplicates found, run without --check-only to clean up")
		}
		return nil
	}

	deleted, err := maintenance.CleanupDuplicates(ctx, store)
	if err != nil {
		return err
	}
	slog.Info("duplicate cleanup finished", "deleted", deleted)
	return nil
}

func (v *VacuumCmd) Run() error {
	ctx := context.Background()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if !v.Confirm {
		slog.Warn("VACUUM FULL locks current_stock exclusively, blocking all reads and writes")
		slog.Warn("starting shortly, press Ctrl-C to abort", "delay", vacuumDelay)
		time.Sleep(vacuumDelay)
	}

	result, err := maintenance.VacuumFullCurrentStock(ctx, store)
	if err != nil {
		return err
	}

	slog.Info("vacuum finished",
		"rows", result.Rows,
		"before", result.Before.TotalSize,
		"after", result.After.TotalSize,
	)
	return nil
}

func (r *RetentionCmd) Run() error {
	ctx := context.Background()

	days := r.Days
	if days <= 0 {
		days = config.RetentionDays
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var report maintenance.RetentionReport
	if r.CheckOnly {
		report, err = maintenance.CheckRetention(ctx, store, days)
	} else {
		report, err = maintenance.CleanupRetention(ctx, store, days)
	}
	if err != nil {
		return err
	}

	var failed []string
	for _, tr := range report.Tables {
		if tr.Err != nil {
			failed = append(failed, tr.Table)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("retention failed for tables: %s", strings.Join(failed, ", "))
	}

	return nil
}

func (s *StatusCmd) Run() error {
	ctx := context.Background()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := maintenance.Status(ctx, store)
	if err != nil {
		return err
	}

	slog.Info("server", "version", report.ServerVersion)
	for _, table := range report.Tables {
		if table.Present {
			slog.Info("table", "name", table.Table, "rows", table.Rows)
		} else {
			slog.Info("table", "name", table.Table, "rows", "missing")
		}
	}

	return nil
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("PHARMSTOCK_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
