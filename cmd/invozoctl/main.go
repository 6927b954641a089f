// invozoctl is the operator CLI: schema migration, first-run seeding, and a
// one-shot run of the overdue/expiry sweeper.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/config"
	"github.com/invozo/invozo/internal/events"
	"github.com/invozo/invozo/internal/migration"
	"github.com/invozo/invozo/internal/observability/logger"
	"github.com/invozo/invozo/internal/scheduler"
	"github.com/invozo/invozo/internal/seed"
	"github.com/invozo/invozo/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:           "invozoctl",
		Short:         "Operational tooling for an invozo deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), seedCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, _, err := openEnv()
			if err != nil {
				return err
			}
			return runMigrations(conn, cfg)
		},
	}
}

func seedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first organization and its bootstrap API key",
		Long: "Creates the default organization when the database is empty and " +
			"issues its first API key. The key is printed once; store it safely.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, log, err := openEnv()
			if err != nil {
				return err
			}
			if err := runMigrations(conn, cfg); err != nil {
				return err
			}

			node, err := snowflake.NewNode(1)
			if err != nil {
				return err
			}
			org, err := seed.EnsureDefaultOrg(conn, node)
			if err != nil {
				return err
			}
			log.Info("organization ready", zap.String("org_id", org.ID.String()), zap.String("name", org.Name))

			key, err := seed.BootstrapAPIKey(conn, node, org.ID)
			if err != nil {
				return err
			}
			if key == "" {
				fmt.Println("an active API key already exists; nothing to do")
			} else {
				fmt.Println("bootstrap API key (shown once):", key)
			}

			if demo {
				if err := seed.SeedDemoCatalog(conn, node, org.ID); err != nil {
					return err
				}
				log.Info("demo catalog seeded", zap.String("org_id", org.ID.String()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also seed a demo catalog and customer")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one overdue/expiry sweep pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, log, err := openEnv()
			if err != nil {
				return err
			}

			node, err := snowflake.NewNode(1)
			if err != nil {
				return err
			}
			s := scheduler.NewScheduler(scheduler.SchedulerParam{
				DB:     conn,
				Log:    log,
				Clock:  clock.SystemClock{},
				Config: cfg,
				Outbox: events.NewOutbox(conn, node),
			})

			ctx := context.Background()
			overdue, err := s.SweepOverdueInvoices(ctx)
			if err != nil {
				return err
			}
			expired, err := s.SweepExpiredEstimates(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("marked %d invoices overdue, %d estimates expired\n", overdue, expired)
			return nil
		},
	}
}

func openEnv() (*gorm.DB, config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	conn, err := db.Open(cfg, log)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return conn, cfg, log, nil
}

func runMigrations(conn *gorm.DB, cfg config.Config) error {
	if cfg.Database.Driver == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return migration.RunPostgres(sqlDB)
	}
	return migration.AutoMigrate(conn)
}
