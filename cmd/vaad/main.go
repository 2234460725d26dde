/*
main.go - Application entry point

PURPOSE:
  The vaad command runs the committee billing server and a few maintenance
  commands that work directly against the database.

COMMANDS:
  serve        Start the HTTP API (graceful shutdown on SIGINT/SIGTERM)
  materialize  Create a month's payment rows for one building
  export       Write a month's payments or expenses as CSV or print HTML
  seed         Reset the database and load a demo scenario
  token        Sign a JWT for a building scope (local testing)

CONFIGURATION:
  Settings come from config.Load (defaults, .env, environment). Persistent
  flags override them:
    --port       HTTP server port
    --driver     sqlite | postgres
    --db         SQLite database path (":memory:" allowed)
    --dev        enable demo scenarios and the dev JWT secret

EXAMPLES:
  # Run with file database
  vaad serve --db=./data/vaad.db

  # Run against PostgreSQL with monthly auto-materialization
  DATABASE_URL=postgres://... vaad serve --driver=postgres --auto-materialize

  # Bill March for a building
  vaad materialize --building=b1 --month=2025-03

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment keys
  - store/sqlite, store/gormdb: Database implementations
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/config"
	"github.com/Yairkad/vaad-bayit-sub000/store/gormdb"
	"github.com/Yairkad/vaad-bayit-sub000/store/sqlite"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	port   int
	driver string
	dbPath string
	dev    bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "vaad",
		Short:         "Building committee billing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().IntVar(&flags.port, "port", 0, "HTTP server port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "database driver: sqlite or postgres (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "enable demo scenarios (overrides DEV_MODE)")

	rootCmd.AddCommand(
		serveCmd(&flags),
		materializeCmd(&flags),
		exportCmd(&flags),
		seedCmd(&flags),
		tokenCmd(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the flags on top.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	if pf.Changed("port") {
		cfg.Port = flags.port
	}
	if pf.Changed("driver") {
		cfg.DBDriver = flags.driver
	}
	if pf.Changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if pf.Changed("dev") {
		cfg.DevMode = flags.dev
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// closingStore is a billing store that owns a database connection.
type closingStore interface {
	billing.Store
	billing.Resetter
	Close() error
}

// openStore connects to the configured database and migrates its schema.
func openStore(cfg *config.Config) (closingStore, error) {
	if cfg.DBDriver == "postgres" {
		store, err := gormdb.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return store, nil
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return store, nil
}

// adminScope is the scope CLI commands act with.
func adminScope(building string) (billing.BuildingScope, error) {
	scope := billing.BuildingScope{BuildingID: billing.BuildingID(building), UserID: "cli", Role: billing.RoleAdmin}
	if err := scope.Validate(); err != nil {
		return billing.BuildingScope{}, fmt.Errorf("--building is required")
	}
	return scope, nil
}
