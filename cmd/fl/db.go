package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rlezama/flotilla/internal/config"
	"github.com/rlezama/flotilla/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultConfigPath = "flotilla.yaml"

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())
	cmd.AddCommand(newDBDropCmd())
	return cmd
}

// loadConfig reads the config file, tolerating a missing file by falling
// back to defaults so a bare `fl db migrate` works against a local MySQL.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Parse(nil)
	}
	return cfg, err
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	adminDB, err := db.ConnectAdmin(cfg.MySQL)
	if err != nil {
		return err
	}
	if err := db.CreateDatabase(adminDB, cfg.MySQL.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Base de datos %s lista\n", cfg.MySQL.Database)

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migradas %d tablas\n", len(db.AllModels()))
	return nil
}

func newDBSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a small development dataset",
		Long:  "Inserts one unit, a mechanic and a few inventory items.\nDoes nothing if any unit already exists.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := db.Connect(cfg.MySQL)
			if err != nil {
				return err
			}
			if err := db.Seed(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Datos de ejemplo listos")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func newDBDropCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the database",
		Long:  "Drops the configured database after interactive confirmation.\nUse --yes to skip the prompt in scripts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBDrop(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBDrop(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !skipConfirm {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("stdin is not a terminal; use --yes to drop without confirmation")
		}
		if !confirmDrop(cmd, cfg.MySQL.Database) {
			fmt.Fprintln(out, "Cancelado.")
			return nil
		}
	}

	adminDB, err := db.ConnectAdmin(cfg.MySQL)
	if err != nil {
		return err
	}
	if err := db.DropDatabase(adminDB, cfg.MySQL.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Base de datos %s eliminada\n", cfg.MySQL.Database)
	return nil
}

func confirmDrop(cmd *cobra.Command, dbName string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "ADVERTENCIA: se eliminarán todos los datos de %q.\n", dbName)
	fmt.Fprint(out, "Escriba \"yes\" para confirmar: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
