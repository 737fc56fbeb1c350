package main

import (
	"fmt"

	"github.com/rlezama/flotilla/internal/db"
	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one availability sweep and print the changed units",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return runSweep(gormDB, rec, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
