package main

import (
	"fmt"

	"financeshub/internal/app"
	"financeshub/internal/config"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured job once",
	Example: `  financeshub run
  financeshub run --sink file
  FINANCES_HUB_SINK=both FINANCES_HUB_PG_DSN=postgres://... financeshub run --validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		if err := applySinkFlag(cmd, cfg); err != nil {
			return err
		}
		if cmd.Flags().Changed("continue-on-error") {
			cfg.Run.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
		}
		if cmd.Flags().Changed("transforms") {
			cfg.SQL.RunTransforms, _ = cmd.Flags().GetBool("transforms")
		}
		if cmd.Flags().Changed("validate") {
			cfg.SQL.Validate, _ = cmd.Flags().GetBool("validate")
		}
		if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
			cfg.Storage.PostgresDSN = dsn
		}
		cfg.App.Mode = config.ModeOnce

		ctx, stop := signalContext()
		defer stop()
		a, err := app.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the jobs on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		if err := applySinkFlag(cmd, cfg); err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("status-addr"); addr != "" {
			cfg.HTTP.StatusAddr = addr
		}
		cfg.App.Mode = config.ModeSchedule

		ctx, stop := signalContext()
		defer stop()
		a, err := app.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs the next run would execute",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		ctx, stop := signalContext()
		defer stop()
		a, err := app.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		for _, name := range a.JobNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the bronze schema and tables in the warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
			cfg.Storage.PostgresDSN = dsn
		}
		ctx, stop := signalContext()
		defer stop()
		a, err := app.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.EnsureSchema(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, serveCmd, jobsCmd, schemaCmd)

	runCmd.Flags().String("sink", "", "override FINANCES_HUB_SINK: file, postgres, both or none")
	runCmd.Flags().String("dsn", "", "warehouse DSN for this run")
	runCmd.Flags().Bool("continue-on-error", false, "keep running later jobs after a failure")
	runCmd.Flags().Bool("transforms", false, "run silver/gold SQL transforms after ingestion")
	runCmd.Flags().Bool("validate", false, "run SQL data tests after ingestion")

	serveCmd.Flags().String("sink", "", "override FINANCES_HUB_SINK: file, postgres, both or none")
	serveCmd.Flags().String("status-addr", "", "listen address of the status API")

	schemaCmd.Flags().String("dsn", "", "warehouse DSN")
}
