package main

import (
	"ecgd/internal/di"
	"ecgd/internal/structures"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/ecgd.yml"

func rootCommand() *cobra.Command {
	flags := &structures.CliFlags{}

	rootCmd := &cobra.Command{
		Use:           "ecgd",
		Short:         "ECG measurement ingestion and history daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "Verbose logging mirrored to the console")

	rootCmd.AddCommand(
		serveCommand(flags),
		backupCommand(flags),
		restoreCommand(flags),
		statusCommand(flags),
	)
	return rootCmd
}

func serveCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitApp(flags)
			if err != nil {
				return err
			}
			defer cleanup()
			return app.Run()
		},
	}
}

func backupCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed snapshot of all measurements",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := di.InitMaintenance(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			file, n, err := m.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d measurements to %s (%d bytes)\n", n, file.Path, file.Size)
			return nil
		},
	}
}

func restoreCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [file]",
		Short: "Import a snapshot, the newest one when no file is given",
		Long: "Import measurements from a snapshot. Records whose id already exists are skipped.\n" +
			"Plain JSON dumps of the previous document database are accepted as well.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := di.InitMaintenance(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			n, err := m.Restore(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d measurements\n", n)
			return nil
		},
	}
}

func statusCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print store counts and available backups as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := di.InitMaintenance(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
