package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qbank/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
		backend    string
	)

	cmd := &cobra.Command{
		Use:           "qbank",
		Short:         "Qbank imports question-bank images into a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			if backend != "" {
				parsed, err := config.ParseBackend(backend)
				if err != nil {
					return err
				}
				cfg.Backend = parsed
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend: mongo|sqlite")

	cmd.AddCommand(
		newImportCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newCountCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}
