package main

import (
	"fmt"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg *config.Config
	log *zerolog.Logger
}

// loadConfig is a variable so tests can skip the environment.
var loadConfig = config.LoadConfig

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "servicekit",
		Short: "Schema-validated JSON API over Postgres",
		Long: `servicekit serves a JSON API whose routes validate their input and
output against declared schemas. Configuration comes from defaults, an
optional YAML file named by SERVICEKIT_CONFIG and SERVICEKIT_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.New(cfg.Observability)

			a.cfg = cfg
			a.log = &log
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(a), newMigrateCmd(a))
	return cmd
}
