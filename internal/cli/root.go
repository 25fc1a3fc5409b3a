// Package cli implements the importpeople command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tigerroll/chunkflow/internal/person"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
)

// Options are the flags shared by every command.
type Options struct {
	EnvFile string
	JobName string
}

func NewRootCmd(embeddedConfig config.EmbeddedConfig) *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "importpeople",
		Short: "importpeople - chunked import of people into a database",
		Long: `importpeople reads people from a delimited file, upper-cases their names
and inserts them into the people table in chunks of ten, one transaction per chunk.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Path to a .env file (default: .env if present)")
	rootCmd.PersistentFlags().StringVarP(&opts.JobName, "job", "j", "", "Job name (default: chunkflow.batch.job_name)")

	rootCmd.AddCommand(
		NewRunCmd(embeddedConfig, opts),
		NewScheduleCmd(embeddedConfig, opts),
		NewWatchCmd(embeddedConfig, opts),
		NewMigrateCmd(embeddedConfig, opts),
		NewHistoryCmd(embeddedConfig, opts),
	)
	return rootCmd
}

// jobName returns the --job flag, the configured default job or importUserJob.
func (o *Options) jobName(cfg *config.Config) string {
	switch {
	case o.JobName != "":
		return o.JobName
	case cfg.Chunkflow.Batch.JobName != "":
		return cfg.Chunkflow.Batch.JobName
	default:
		return person.JobName
	}
}
