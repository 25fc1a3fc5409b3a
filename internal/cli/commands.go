package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerroll/chunkflow/internal/app"
	"github.com/tigerroll/chunkflow/internal/app/trigger"
	"github.com/tigerroll/chunkflow/internal/person"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	sqlrepo "github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// signalContext is canceled on SIGINT or SIGTERM. A running job then stops at its next chunk boundary.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func NewRunCmd(embeddedConfig config.EmbeddedConfig, opts *Options) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the job once",
		RunE: func(c *cobra.Command, args []string) error {
			jobParams, err := ParseParameters(params)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(c.Context())
			defer stop()

			return app.Run(ctx, embeddedConfig, opts.EnvFile, func(ctx context.Context, rt app.Runtime) error {
				jobName := opts.jobName(rt.Cfg)
				execution, err := rt.Operator.Start(ctx, jobName, jobParams)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "Job '%s' (Execution ID: %s) finished with status %s.\n", jobName, execution.ID, execution.Status)
				if execution.Status != model.BatchStatusCompleted {
					return fmt.Errorf("job '%s' ended with status %s: %s", jobName, execution.Status, strings.Join(execution.Failures, "; "))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Job parameter key=value (repeatable)")
	return cmd
}

func NewScheduleCmd(embeddedConfig config.EmbeddedConfig, opts *Options) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the job on a cron schedule until interrupted",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext(c.Context())
			defer stop()

			return app.Run(ctx, embeddedConfig, opts.EnvFile, func(ctx context.Context, rt app.Runtime) error {
				scheduler, err := trigger.NewScheduler(rt.Operator, opts.jobName(rt.Cfg), spec)
				if err != nil {
					return err
				}
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				return scheduler.Stop(stopCtx)
			})
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "*/5 * * * *", "Cron expression (minute hour dom month dow)")
	return cmd
}

func NewWatchCmd(embeddedConfig config.EmbeddedConfig, opts *Options) *cobra.Command {
	var dir, pattern string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the job whenever a file in a directory changes",
		Long: `watch launches the job with the parameter input.file set to the base name of every
created or written file. Configure the import with storage "local" (base_dir = the watched
directory) and resource "#{jobParameters['input.file']}".`,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext(c.Context())
			defer stop()

			return app.Run(ctx, embeddedConfig, opts.EnvFile, func(ctx context.Context, rt app.Runtime) error {
				watcher, err := trigger.NewWatcher(rt.Operator, opts.jobName(rt.Cfg), dir, pattern)
				if err != nil {
					return err
				}
				return watcher.Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "Directory to watch")
	cmd.Flags().StringVar(&pattern, "pattern", "*.csv", "File name pattern")
	return cmd
}

func NewMigrateCmd(embeddedConfig config.EmbeddedConfig, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the job repository and people schemas",
		RunE: func(c *cobra.Command, args []string) error {
			return app.Run(c.Context(), embeddedConfig, opts.EnvFile, func(ctx context.Context, rt app.Runtime) error {
				repoCfg := rt.Cfg.Chunkflow.Repository
				if repoCfg.Type == "sql" {
					if err := sqlrepo.Migrate(ctx, rt.DBResolver, repoCfg.Datasource); err != nil {
						return err
					}
				} else {
					logger.Infof("Job repository type '%s' has no schema.", repoCfg.Type)
				}
				return person.MigrateSink(ctx, rt.Cfg, rt.DBResolver)
			})
		},
	}
}

func NewHistoryCmd(embeddedConfig config.EmbeddedConfig, opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past executions of the job",
		RunE: func(c *cobra.Command, args []string) error {
			return app.Run(c.Context(), embeddedConfig, opts.EnvFile, func(ctx context.Context, rt app.Runtime) error {
				executions, err := rt.Explorer.GetJobExecutions(ctx, opts.jobName(rt.Cfg), limit)
				if err != nil {
					return err
				}
				PrintExecutions(c.OutOrStdout(), executions)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of executions (0 for all)")
	return cmd
}

// PrintExecutions writes one row per execution and one indented row per step.
func PrintExecutions(out io.Writer, executions []*model.JobExecution) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXECUTION ID\tSTATUS\tSTARTED\tDURATION\tPARAMETERS")
	for _, je := range executions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", je.ID, je.Status, je.StartTime.Format(time.RFC3339), je.Duration().Round(time.Millisecond), je.Parameters.String())
		for _, se := range je.StepExecutions {
			fmt.Fprintf(w, "  %s\t%s\tread=%d write=%d skip=%d\tcommit=%d rollback=%d\t\n",
				se.StepName, se.Status, se.ReadCount, se.WriteCount, se.SkipCount, se.CommitCount, se.RollbackCount)
		}
	}
	w.Flush()
}

// ParseParameters turns key=value pairs into JobParameters.
// Values are typed as int64, float64, bool or RFC 3339 time when they parse as such, string otherwise.
func ParseParameters(pairs []string) (model.JobParameters, error) {
	params := model.NewJobParameters()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return params, fmt.Errorf("invalid job parameter %q, expected key=value", pair)
		}
		params.Put(key, typedValue(value))
	}
	return params, nil
}

func typedValue(value string) interface{} {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return value
}
