package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tranche/internal/config"
	"github.com/shaiso/Tranche/internal/repo"
	"github.com/shaiso/Tranche/internal/seed"
	"github.com/shaiso/Tranche/internal/worker"
)

// NewSchemaCmd создаёт команду создания таблицы tasks.
func NewSchemaCmd(storeFn StoreFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the tasks table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				if err := store.EnsureSchema(cmd.Context()); err != nil {
					return err
				}
				outputFn().Success("Schema is up to date")
				return nil
			})
		},
	}
}

// NewSeedCmd создаёт команду вставки синтетических tasks.
func NewSeedCmd(storeFn StoreFunc, outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert synthetic NOT_STARTED tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return fmt.Errorf("count must be >= 0, got %d", count)
			}

			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				if err := store.EnsureSchema(cmd.Context()); err != nil {
					return err
				}

				tasks, err := seed.Run(cmd.Context(), store, nil, count, loggerFn())
				if err != nil {
					return err
				}

				out := outputFn()
				headers := []string{"SEQ", "GROUP", "TRANCHE", "FILENAME", "STATUS", "IGNORE", "SIZE", "UPDATED", "ERROR"}
				rows := make([][]string, len(tasks))
				for i, t := range tasks {
					rows[i] = taskRow(*t)
				}
				out.Print(headers, rows, tasks)
				out.Success(fmt.Sprintf("Inserted %d tasks", len(tasks)))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", config.DefaultSeedCount, "Number of tasks to insert")

	return cmd
}

// NewReclaimCmd создаёт команду одного прохода освобождения зависших tasks.
func NewReclaimCmd(storeFn StoreFunc, outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var threshold time.Duration

	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Force-fail IN_PROGRESS tasks older than the liveness threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 {
				return fmt.Errorf("threshold must be positive, got %v", threshold)
			}

			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				r := worker.NewReclaimer(worker.ReclaimerConfig{
					Store:         store,
					Threshold:     threshold,
					InstanceIndex: -1, // проход из CLI, не экземпляр
					Logger:        loggerFn(),
				})

				n, err := r.Reclaim(cmd.Context())
				if err != nil {
					return err
				}
				outputFn().Success(fmt.Sprintf("Reclaimed %d tasks", n))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&threshold, "threshold", worker.DefaultLivenessThreshold, "Liveness threshold")

	return cmd
}
