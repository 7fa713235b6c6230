package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/repo"
)

// StoreFunc открывает хранилище после парсинга флагов.
// Закрытие — на вызывающей стороне.
type StoreFunc func(ctx context.Context) (repo.TaskStore, error)

// withStore открывает хранилище, выполняет fn и закрывает его.
func withStore(ctx context.Context, storeFn StoreFunc, fn func(store repo.TaskStore) error) error {
	store, err := storeFn(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// NewTasksCmd создаёт группу команд для чтения таблицы tasks.
func NewTasksCmd(storeFn StoreFunc, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect the tasks table",
	}

	cmd.AddCommand(
		newTasksListCmd(storeFn, outputFn),
		newTasksCountCmd(storeFn, outputFn),
		newTasksShowCmd(storeFn, outputFn),
	)

	return cmd
}

func newTasksListCmd(storeFn StoreFunc, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in fileseqno order",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repo.TaskFilter{Limit: limit}
			if status != "" {
				s, ok := domain.ParseTaskStatus(strings.ToUpper(status))
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = s
			}

			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				tasks, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}

				headers := []string{"SEQ", "GROUP", "TRANCHE", "FILENAME", "STATUS", "IGNORE", "SIZE", "UPDATED", "ERROR"}
				rows := make([][]string, len(tasks))
				for i, t := range tasks {
					rows[i] = taskRow(t)
				}

				outputFn().Print(headers, rows, tasks)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (NOT_STARTED, IN_PROGRESS, SUCCESS, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default 50)")

	return cmd
}

func newTasksCountCmd(storeFn StoreFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count tasks by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				counts, err := store.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}

				byName := make(map[string]int, len(domain.AllTaskStatuses))
				for _, s := range domain.AllTaskStatuses {
					byName[string(s)] = counts[s]
				}

				outputFn().Print([]string{"STATUS", "COUNT"}, countRows(byName), byName)
				return nil
			})
		},
	}
}

func newTasksShowCmd(storeFn StoreFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILESEQNO",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid fileseqno %q", args[0])
			}

			return withStore(cmd.Context(), storeFn, func(store repo.TaskStore) error {
				task, err := store.Get(cmd.Context(), seq)
				if err != nil {
					return err
				}

				headers := []string{"SEQ", "GROUP", "TRANCHE", "FILENAME", "STATUS", "IGNORE", "SIZE", "UPDATED", "ERROR"}
				outputFn().Print(headers, [][]string{taskRow(*task)}, task)
				return nil
			})
		},
	}
}

func taskRow(t domain.Task) []string {
	errDesc := t.ErrorDesc
	if errDesc == "" {
		errDesc = "-"
	}
	return []string{
		strconv.FormatInt(t.Seq, 10),
		strconv.Itoa(t.GroupID),
		strconv.Itoa(t.TrancheID),
		t.Filename,
		string(t.Status),
		strconv.FormatBool(t.Ignore),
		strconv.Itoa(t.FileSize),
		t.LastUpdatedAt.UTC().Format(time.RFC3339),
		errDesc,
	}
}
