package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewInstanceCmd создаёт группу команд для опроса экземпляра по HTTP.
func NewInstanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Query a running instance over HTTP",
	}

	cmd.AddCommand(
		newInstanceStatusCmd(clientFn, outputFn),
		newInstanceStatsCmd(clientFn, outputFn),
		newInstanceHealthCmd(clientFn, outputFn),
	)

	return cmd
}

func newInstanceStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show instance status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := clientFn().Status()
			if err != nil {
				return err
			}

			headers := []string{"INSTANCE", "STORE", "REACHABLE", "STATE", "CLAIMED", "SUCCEEDED", "FAILED", "RECLAIMED"}
			row := []string{
				strconv.Itoa(status.InstanceIndex),
				status.StoreTarget,
				strconv.FormatBool(status.StoreReachable),
				status.LoopState,
				"-", "-", "-", "-",
			}
			if s := status.Stats; s != nil {
				row[4] = strconv.FormatInt(s.Claimed, 10)
				row[5] = strconv.FormatInt(s.Succeeded, 10)
				row[6] = strconv.FormatInt(s.Failed, 10)
				row[7] = strconv.FormatInt(s.Reclaimed, 10)
			}

			outputFn().Print(headers, [][]string{row}, status)
			return nil
		},
	}
}

func newInstanceStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts as seen by the instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := clientFn().TaskStats()
			if err != nil {
				return err
			}

			outputFn().Print([]string{"STATUS", "COUNT"}, countRows(stats.Counts), stats)
			return nil
		},
	}
}

func newInstanceHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check instance health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().Healthz(); err != nil {
				return err
			}
			outputFn().Success("ok")
			return nil
		},
	}
}

// countRows сортирует счётчики по имени статуса.
func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, strconv.Itoa(counts[k])}
	}
	return rows
}
