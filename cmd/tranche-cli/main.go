// Tranche CLI — инструмент командной строки для таблицы tasks
// и запущенных экземпляров.
//
// Использование:
//
//	tranche [--driver D] [--dsn DSN] [--sqlite-path P] [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	schema    Создать таблицу tasks
//	seed      Вставить синтетические tasks
//	tasks     list, count, show
//	reclaim   Освободить зависшие tasks
//	instance  Статус экземпляра по HTTP
//	watch     Поток событий из RabbitMQ
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tranche/internal/cli"
	"github.com/shaiso/Tranche/internal/config"
	"github.com/shaiso/Tranche/internal/mq"
	"github.com/shaiso/Tranche/internal/repo"
	"github.com/shaiso/Tranche/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// Значения флагов по умолчанию берутся из того же окружения, что и у экземпляра
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
		cfg = config.Default()
	}

	var driver, dsn, sqlitePath, apiURL, amqpURL, logLevel string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "tranche",
		Short:         "Tranche CLI — batch task table and instance tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&driver, "driver", cfg.Store.Driver, "Store driver (postgres, sqlite)")
	flags.StringVar(&dsn, "dsn", cfg.Store.DSN, "PostgreSQL DSN")
	flags.StringVar(&sqlitePath, "sqlite-path", cfg.Store.SQLitePath, "SQLite database file")
	flags.StringVar(&apiURL, "api-url", "http://localhost:"+cfg.Port, "Instance HTTP URL")
	flags.StringVar(&amqpURL, "amqp-url", orDefault(cfg.RabbitMQURL, mq.DefaultURL()), "RabbitMQ URL")
	flags.StringVar(&logLevel, "log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	storeFn := func(ctx context.Context) (repo.TaskStore, error) {
		return repo.Open(ctx, repo.OpenConfig{Driver: driver, DSN: dsn, Path: sqlitePath})
	}
	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	loggerFn := func() *slog.Logger {
		return telemetry.NewLogger(os.Stderr, "text", telemetry.ParseLevel(logLevel))
	}
	urlFn := func() string { return amqpURL }

	rootCmd.AddCommand(
		cli.NewSchemaCmd(storeFn, outputFn),
		cli.NewSeedCmd(storeFn, outputFn, loggerFn),
		cli.NewTasksCmd(storeFn, outputFn),
		cli.NewReclaimCmd(storeFn, outputFn, loggerFn),
		cli.NewInstanceCmd(clientFn, outputFn),
		cli.NewWatchCmd(urlFn, outputFn, loggerFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
