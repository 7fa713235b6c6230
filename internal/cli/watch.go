package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tranche/internal/mq"
)

// NewWatchCmd создаёт команду, печатающую события tasks из RabbitMQ.
//
// Команда объявляет временную очередь и не забирает события
// у durable очереди tasks.events.
func NewWatchCmd(urlFn func() string, outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var durable bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream task lifecycle events from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFn()
			out := outputFn()

			conn, err := mq.NewConnection(urlFn(), logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if err := mq.SetupTopology(ctx, conn); err != nil {
				return err
			}

			var queue mq.Queue
			if durable {
				queue = mq.QueueTaskEvents
			}

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Queue:   queue,
				Handler: printEvent(out),
			})

			err = consumer.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&durable, "durable", false, "Consume (and ack) from the durable tasks.events queue")

	return cmd
}

// printEvent возвращает Handler, печатающий событие одной строкой (или JSON).
func printEvent(out *Output) mq.Handler {
	return func(_ context.Context, msg *mq.Message) error {
		if out.jsonMode {
			out.JSON(msg)
			return nil
		}

		e := msg.Payload
		line := "%s  %-14s  seq=%d  instance=%d  group=%d  tranche=%d  status=%s"
		args := []any{msg.Timestamp.UTC().Format(time.RFC3339), msg.Type, e.Seq, e.InstanceIndex, e.GroupID, e.TrancheID, e.Status}
		if e.ErrorDesc != "" {
			line += "  error=%q"
			args = append(args, e.ErrorDesc)
		}
		out.Line(line, args...)
		return nil
	}
}
