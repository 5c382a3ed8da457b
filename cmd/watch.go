package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/taskflow-go/pkg/sse"
)

var (
	watchURLFlag string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Tail a running task server's event stream",
		Long:  longWatch,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := sse.NewClient(watchURLFlag)
			defer client.Close()

			log.Info("following event stream", "url", watchURLFlag)

			err := client.SubscribeWithContext(ctx, "", func(event *sse.Event) {
				fmt.Println(string(event.Data))
			})

			summary := client.Metrics.GetMetrics()
			log.Info("stream closed",
				"events", summary["total_events"],
				"reconnections", summary["reconnections"],
				"failedConnections", summary["failed_connections"],
			)

			// An interrupt is a clean exit, not a stream failure.
			if err != nil && ctx.Err() == nil {
				return err
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(
		&watchURLFlag,
		"url",
		"u",
		"http://localhost:3210/events",
		"URL of the event stream to follow",
	)
}

var longWatch = `
Follow the JSON event stream of a running task server, printing one event
per line. The connection survives server restarts with a few reconnection
attempts, and a stream summary is logged on exit.

Examples:
  taskflow watch
  taskflow watch --url http://localhost:8080/events
`
