package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/taskflow-go/pkg/service"
	"github.com/theapemachine/taskflow-go/pkg/service/sse"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the task automation server",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, err := gatewayFromConfig()
			if err != nil {
				return err
			}

			corpus, err := corpusFromConfig()
			if err != nil {
				return err
			}

			broker := sse.NewBroker()
			defer broker.Close()

			options := []service.ManagerOptionFn{
				service.WithPublisher(broker),
				service.WithGateway(gateway),
				service.WithCorpus(corpus),
				service.WithAgentConfig(agentConfig()),
			}

			if delay := viper.GetDuration("engine.step_delay"); delay > 0 {
				options = append(options, service.WithStepDelay(delay))
			}

			manager, err := service.NewManager(options...)
			if err != nil {
				return err
			}

			srv := service.NewApp(manager, broker)
			addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)

			log.Info("starting task server",
				"addr", addr,
				"provider", viper.GetString("provider.backend"),
				"providerReady", gateway.Available(),
			)

			return srv.Start(addr)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

var longServe = `
Serve the task automation API.

The server accepts prompts on POST /api/tasks, runs each one as a planned
sequence of agent steps, and streams progress to every client following
GET /events.

Examples:
  # Serve on the default port
  taskflow serve

  # Serve on a custom host and port
  taskflow serve --host 127.0.0.1 --port 8080
`
