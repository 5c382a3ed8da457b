package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/taskflow-go/pkg/agents"
	"github.com/theapemachine/taskflow-go/pkg/engine"
	"github.com/theapemachine/taskflow-go/pkg/events"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/planner"
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Execute a single prompt and stream its events to stdout",
	Long:  longRun,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := gatewayFromConfig()
		if err != nil {
			return err
		}

		corpus, err := corpusFromConfig()
		if err != nil {
			return err
		}

		options := []engine.OptionFn{
			engine.WithPublisher(events.NewWriter(os.Stdout)),
			engine.WithPlanner(planner.New(gateway)),
			engine.WithAgents(agents.NewSet(agentConfig(), gateway, corpus)),
			engine.WithGateway(gateway),
		}

		if delay := viper.GetDuration("engine.step_delay"); delay > 0 {
			options = append(options, engine.WithStepDelay(delay))
		}

		runner, err := engine.New(options...)
		if err != nil {
			return err
		}

		task := flow.NewTask(args[0])
		log.Debug("running task", "id", task.ID)

		return runner.Execute(cmd.Context(), task)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

var longRun = `
Run one prompt to completion without starting a server.

Every event the run produces is written to stdout as one JSON object per
line, in the same shape the server publishes on /events.

Examples:
  taskflow run "Post a message on #general channel in Slack saying 'hello'"
`
