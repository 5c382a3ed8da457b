package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/theapemachine/taskflow-go/pkg/flow"
)

// DefaultSimulatedDelay approximates how long a real agent would take, so
// simulated steps read plausibly on a live stream.
const DefaultSimulatedDelay = 2 * time.Second

/*
SimulatedAgent handles every agent tag the planner invents that has no real
adapter behind it. It waits, succeeds, and never errors: a plan must not
hard-fail just because the planner named an agent we do not have.
*/
type SimulatedAgent struct {
	delay time.Duration
}

func NewSimulatedAgent(delay time.Duration) *SimulatedAgent {
	if delay <= 0 {
		delay = DefaultSimulatedDelay
	}

	return &SimulatedAgent{delay: delay}
}

func (agent *SimulatedAgent) Kind() flow.AgentKind {
	return flow.AgentSimulated
}

func (agent *SimulatedAgent) RunAs(
	ctx context.Context, tag string,
) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(agent.delay):
	}

	return fmt.Sprintf("Simulated work for agent %s finished.", tag), nil
}
