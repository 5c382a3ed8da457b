/*
Package agents wraps each external service behind a narrow adapter the
engine can dispatch plan steps to. Adapters degrade instead of crashing:
one constructed without credentials still builds, and reports
ErrAgentNotConfigured on first use.
*/
package agents

import (
	"context"
	"time"

	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/provider"
	"github.com/theapemachine/taskflow-go/pkg/stores"
)

/*
Adapter is the free-text entry point shared by the adapters that accept a
natural-language action. The returned string is a human-readable result
suitable for the event stream.
*/
type Adapter interface {
	Kind() flow.AgentKind
	Run(ctx context.Context, action string) (string, error)
}

/*
Messenger posts to a chat channel. Run parses the free-text action itself;
Post is the structured entry point used when parsing fell through and the
provider extracted the fields instead.
*/
type Messenger interface {
	Adapter
	Post(ctx context.Context, channel, message string) (string, error)
}

/*
Scheduler inserts calendar events from structured fields.
*/
type Scheduler interface {
	Kind() flow.AgentKind
	Insert(ctx context.Context, title string, start, end time.Time) (string, error)
}

/*
Communicator reaches a person directly by phone number.
*/
type Communicator interface {
	Kind() flow.AgentKind
	SMS(ctx context.Context, recipient, message string) (string, error)
	Call(ctx context.Context, recipient, message string) (string, error)
}

/*
Simulator stands in for every agent the planner names that has no real
adapter. It runs under the step state machine like any other agent but
performs no side effect beyond a fixed delay.
*/
type Simulator interface {
	Kind() flow.AgentKind
	RunAs(ctx context.Context, tag string) (string, error)
}

/*
Config carries every credential and tunable the adapters need, injected
explicitly by the caller. Adapters never read the process environment.
*/
type Config struct {
	SlackToken     string
	Twilio         CommunicationConfig
	Calendar       CalendarConfig
	SimulatedDelay time.Duration
}

/*
Set bundles one adapter per agent kind. Build a fresh Set per run: the
knowledge corpus cache and the lazy calendar credentials are not safe to
share between concurrently executing tasks.
*/
type Set struct {
	Messaging     Messenger
	Knowledge     Adapter
	Search        Adapter
	Calendar      Scheduler
	Communication Communicator
	Simulated     Simulator
}

func NewSet(cfg Config, gateway provider.Gateway, corpus stores.Corpus) *Set {
	return &Set{
		Messaging:     NewSlackAgent(cfg.SlackToken),
		Knowledge:     NewKnowledgeAgent(gateway, corpus),
		Search:        NewSearchAgent(),
		Calendar:      NewCalendarAgent(cfg.Calendar),
		Communication: NewCommunicationAgent(cfg.Twilio),
		Simulated:     NewSimulatedAgent(cfg.SimulatedDelay),
	}
}
