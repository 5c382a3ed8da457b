/*
Package engine walks an execution plan step by step, dispatching each step
to the adapter its agent tag resolves to and publishing every state change
as an event. One Engine executes one run; steps are strictly sequential.
*/
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/taskflow-go/pkg/agents"
	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/events"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/provider"
)

// DefaultStepDelay paces the run so a UI following the stream can render
// each transition.
const DefaultStepDelay = time.Second

/*
PlanBuilder abstracts the planner so runs can be driven by anything that
produces steps.
*/
type PlanBuilder interface {
	FastPlan(prompt string) ([]flow.Step, bool)
	Build(ctx context.Context, prompt string) ([]flow.Step, error)
}

/*
Engine owns a single run: it plans the prompt, executes the steps in
order, and reports progress through its publisher. A failing step never
stops the run; the remaining steps still execute.
*/
type Engine struct {
	publisher events.Publisher
	planner   PlanBuilder
	agents    *agents.Set
	gateway   provider.Gateway
	stepDelay time.Duration
	now       func() time.Time
}

type OptionFn func(*Engine)

func New(options ...OptionFn) (*Engine, error) {
	engine := &Engine{
		stepDelay: DefaultStepDelay,
		now:       time.Now,
	}

	for _, option := range options {
		option(engine)
	}

	missing := []any{}

	if engine.publisher == nil {
		missing = append(missing, errors.ErrMissingPublisher)
	}

	if engine.planner == nil {
		missing = append(missing, errors.ErrMissingPlanner)
	}

	if engine.agents == nil {
		missing = append(missing, errors.ErrMissingAgents)
	}

	if engine.gateway == nil {
		missing = append(missing, errors.ErrMissingGateway)
	}

	if len(missing) > 0 {
		return nil, errors.NewError(missing...)
	}

	return engine, nil
}

func WithPublisher(publisher events.Publisher) OptionFn {
	return func(engine *Engine) { engine.publisher = publisher }
}

func WithPlanner(planner PlanBuilder) OptionFn {
	return func(engine *Engine) { engine.planner = planner }
}

func WithAgents(set *agents.Set) OptionFn {
	return func(engine *Engine) { engine.agents = set }
}

func WithGateway(gateway provider.Gateway) OptionFn {
	return func(engine *Engine) { engine.gateway = gateway }
}

func WithStepDelay(delay time.Duration) OptionFn {
	return func(engine *Engine) { engine.stepDelay = delay }
}

// WithNow fixes the engine's clock, which otherwise only feeds the current
// date into calendar extraction.
func WithNow(now func() time.Time) OptionFn {
	return func(engine *Engine) { engine.now = now }
}

/*
Execute plans the task's prompt and runs every step in order. The returned
error is non-nil only when no plan could be built or the context ended the
run early; individual step failures are reported on the stream and do not
fail the run.
*/
func (engine *Engine) Execute(ctx context.Context, task *flow.Task) error {
	steps, err := engine.plan(ctx, task.Prompt)

	if err != nil {
		log.Error("planning failed", "task", task.ID, "error", err)

		engine.publisher.Publish(flow.NewLogEvent(
			flow.LogAgentSystem,
			fmt.Sprintf("Failed to create a task plan: %v", err),
			flow.LogError,
		))

		return err
	}

	task.SetPlan(steps)
	engine.publisher.Publish(flow.NewPlanEvent(task.Steps()))

	runCtx := flow.Context{}

	for index, step := range task.Steps() {
		if err := engine.pause(ctx); err != nil {
			return err
		}

		engine.executeStep(ctx, task, index, step, runCtx)
	}

	engine.publisher.Publish(flow.NewLogEvent(
		flow.LogAgentSystem, "Task automation completed.", flow.LogSuccess,
	))

	return nil
}

func (engine *Engine) plan(
	ctx context.Context, prompt string,
) ([]flow.Step, error) {
	if steps, ok := engine.planner.FastPlan(prompt); ok {
		return steps, nil
	}

	engine.publisher.Publish(flow.NewLogEvent(
		flow.LogAgentPlanner,
		"Contacting reasoning provider to create an execution plan...",
		flow.LogInfo,
	))

	return engine.planner.Build(ctx, prompt)
}

func (engine *Engine) executeStep(
	ctx context.Context,
	task *flow.Task,
	index int,
	step flow.Step,
	runCtx flow.Context,
) {
	action := runCtx.Interpolate(step.Action)

	task.Advance(index, flow.StepStatusInProgress)
	engine.publisher.Publish(flow.NewStatusEvent(action, flow.StepStatusInProgress))
	engine.publisher.Publish(flow.NewLogEvent(
		step.Agent, fmt.Sprintf("Starting: %s...", action), flow.LogInfo,
	))

	result, err := engine.dispatch(ctx, step, action, runCtx)

	if err != nil {
		log.Error("step failed", "task", task.ID, "agent", step.Agent, "error", err)

		task.Advance(index, flow.StepStatusFailed)
		engine.publisher.Publish(flow.NewStatusEvent(action, flow.StepStatusFailed))
		engine.publisher.Publish(flow.NewLogEvent(
			step.Agent, fmt.Sprintf("Action failed. Error: %v", err), flow.LogError,
		))

		return
	}

	task.Advance(index, flow.StepStatusCompleted)
	engine.publisher.Publish(flow.NewStatusEvent(action, flow.StepStatusCompleted))
	engine.publisher.Publish(flow.NewLogEvent(step.Agent, result, flow.LogInfo))
}

func (engine *Engine) dispatch(
	ctx context.Context,
	step flow.Step,
	action string,
	runCtx flow.Context,
) (string, error) {
	switch step.Kind() {
	case flow.AgentMessaging:
		return engine.runMessaging(ctx, action, runCtx)
	case flow.AgentKnowledge:
		return engine.runKnowledge(ctx, action, runCtx)
	case flow.AgentSearch:
		return engine.runSearch(ctx, action, runCtx)
	case flow.AgentCalendar:
		return engine.runCalendar(ctx, action)
	case flow.AgentCommunication:
		return engine.runCommunication(ctx, action, runCtx)
	}

	return engine.agents.Simulated.RunAs(ctx, step.Agent)
}

// runMessaging tries the deterministic parse first and only pays for a
// provider extraction when the action text fits neither accepted shape.
func (engine *Engine) runMessaging(
	ctx context.Context, action string, runCtx flow.Context,
) (string, error) {
	result, err := engine.agents.Messaging.Run(ctx, action)

	if !stderrors.Is(err, errors.ErrActionUnparseable) {
		return result, err
	}

	rendered, err := provider.RenderPrompt(provider.PromptSlack, map[string]any{
		"ActionText": action,
	})

	if err != nil {
		return "", err
	}

	var details struct {
		Channel string `json:"channel"`
		Message string `json:"message"`
	}

	if err := engine.gateway.AskJSON(ctx, rendered, &details); err != nil {
		return "", err
	}

	return engine.agents.Messaging.Post(
		ctx, details.Channel, runCtx.Interpolate(details.Message),
	)
}

func (engine *Engine) runKnowledge(
	ctx context.Context, action string, runCtx flow.Context,
) (string, error) {
	answer, err := engine.agents.Knowledge.Run(ctx, action)

	if err != nil {
		return "", err
	}

	runCtx[flow.ContextKnowledgeAnswer] = answer
	return fmt.Sprintf("Knowledge Base Answer: %s", answer), nil
}

func (engine *Engine) runSearch(
	ctx context.Context, action string, runCtx flow.Context,
) (string, error) {
	rendered, err := provider.RenderPrompt(provider.PromptSearch, map[string]any{
		"ActionText": action,
	})

	if err != nil {
		return "", err
	}

	query, err := engine.gateway.Ask(ctx, rendered)

	if err != nil {
		return "", err
	}

	query = strings.TrimSpace(query)
	digest, err := engine.agents.Search.Run(ctx, query)

	if err != nil {
		return "", err
	}

	runCtx[flow.ContextSearchResult] = digest
	return fmt.Sprintf("Search for '%s' found: %s", query, digest), nil
}

func (engine *Engine) runCalendar(
	ctx context.Context, action string,
) (string, error) {
	rendered, err := provider.RenderPrompt(provider.PromptCalendar, map[string]any{
		"ActionText":  action,
		"CurrentDate": engine.now().Format("Monday, 2006-01-02"),
	})

	if err != nil {
		return "", err
	}

	var details struct {
		Title     string `json:"title"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}

	if err := engine.gateway.AskJSON(ctx, rendered, &details); err != nil {
		return "", err
	}

	start, err := parseEventTime(details.StartTime)

	if err != nil {
		return "", errors.ErrActionUnparseable.WithMessagef(
			"calendar start time %q: %v", details.StartTime, err,
		)
	}

	end := start.Add(time.Hour)

	if strings.TrimSpace(details.EndTime) != "" {
		if end, err = parseEventTime(details.EndTime); err != nil {
			return "", errors.ErrActionUnparseable.WithMessagef(
				"calendar end time %q: %v", details.EndTime, err,
			)
		}
	}

	return engine.agents.Calendar.Insert(ctx, details.Title, start, end)
}

func (engine *Engine) runCommunication(
	ctx context.Context, action string, runCtx flow.Context,
) (string, error) {
	rendered, err := provider.RenderPrompt(provider.PromptCommunication, map[string]any{
		"ActionText": action,
	})

	if err != nil {
		return "", err
	}

	var details struct {
		Type      string `json:"type"`
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}

	if err := engine.gateway.AskJSON(ctx, rendered, &details); err != nil {
		return "", err
	}

	message := runCtx.Interpolate(details.Message)

	switch strings.ToLower(strings.TrimSpace(details.Type)) {
	case "sms":
		return engine.agents.Communication.SMS(ctx, details.Recipient, message)
	case "call":
		return engine.agents.Communication.Call(ctx, details.Recipient, message)
	}

	return "", errors.ErrActionUnparseable.WithMessagef(
		"communication type %q is neither call nor sms", details.Type,
	)
}

func (engine *Engine) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if engine.stepDelay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(engine.stepDelay):
		return nil
	}
}

// Extractions promise ISO 8601 but the zone designator only sometimes
// shows up; zoneless times are read as local.
var eventTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func parseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	var lastErr error

	for _, layout := range eventTimeLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.Local)

		if err == nil {
			return parsed, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}
