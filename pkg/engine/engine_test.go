package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/taskflow-go/pkg/agents"
	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/events"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/planner"
	"github.com/theapemachine/taskflow-go/pkg/provider"
)

type fakeGateway struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (gateway *fakeGateway) next() string {
	if len(gateway.replies) == 0 {
		return ""
	}

	head := gateway.replies[0]
	gateway.replies = gateway.replies[1:]
	return head
}

func (gateway *fakeGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	gateway.calls++
	gateway.prompts = append(gateway.prompts, prompt)

	if gateway.err != nil {
		return "", gateway.err
	}

	return gateway.next(), nil
}

func (gateway *fakeGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	gateway.calls++
	gateway.prompts = append(gateway.prompts, prompt)

	if gateway.err != nil {
		return gateway.err
	}

	return provider.DecodeStructured(gateway.next(), out)
}

func (gateway *fakeGateway) Available() bool {
	return true
}

type stubPlanner struct {
	steps []flow.Step
	err   error
	fast  bool
}

func (stub *stubPlanner) FastPlan(prompt string) ([]flow.Step, bool) {
	if stub.fast {
		return stub.steps, true
	}

	return nil, false
}

func (stub *stubPlanner) Build(
	ctx context.Context, prompt string,
) ([]flow.Step, error) {
	return stub.steps, stub.err
}

type scriptedAdapter struct {
	kind    flow.AgentKind
	results []string
	errs    []error
	actions []string
}

func (adapter *scriptedAdapter) Kind() flow.AgentKind {
	return adapter.kind
}

func (adapter *scriptedAdapter) Run(
	ctx context.Context, action string,
) (string, error) {
	call := len(adapter.actions)
	adapter.actions = append(adapter.actions, action)

	var result string
	var err error

	if call < len(adapter.results) {
		result = adapter.results[call]
	}

	if call < len(adapter.errs) {
		err = adapter.errs[call]
	}

	return result, err
}

type scriptedMessenger struct {
	scriptedAdapter
	postChannels []string
	postMessages []string
	postResult   string
	postErr      error
}

func (messenger *scriptedMessenger) Post(
	ctx context.Context, channel, message string,
) (string, error) {
	messenger.postChannels = append(messenger.postChannels, channel)
	messenger.postMessages = append(messenger.postMessages, message)
	return messenger.postResult, messenger.postErr
}

type scriptedScheduler struct {
	titles []string
	starts []time.Time
	ends   []time.Time
	result string
	err    error
}

func (scheduler *scriptedScheduler) Kind() flow.AgentKind {
	return flow.AgentCalendar
}

func (scheduler *scriptedScheduler) Insert(
	ctx context.Context, title string, start, end time.Time,
) (string, error) {
	scheduler.titles = append(scheduler.titles, title)
	scheduler.starts = append(scheduler.starts, start)
	scheduler.ends = append(scheduler.ends, end)
	return scheduler.result, scheduler.err
}

type scriptedCommunicator struct {
	smsTo   []string
	smsBody []string
	callTo  []string
	result  string
	err     error
}

func (communicator *scriptedCommunicator) Kind() flow.AgentKind {
	return flow.AgentCommunication
}

func (communicator *scriptedCommunicator) SMS(
	ctx context.Context, recipient, message string,
) (string, error) {
	communicator.smsTo = append(communicator.smsTo, recipient)
	communicator.smsBody = append(communicator.smsBody, message)
	return communicator.result, communicator.err
}

func (communicator *scriptedCommunicator) Call(
	ctx context.Context, recipient, message string,
) (string, error) {
	communicator.callTo = append(communicator.callTo, recipient)
	return communicator.result, communicator.err
}

type scriptedSimulator struct {
	tags []string
}

func (simulator *scriptedSimulator) Kind() flow.AgentKind {
	return flow.AgentSimulated
}

func (simulator *scriptedSimulator) RunAs(
	ctx context.Context, tag string,
) (string, error) {
	simulator.tags = append(simulator.tags, tag)
	return fmt.Sprintf("Simulated work for agent %s finished.", tag), nil
}

type fakeAdapters struct {
	messaging     *scriptedMessenger
	knowledge     *scriptedAdapter
	search        *scriptedAdapter
	calendar      *scriptedScheduler
	communication *scriptedCommunicator
	simulated     *scriptedSimulator
}

func newFakeAdapters() *fakeAdapters {
	return &fakeAdapters{
		messaging: &scriptedMessenger{
			scriptedAdapter: scriptedAdapter{kind: flow.AgentMessaging},
		},
		knowledge:     &scriptedAdapter{kind: flow.AgentKnowledge},
		search:        &scriptedAdapter{kind: flow.AgentSearch},
		calendar:      &scriptedScheduler{},
		communication: &scriptedCommunicator{},
		simulated:     &scriptedSimulator{},
	}
}

func (fakes *fakeAdapters) set() *agents.Set {
	return &agents.Set{
		Messaging:     fakes.messaging,
		Knowledge:     fakes.knowledge,
		Search:        fakes.search,
		Calendar:      fakes.calendar,
		Communication: fakes.communication,
		Simulated:     fakes.simulated,
	}
}

func buildEngine(
	builder PlanBuilder,
	fakes *fakeAdapters,
	gateway provider.Gateway,
	recorder *events.Recorder,
) *Engine {
	engine, err := New(
		WithPublisher(recorder),
		WithPlanner(builder),
		WithAgents(fakes.set()),
		WithGateway(gateway),
		WithStepDelay(0),
	)

	if err != nil {
		panic(err)
	}

	return engine
}

func planEvents(recorded []any) []flow.PlanEvent {
	var out []flow.PlanEvent

	for _, event := range recorded {
		if plan, ok := event.(flow.PlanEvent); ok {
			out = append(out, plan)
		}
	}

	return out
}

func statusEvents(recorded []any) []flow.StatusEvent {
	var out []flow.StatusEvent

	for _, event := range recorded {
		if status, ok := event.(flow.StatusEvent); ok {
			out = append(out, status)
		}
	}

	return out
}

func logEvents(recorded []any) []flow.LogEvent {
	var out []flow.LogEvent

	for _, event := range recorded {
		if line, ok := event.(flow.LogEvent); ok {
			out = append(out, line)
		}
	}

	return out
}

func statusesFor(recorded []any, action string) []flow.StepStatus {
	var out []flow.StepStatus

	for _, event := range statusEvents(recorded) {
		if event.StepAction == action {
			out = append(out, event.Status)
		}
	}

	return out
}

func TestNewEngineGuards(t *testing.T) {
	Convey("Given an engine built without collaborators", t, func() {
		_, err := New()

		Convey("Every missing dependency is reported", func() {
			So(err, ShouldNotBeNil)
			So(stderrors.Is(err, errors.ErrMissingPublisher), ShouldBeTrue)
			So(stderrors.Is(err, errors.ErrMissingPlanner), ShouldBeTrue)
			So(stderrors.Is(err, errors.ErrMissingAgents), ShouldBeTrue)
			So(stderrors.Is(err, errors.ErrMissingGateway), ShouldBeTrue)
		})
	})

	Convey("Given an engine with only a publisher", t, func() {
		_, err := New(WithPublisher(events.NewRecorder()))

		Convey("The publisher is no longer reported missing", func() {
			So(err, ShouldNotBeNil)
			So(stderrors.Is(err, errors.ErrMissingPublisher), ShouldBeFalse)
			So(stderrors.Is(err, errors.ErrMissingPlanner), ShouldBeTrue)
		})
	})
}

func TestFastPathRunsWithoutProvider(t *testing.T) {
	Convey("Given the canonical Slack prompt", t, func() {
		gateway := &fakeGateway{}
		fakes := newFakeAdapters()
		fakes.messaging.results = []string{
			"Message successfully posted to Slack channel #general.",
		}
		recorder := events.NewRecorder()

		engine := buildEngine(planner.New(gateway), fakes, gateway, recorder)

		task := flow.NewTask(
			"Post a message on #general channel in Slack saying 'Hello World'",
		)

		err := engine.Execute(context.Background(), task)
		recorded := recorder.Events()

		Convey("The run completes without a single provider call", func() {
			So(err, ShouldBeNil)
			So(gateway.calls, ShouldEqual, 0)
		})

		Convey("No planner log appears on the stream", func() {
			for _, line := range logEvents(recorded) {
				So(line.Agent, ShouldNotEqual, flow.LogAgentPlanner)
			}
		})

		Convey("The messaging adapter parsed the action deterministically", func() {
			So(fakes.messaging.actions, ShouldResemble, []string{
				`Post "Hello World" to #general`,
			})
		})

		Convey("The step completes and the run signs off", func() {
			statuses := statusesFor(recorded, `Post "Hello World" to #general`)
			So(statuses, ShouldResemble, []flow.StepStatus{
				flow.StepStatusInProgress, flow.StepStatusCompleted,
			})

			lines := logEvents(recorded)
			So(lines[len(lines)-1].Message, ShouldEqual, "Task automation completed.")
			So(lines[len(lines)-1].LogType, ShouldEqual, flow.LogSuccess)
			So(lines[len(lines)-1].Agent, ShouldEqual, flow.LogAgentSystem)
		})
	})
}

func TestPlanEventPrecedesAllStatusEvents(t *testing.T) {
	Convey("Given a three step plan", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "FilterAgent", Action: "filter the inbox"},
			{Agent: "BookingAgent", Action: "book the room"},
			{Agent: "MonitoringAgent", Action: "watch the deploy"},
		}}

		fakes := newFakeAdapters()
		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		err := engine.Execute(context.Background(), flow.NewTask("do three things"))
		recorded := recorder.Events()

		Convey("Exactly one plan event is published", func() {
			So(err, ShouldBeNil)
			So(planEvents(recorded), ShouldHaveLength, 1)
		})

		Convey("It carries every step as pending", func() {
			plan := planEvents(recorded)[0]
			So(plan.Steps, ShouldHaveLength, 3)

			for _, step := range plan.Steps {
				So(step.Status, ShouldEqual, flow.StepStatusPending)
			}
		})

		Convey("It precedes every status event", func() {
			planIndex := -1
			firstStatus := -1

			for i, event := range recorded {
				switch event.(type) {
				case flow.PlanEvent:
					planIndex = i
				case flow.StatusEvent:
					if firstStatus == -1 {
						firstStatus = i
					}
				}
			}

			So(planIndex, ShouldBeGreaterThanOrEqualTo, 0)
			So(firstStatus, ShouldBeGreaterThan, planIndex)
		})
	})
}

func TestStepFailureIsolation(t *testing.T) {
	Convey("Given a plan whose second step fails", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "KnowledgeAgent", Action: "who is our CEO?"},
			{Agent: "KnowledgeAgent", Action: "what is our address?"},
			{Agent: "KnowledgeAgent", Action: "when were we founded?"},
		}}

		fakes := newFakeAdapters()
		fakes.knowledge.results = []string{"Jane Doe", "", "2016"}
		fakes.knowledge.errs = []error{
			nil, errors.ErrAdapterCallFailed.WithMessagef("corpus exploded"), nil,
		}

		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)
		task := flow.NewTask("three questions")

		err := engine.Execute(context.Background(), task)
		recorded := recorder.Events()

		Convey("The run still succeeds end to end", func() {
			So(err, ShouldBeNil)

			lines := logEvents(recorded)
			So(lines[len(lines)-1].Message, ShouldEqual, "Task automation completed.")
		})

		Convey("Steps one and three complete, step two fails", func() {
			So(statusesFor(recorded, "who is our CEO?"), ShouldResemble,
				[]flow.StepStatus{flow.StepStatusInProgress, flow.StepStatusCompleted})
			So(statusesFor(recorded, "what is our address?"), ShouldResemble,
				[]flow.StepStatus{flow.StepStatusInProgress, flow.StepStatusFailed})
			So(statusesFor(recorded, "when were we founded?"), ShouldResemble,
				[]flow.StepStatus{flow.StepStatusInProgress, flow.StepStatusCompleted})
		})

		Convey("The failure is logged as an error on the failing agent", func() {
			var failures []flow.LogEvent

			for _, line := range logEvents(recorded) {
				if line.LogType == flow.LogError {
					failures = append(failures, line)
				}
			}

			So(failures, ShouldHaveLength, 1)
			So(failures[0].Agent, ShouldEqual, "KnowledgeAgent")
			So(failures[0].Message, ShouldStartWith, "Action failed. Error:")
			So(failures[0].Message, ShouldContainSubstring, "corpus exploded")
		})

		Convey("The task snapshot carries the terminal statuses", func() {
			steps := task.Steps()
			So(steps[0].Status, ShouldEqual, flow.StepStatusCompleted)
			So(steps[1].Status, ShouldEqual, flow.StepStatusFailed)
			So(steps[2].Status, ShouldEqual, flow.StepStatusCompleted)
		})
	})
}

func TestPlanFailureEmitsSingleErrorLog(t *testing.T) {
	Convey("Given a planner that cannot plan", t, func() {
		builder := &stubPlanner{
			err: errors.ErrProviderUnavailable.WithMessagef("no API key configured"),
		}

		fakes := newFakeAdapters()
		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		err := engine.Execute(context.Background(), flow.NewTask("do something"))
		recorded := recorder.Events()

		Convey("Execute surfaces the planning failure", func() {
			So(stderrors.Is(err, errors.ErrProviderUnavailable), ShouldBeTrue)
		})

		Convey("No plan or status events appear", func() {
			So(planEvents(recorded), ShouldBeEmpty)
			So(statusEvents(recorded), ShouldBeEmpty)
		})

		Convey("Exactly one error log appears, attributed to System", func() {
			var failures []flow.LogEvent

			for _, line := range logEvents(recorded) {
				if line.LogType == flow.LogError {
					failures = append(failures, line)
				}
			}

			So(failures, ShouldHaveLength, 1)
			So(failures[0].Agent, ShouldEqual, flow.LogAgentSystem)
			So(failures[0].Message, ShouldStartWith, "Failed to create a task plan:")
		})

		Convey("No terminal success log is emitted", func() {
			for _, line := range logEvents(recorded) {
				So(line.Message, ShouldNotEqual, "Task automation completed.")
			}
		})
	})
}

func TestContextFlowsBetweenSteps(t *testing.T) {
	Convey("Given a knowledge step followed by a dependent Slack step", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "KnowledgeAgent", Action: "who is our CEO?"},
			{Agent: "SlackAgent", Action: `Post "{knowledge_answer}" to #general`},
		}}

		fakes := newFakeAdapters()
		fakes.knowledge.results = []string{"Jane Doe"}
		fakes.messaging.results = []string{
			"Message successfully posted to Slack channel #general.",
		}

		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		err := engine.Execute(context.Background(), flow.NewTask("announce the CEO"))
		recorded := recorder.Events()

		Convey("The Slack action is interpolated before dispatch", func() {
			So(err, ShouldBeNil)
			So(fakes.messaging.actions, ShouldResemble, []string{
				`Post "Jane Doe" to #general`,
			})
		})

		Convey("Status events identify the step by its interpolated action", func() {
			So(statusesFor(recorded, `Post "Jane Doe" to #general`), ShouldResemble,
				[]flow.StepStatus{flow.StepStatusInProgress, flow.StepStatusCompleted})
		})

		Convey("The knowledge result is logged with its wrapper", func() {
			var messages []string

			for _, line := range logEvents(recorded) {
				messages = append(messages, line.Message)
			}

			So(messages, ShouldContain, "Knowledge Base Answer: Jane Doe")
		})
	})

	Convey("Given a placeholder with no context entry", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "KnowledgeAgent", Action: "summarize {search_result} please"},
		}}

		fakes := newFakeAdapters()
		fakes.knowledge.results = []string{"nothing to summarize"}

		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		err := engine.Execute(context.Background(), flow.NewTask("summarize"))

		Convey("The action passes through unmodified", func() {
			So(err, ShouldBeNil)
			So(fakes.knowledge.actions, ShouldResemble, []string{
				"summarize {search_result} please",
			})
		})
	})
}

func TestUnknownAgentRunsSimulated(t *testing.T) {
	Convey("Given a plan with an agent nobody implements", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "UserInteractionAgent", Action: "ask the user to confirm"},
		}}

		fakes := newFakeAdapters()
		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		err := engine.Execute(context.Background(), flow.NewTask("confirm"))
		recorded := recorder.Events()

		Convey("The simulated handler receives the raw tag", func() {
			So(err, ShouldBeNil)
			So(fakes.simulated.tags, ShouldResemble, []string{"UserInteractionAgent"})
		})

		Convey("The step completes rather than failing", func() {
			So(statusesFor(recorded, "ask the user to confirm"), ShouldResemble,
				[]flow.StepStatus{flow.StepStatusInProgress, flow.StepStatusCompleted})
		})

		Convey("The stream credits the raw agent tag", func() {
			var messages []string

			for _, line := range logEvents(recorded) {
				if line.Agent == "UserInteractionAgent" {
					messages = append(messages, line.Message)
				}
			}

			So(messages, ShouldContain,
				"Simulated work for agent UserInteractionAgent finished.")
		})
	})
}

func TestStatusMonotonicityAcrossStream(t *testing.T) {
	Convey("Given a mixed run with successes and a failure", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "KnowledgeAgent", Action: "question one"},
			{Agent: "KnowledgeAgent", Action: "question two"},
			{Agent: "FilterAgent", Action: "filter things"},
		}}

		fakes := newFakeAdapters()
		fakes.knowledge.results = []string{"fine", ""}
		fakes.knowledge.errs = []error{
			nil, errors.ErrAdapterCallFailed.WithMessagef("boom"),
		}

		recorder := events.NewRecorder()
		engine := buildEngine(builder, fakes, &fakeGateway{}, recorder)

		So(engine.Execute(context.Background(), flow.NewTask("mixed run")), ShouldBeNil)

		Convey("Every step advances pending to in-progress to a terminal state", func() {
			byAction := map[string][]flow.StepStatus{}

			for _, event := range statusEvents(recorder.Events()) {
				byAction[event.StepAction] = append(byAction[event.StepAction], event.Status)
			}

			So(byAction, ShouldHaveLength, 3)

			for _, statuses := range byAction {
				So(statuses, ShouldHaveLength, 2)
				So(statuses[0], ShouldEqual, flow.StepStatusInProgress)
				So(statuses[1].Terminal(), ShouldBeTrue)
			}
		})
	})
}

func TestCancellationStopsBetweenSteps(t *testing.T) {
	Convey("Given a run whose context is already cancelled", t, func() {
		builder := &stubPlanner{steps: []flow.Step{
			{Agent: "FilterAgent", Action: "never runs"},
		}}

		fakes := newFakeAdapters()
		recorder := events.NewRecorder()

		engine, buildErr := New(
			WithPublisher(recorder),
			WithPlanner(builder),
			WithAgents(fakes.set()),
			WithGateway(&fakeGateway{}),
			WithStepDelay(50*time.Millisecond),
		)
		So(buildErr, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := engine.Execute(ctx, flow.NewTask("cancelled"))
		recorded := recorder.Events()

		Convey("The run ends with the context's error", func() {
			So(stderrors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("The plan was announced but no step ever started", func() {
			So(planEvents(recorded), ShouldHaveLength, 1)
			So(statusEvents(recorded), ShouldBeEmpty)
			So(fakes.simulated.tags, ShouldBeEmpty)
		})
	})
}
