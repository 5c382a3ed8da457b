/*
Package service is the HTTP front door: it accepts task submissions,
tracks live runs, serves task snapshots, and streams engine events to
subscribers.
*/
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/taskflow-go/pkg/agents"
	"github.com/theapemachine/taskflow-go/pkg/engine"
	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/events"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/planner"
	"github.com/theapemachine/taskflow-go/pkg/provider"
	"github.com/theapemachine/taskflow-go/pkg/stores"
)

// RunnerFn executes one task end to end. The default runner builds an
// engine with a fresh adapter set; tests swap in something cheaper.
type RunnerFn func(ctx context.Context, task *flow.Task) error

/*
Manager owns the in-memory task registry and starts one run goroutine per
submitted prompt. Registry entries exist only while their run executes;
once a run returns, its task is no longer addressable.
*/
type Manager struct {
	publisher events.Publisher
	gateway   provider.Gateway
	corpus    stores.Corpus
	agentCfg  agents.Config
	stepDelay time.Duration
	runner    RunnerFn
	ingest    *agents.KnowledgeAgent

	mu    sync.Mutex
	tasks map[string]*flow.Task
}

type ManagerOptionFn func(*Manager)

func NewManager(options ...ManagerOptionFn) (*Manager, error) {
	manager := &Manager{
		stepDelay: engine.DefaultStepDelay,
		tasks:     make(map[string]*flow.Task),
	}

	for _, option := range options {
		option(manager)
	}

	missing := []any{}

	if manager.publisher == nil {
		missing = append(missing, errors.ErrMissingPublisher)
	}

	if manager.gateway == nil {
		missing = append(missing, errors.ErrMissingGateway)
	}

	if manager.corpus == nil {
		missing = append(missing, errors.ErrMissingCorpus)
	}

	if len(missing) > 0 {
		return nil, errors.NewError(missing...)
	}

	if manager.runner == nil {
		manager.runner = manager.run
	}

	manager.ingest = agents.NewKnowledgeAgent(manager.gateway, manager.corpus)
	return manager, nil
}

func WithPublisher(publisher events.Publisher) ManagerOptionFn {
	return func(manager *Manager) { manager.publisher = publisher }
}

func WithGateway(gateway provider.Gateway) ManagerOptionFn {
	return func(manager *Manager) { manager.gateway = gateway }
}

func WithCorpus(corpus stores.Corpus) ManagerOptionFn {
	return func(manager *Manager) { manager.corpus = corpus }
}

func WithAgentConfig(cfg agents.Config) ManagerOptionFn {
	return func(manager *Manager) { manager.agentCfg = cfg }
}

func WithStepDelay(delay time.Duration) ManagerOptionFn {
	return func(manager *Manager) { manager.stepDelay = delay }
}

// WithRunner replaces the engine-backed runner, so tests can submit tasks
// without touching providers or adapters.
func WithRunner(runner RunnerFn) ManagerOptionFn {
	return func(manager *Manager) { manager.runner = runner }
}

/*
Submit registers a task for prompt and starts its run in a goroutine. The
run outlives the submitting request: it is detached from the request's
cancellation but keeps its values.
*/
func (manager *Manager) Submit(
	ctx context.Context, prompt string,
) (*flow.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.ErrEmptyPrompt
	}

	task := flow.NewTask(prompt)

	manager.mu.Lock()
	manager.tasks[task.ID] = task
	manager.mu.Unlock()

	log.Info("task accepted", "task", task.ID, "prompt", prompt)

	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer manager.drop(task.ID)

		if err := manager.runner(runCtx, task); err != nil {
			log.Error("run ended early", "task", task.ID, "error", err)
		}
	}()

	return task, nil
}

/*
Task returns the live task with the given id. Finished and unknown tasks
both report false.
*/
func (manager *Manager) Task(id string) (*flow.Task, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	task, ok := manager.tasks[id]
	return task, ok
}

/*
AddKnowledge stores a document in the knowledge corpus so later runs can
answer questions from it.
*/
func (manager *Manager) AddKnowledge(name, content string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(content) == "" {
		return errors.ErrEmptyDocument
	}

	return manager.ingest.Add(name, content)
}

// run is the default runner: one engine, one fresh adapter set, one plan.
func (manager *Manager) run(ctx context.Context, task *flow.Task) error {
	eng, err := engine.New(
		engine.WithPublisher(manager.publisher),
		engine.WithPlanner(planner.New(manager.gateway)),
		engine.WithAgents(agents.NewSet(manager.agentCfg, manager.gateway, manager.corpus)),
		engine.WithGateway(manager.gateway),
		engine.WithStepDelay(manager.stepDelay),
	)

	if err != nil {
		return err
	}

	return eng.Execute(ctx, task)
}

func (manager *Manager) drop(id string) {
	manager.mu.Lock()
	delete(manager.tasks, id)
	manager.mu.Unlock()
}
