package flow

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

/*
Task is one submitted prompt plus the plan derived from it. A task lives in
memory for the duration of its run and is dropped once the run finishes.
The engine mutates step statuses while HTTP handlers read them, so all
step access goes through the task's lock.
*/
type Task struct {
	ID      string
	Prompt  string
	Created time.Time

	mu    sync.RWMutex
	steps []Step
}

func NewTask(prompt string) *Task {
	return &Task{
		ID:      uuid.NewString(),
		Prompt:  prompt,
		Created: time.Now(),
	}
}

/*
SetPlan installs the steps produced by the planner. Statuses are forced to
pending so a stray planner field can never start a step mid-flight.
*/
func (task *Task) SetPlan(steps []Step) {
	task.mu.Lock()
	defer task.mu.Unlock()

	task.steps = make([]Step, len(steps))
	copy(task.steps, steps)

	for i := range task.steps {
		task.steps[i].Status = StepStatusPending
	}
}

/*
Steps returns a copy of the plan safe to hold while the run continues.
*/
func (task *Task) Steps() []Step {
	task.mu.RLock()
	defer task.mu.RUnlock()

	steps := make([]Step, len(task.steps))
	copy(steps, task.steps)
	return steps
}

/*
Step returns a copy of one step by position.
*/
func (task *Task) Step(index int) (Step, bool) {
	task.mu.RLock()
	defer task.mu.RUnlock()

	if index < 0 || index >= len(task.steps) {
		return Step{}, false
	}

	return task.steps[index], true
}

/*
Advance transitions the step at index to next and reports whether the
transition was legal.
*/
func (task *Task) Advance(index int, next StepStatus) bool {
	task.mu.Lock()
	defer task.mu.Unlock()

	if index < 0 || index >= len(task.steps) {
		return false
	}

	return task.steps[index].Advance(next)
}

/*
Snapshot is the read-only view of a task served over HTTP.
*/
type Snapshot struct {
	ID      string    `json:"id"`
	Prompt  string    `json:"prompt"`
	Steps   []Step    `json:"steps"`
	Created time.Time `json:"created"`
}

func (task *Task) Snapshot() Snapshot {
	task.mu.RLock()
	defer task.mu.RUnlock()

	steps := make([]Step, len(task.steps))
	copy(steps, task.steps)

	return Snapshot{
		ID:      task.ID,
		Prompt:  task.Prompt,
		Steps:   steps,
		Created: task.Created,
	}
}

func (task *Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(task.Snapshot())
}
