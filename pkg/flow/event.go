package flow

/*
EventType discriminates the three message shapes on the live task stream.
*/
type EventType string

const (
	EventTypePlan   EventType = "plan"
	EventTypeStatus EventType = "status_update"
	EventTypeLog    EventType = "log"
)

/*
LogType is the severity tag carried by log events.
*/
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
)

// Log agents that are not plan steps.
const (
	LogAgentSystem  = "System"
	LogAgentPlanner = "Planner"
)

/*
PlanEvent announces the full plan once, before any step starts. Every step
in it is still pending.
*/
type PlanEvent struct {
	Type  EventType `json:"type"`
	Steps []Step    `json:"steps"`
}

/*
StatusEvent is sent whenever a single step changes status. Steps are
identified by their action text.
*/
type StatusEvent struct {
	Type       EventType  `json:"type"`
	StepAction string     `json:"step_action"`
	Status     StepStatus `json:"status"`
}

/*
LogEvent is a human-readable progress line attributed to an agent.
*/
type LogEvent struct {
	Type    EventType `json:"type"`
	Agent   string    `json:"agent"`
	Message string    `json:"message"`
	LogType LogType   `json:"log_type"`
}

func NewPlanEvent(steps []Step) PlanEvent {
	return PlanEvent{Type: EventTypePlan, Steps: steps}
}

func NewStatusEvent(stepAction string, status StepStatus) StatusEvent {
	return StatusEvent{Type: EventTypeStatus, StepAction: stepAction, Status: status}
}

func NewLogEvent(agent, message string, logType LogType) LogEvent {
	return LogEvent{Type: EventTypeLog, Agent: agent, Message: message, LogType: logType}
}
