package flow

import "strings"

/*
AgentKind is the typed dispatch key for a plan step. The planner may tag a
step with any agent name it likes; ParseAgentKind maps the known tags and
their legacy aliases onto the real adapters and routes everything else to
the simulated handler. The raw tag is never rewritten, it travels verbatim
through every event.
*/
type AgentKind string

const (
	AgentMessaging     AgentKind = "Messaging"
	AgentKnowledge     AgentKind = "Knowledge"
	AgentSearch        AgentKind = "Search"
	AgentCalendar      AgentKind = "Calendar"
	AgentCommunication AgentKind = "Communication"
	AgentSimulated     AgentKind = "Simulated"
)

// Older planner prompts tagged steps with *Agent names, so both spellings
// resolve to the same adapter.
var agentAliases = map[string]AgentKind{
	"messaging":     AgentMessaging,
	"slack":         AgentMessaging,
	"knowledge":     AgentKnowledge,
	"search":        AgentSearch,
	"calendar":      AgentCalendar,
	"event":         AgentCalendar,
	"communication": AgentCommunication,
	"twilio":        AgentCommunication,
}

func ParseAgentKind(tag string) AgentKind {
	key := strings.ToLower(strings.TrimSpace(tag))
	key = strings.TrimSpace(strings.TrimSuffix(key, "agent"))

	if kind, ok := agentAliases[key]; ok {
		return kind
	}

	return AgentSimulated
}

/*
Step is one unit of work in an execution plan.
*/
type Step struct {
	Agent  string     `json:"agent"`
	Action string     `json:"action"`
	Status StepStatus `json:"status"`
}

func (step *Step) Kind() AgentKind {
	return ParseAgentKind(step.Agent)
}

/*
Advance moves the step to next when the transition is legal and reports
whether it happened.
*/
func (step *Step) Advance(next StepStatus) bool {
	if !step.Status.CanAdvance(next) {
		return false
	}

	step.Status = next
	return true
}
