package errors

// Constructor guards. Returned when a component is wired without one of its
// required collaborators.
var (
	ErrMissingPublisher = &FlowError{Code: 3000, Message: "engine requires an event publisher"}
	ErrMissingPlanner   = &FlowError{Code: 3001, Message: "engine requires a planner"}
	ErrMissingAgents    = &FlowError{Code: 3002, Message: "engine requires an agent set"}
	ErrMissingGateway   = &FlowError{Code: 3003, Message: "component requires a provider gateway"}
	ErrMissingCorpus    = &FlowError{Code: 3004, Message: "knowledge agent requires a corpus store"}
)

// Input validation at the intake surfaces.
var (
	ErrEmptyPrompt   = &FlowError{Code: 3100, Message: "prompt must not be empty"}
	ErrEmptyDocument = &FlowError{Code: 3101, Message: "document name and content must not be empty"}
)
