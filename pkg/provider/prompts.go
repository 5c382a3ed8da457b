package provider

import (
	"strings"
	"text/template"
)

/*
Prompt names accepted by RenderPrompt. The wording of each template is part
of the extraction contract with the provider: field names in the JSON
examples below are decoded verbatim by the engine.
*/
const (
	PromptPlanner       = "planner"
	PromptSlack         = "slack"
	PromptCalendar      = "calendar"
	PromptCommunication = "communication"
	PromptSearch        = "search"
	PromptKnowledge     = "knowledge"
)

// missingkey=error turns a forgotten template variable into a hard failure
// instead of "<no value>" leaking into a provider prompt.
var promptTemplates = template.Must(
	template.New("prompts").Option("missingkey=error").Parse(promptDefinitions),
)

/*
RenderPrompt fills the named template with vars. A missing variable is a
programming error at the call site and surfaces as an error here.
*/
func RenderPrompt(name string, vars map[string]any) (string, error) {
	builder := &strings.Builder{}

	if err := promptTemplates.ExecuteTemplate(builder, name, vars); err != nil {
		return "", err
	}

	return builder.String(), nil
}

const promptDefinitions = `
{{define "planner"}}You are an expert planning agent. Your job is to create a plan to fulfill a user's request.

Here are the available agents:
- "KnowledgeAgent": Use this agent FIRST for any questions about internal data (e.g., "who is our CEO?").
- "SearchAgent": A general web search agent for public information (e.g., "what is the weather?").
- "SlackAgent": Can post messages to a specific Slack channel.
- "CommunicationAgent": Can make phone calls or send text messages.
- "CalendarAgent": Can interact with a user's calendar.
- "FilterAgent", "BookingAgent", "MonitoringAgent", "UserInteractionAgent": Other specialized agents.

Based on the user's request, create a JSON array of steps. Respond with raw JSON only: every step is an object with an "agent" and an "action" field.

Example Request: "Announce on the #engineering Slack channel that the new server is deployed."

Example Output:
[
    { "agent": "SlackAgent", "action": "Post \"The new server is deployed.\" to #engineering" }
]

User Request: "{{.UserPrompt}}"{{end}}

{{define "slack"}}You are a data extraction tool. Extract the 'channel' and 'message' from the text.
The channel usually starts with a '#'.
The output must be a single JSON object with keys "channel" and "message".

Text: "{{.ActionText}}"

JSON Output:{{end}}

{{define "calendar"}}You are a data extraction tool. Your job is to extract event details from a given text and provide them in a JSON format.
The text describes a calendar event. Extract the 'title', 'start_time', and 'end_time'.
The current date is {{.CurrentDate}}. All relative times like "tomorrow" or "next week" should be resolved based on this date.
The output must be a single JSON object with keys "title", "start_time", and "end_time" in ISO 8601 format (YYYY-MM-DDTHH:MM:SS).
If an end time is not specified, assume the event is one hour long.

Text: "{{.ActionText}}"

JSON Output:{{end}}

{{define "communication"}}You are a data extraction tool. Your job is to extract communication task details from a given text and provide them in a JSON format.
From the text, extract the 'type' (must be "call" or "sms"), the 'recipient' (the phone number in E.164 format), and the 'message' (the content to be said or sent).

Text: "{{.ActionText}}"

JSON Output:{{end}}

{{define "search"}}You are a data extraction tool. Your job is to extract a concise web search query from a given text.
The query should be what a user would type into Google. Respond with the query only, no JSON.

Text: "{{.ActionText}}"

Search Query:{{end}}

{{define "knowledge"}}Context:
{{.Corpus}}

Question: {{.Question}}

Answer based only on the context:{{end}}
`
