package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

/*
CommunicationConfig carries the Twilio account material. All three fields
are required; the agent degrades to unconfigured when any is missing.
*/
type CommunicationConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

/*
CommunicationAgent sends SMS messages and places voice calls through
Twilio.
*/
type CommunicationAgent struct {
	client *twilio.RestClient
	from   string
}

func NewCommunicationAgent(cfg CommunicationConfig) *CommunicationAgent {
	agent := &CommunicationAgent{from: cfg.FromNumber}

	if cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != "" {
		agent.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}

	return agent
}

func (agent *CommunicationAgent) Kind() flow.AgentKind {
	return flow.AgentCommunication
}

func (agent *CommunicationAgent) SMS(
	ctx context.Context, recipient, message string,
) (string, error) {
	if err := agent.ready(ctx); err != nil {
		return "", err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(agent.from)
	params.SetBody(message)

	response, err := agent.client.Api.CreateMessage(params)

	if err != nil {
		return "", errors.ErrAdapterCallFailed.Wrap(err)
	}

	return fmt.Sprintf(
		"SMS to %s sent successfully. SID: %s", recipient, sid(response.Sid),
	), nil
}

func (agent *CommunicationAgent) Call(
	ctx context.Context, recipient, message string,
) (string, error) {
	if err := agent.ready(ctx); err != nil {
		return "", err
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(recipient)
	params.SetFrom(agent.from)
	params.SetTwiml(fmt.Sprintf(
		"<Response><Say>%s</Say></Response>", escapeXML(message),
	))

	response, err := agent.client.Api.CreateCall(params)

	if err != nil {
		return "", errors.ErrAdapterCallFailed.Wrap(err)
	}

	return fmt.Sprintf(
		"Call to %s initiated. SID: %s", recipient, sid(response.Sid),
	), nil
}

// ready gates every provider call: credentials first, then cancellation,
// because the Twilio client itself is not context-aware.
func (agent *CommunicationAgent) ready(ctx context.Context) error {
	if agent.client == nil {
		return errors.ErrAgentNotConfigured.WithMessagef(
			"communication agent has no Twilio credentials",
		)
	}

	return ctx.Err()
}

func sid(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;",
)

func escapeXML(text string) string {
	return xmlEscaper.Replace(text)
}
