package agents

import (
	"context"
	"fmt"
	"regexp"

	"github.com/slack-go/slack"
	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/flow"
)

// The two action shapes the planner is instructed to produce. Anything else
// is handed back as ErrActionUnparseable so the caller can fall through to
// provider extraction.
var (
	sentenceForm = regexp.MustCompile(`(?i)^post\s+"(.+)"\s+to\s+(#\S+)$`)
	callForm     = regexp.MustCompile(`(?i)^post_message\(channel='(#[^']+)'\s*,\s*message='([^']*)'\)$`)
)

/*
SlackAgent posts plan-step messages to Slack channels.
*/
type SlackAgent struct {
	client *slack.Client
}

func NewSlackAgent(token string) *SlackAgent {
	agent := &SlackAgent{}

	if token != "" {
		agent.client = slack.New(token)
	}

	return agent
}

func (agent *SlackAgent) Kind() flow.AgentKind {
	return flow.AgentMessaging
}

/*
Run parses the free-text action into a channel and message and posts it.
The configuration check comes first: an unconfigured agent fails before any
parsing or network work.
*/
func (agent *SlackAgent) Run(ctx context.Context, action string) (string, error) {
	if agent.client == nil {
		return "", errors.ErrAgentNotConfigured.WithMessagef(
			"messaging agent has no Slack bot token",
		)
	}

	channel, message, err := parseMessagingAction(action)

	if err != nil {
		return "", err
	}

	return agent.Post(ctx, channel, message)
}

/*
Post sends message to channel and reports the outcome in a form fit for the
event stream.
*/
func (agent *SlackAgent) Post(
	ctx context.Context, channel, message string,
) (string, error) {
	if agent.client == nil {
		return "", errors.ErrAgentNotConfigured.WithMessagef(
			"messaging agent has no Slack bot token",
		)
	}

	if _, _, err := agent.client.PostMessageContext(
		ctx, channel, slack.MsgOptionText(message, false),
	); err != nil {
		return "", errors.ErrAdapterCallFailed.Wrap(err)
	}

	return fmt.Sprintf(
		"Message successfully posted to Slack channel %s.", channel,
	), nil
}

func parseMessagingAction(action string) (channel, message string, err error) {
	if match := sentenceForm.FindStringSubmatch(action); match != nil {
		return match[2], match[1], nil
	}

	if match := callForm.FindStringSubmatch(action); match != nil {
		return match[1], match[2], nil
	}

	return "", "", errors.ErrActionUnparseable.WithMessagef(
		"messaging action %q matches no accepted shape", action,
	)
}
