/*
Package planner turns a natural-language prompt into an ordered execution
plan. Prompts with a recognized fixed shape are planned locally; everything
else goes through the reasoning provider.
*/
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/provider"
)

// fastSlackPrompt recognizes the canonical announcement prompt so the most
// common request never pays for a provider round trip.
var fastSlackPrompt = regexp.MustCompile(
	`(?i)^post a message on (#\S+) channel in slack saying '(.+)'$`,
)

/*
Planner builds executable plans from user prompts.
*/
type Planner struct {
	gateway provider.Gateway
}

func New(gateway provider.Gateway) *Planner {
	return &Planner{gateway: gateway}
}

/*
FastPlan matches prompts whose plan is fully determined by their shape and
returns it without involving the provider. The second return reports
whether the prompt was recognized.
*/
func (planner *Planner) FastPlan(prompt string) ([]flow.Step, bool) {
	match := fastSlackPrompt.FindStringSubmatch(strings.TrimSpace(prompt))

	if match == nil {
		return nil, false
	}

	return []flow.Step{{
		Agent:  string(flow.AgentMessaging),
		Action: fmt.Sprintf(`Post "%s" to %s`, match[2], match[1]),
		Status: flow.StepStatusPending,
	}}, true
}

/*
Build produces the plan for prompt. Provider failures surface with the
gateway's taxonomy; a decoded plan with no steps counts as malformed.
*/
func (planner *Planner) Build(
	ctx context.Context, prompt string,
) ([]flow.Step, error) {
	if steps, ok := planner.FastPlan(prompt); ok {
		return steps, nil
	}

	rendered, err := provider.RenderPrompt(provider.PromptPlanner, map[string]any{
		"UserPrompt": prompt,
	})

	if err != nil {
		return nil, err
	}

	var raw json.RawMessage

	if err := planner.gateway.AskJSON(ctx, rendered, &raw); err != nil {
		return nil, err
	}

	steps, err := decodeSteps(raw)

	if err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		return nil, errors.ErrMalformedPlan.WithMessagef(
			"reasoning provider returned an empty plan",
		)
	}

	for i := range steps {
		steps[i].Status = flow.StepStatusPending
	}

	return steps, nil
}

// Providers occasionally hand back the lone step object the planner prompt's
// example shows instead of a one-element array. Both decode to a plan.
func decodeSteps(raw json.RawMessage) ([]flow.Step, error) {
	var steps []flow.Step

	if err := json.Unmarshal(raw, &steps); err == nil {
		return steps, nil
	}

	var single flow.Step

	if err := json.Unmarshal(raw, &single); err == nil {
		return []flow.Step{single}, nil
	}

	return nil, errors.ErrMalformedPlan.WithMessagef(
		"plan is neither a step array nor a step object",
	).WithData(string(raw))
}
