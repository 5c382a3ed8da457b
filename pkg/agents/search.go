package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// NoResultsAnswer is the fixed digest for a search that found nothing.
const NoResultsAnswer = "No results."

// maxSearchResults caps the digest to a handful of entries; more than this
// only pads the context later steps interpolate from.
const maxSearchResults = 3

type searchTool interface {
	Call(ctx context.Context, input string) (string, error)
}

/*
SearchAgent runs web searches through DuckDuckGo and formats the hits as a
readable digest. Search is reported, never raised: provider failures come
back as error text in the result so a search step still completes.
*/
type SearchAgent struct {
	tool searchTool
}

func NewSearchAgent() *SearchAgent {
	agent := &SearchAgent{}

	tool, err := duckduckgo.New(maxSearchResults, duckduckgo.DefaultUserAgent)

	if err != nil {
		log.Error("failed to build search client", "error", err)
		return agent
	}

	agent.tool = tool
	return agent
}

func (agent *SearchAgent) Kind() flow.AgentKind {
	return flow.AgentSearch
}

func (agent *SearchAgent) Run(
	ctx context.Context, query string,
) (string, error) {
	if agent.tool == nil {
		return "Search error: search client unavailable", nil
	}

	result, err := agent.tool.Call(ctx, query)

	if err != nil {
		if strings.Contains(err.Error(), "no good search results") {
			return NoResultsAnswer, nil
		}

		return fmt.Sprintf("Search error: %v", err), nil
	}

	if strings.TrimSpace(result) == "" {
		return NoResultsAnswer, nil
	}

	return result, nil
}
