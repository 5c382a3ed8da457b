package agents

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"github.com/theapemachine/taskflow-go/pkg/provider"
	"github.com/theapemachine/taskflow-go/pkg/stores"
)

const (
	// EmptyCorpusAnswer is returned verbatim when nothing has been ingested
	// yet. An empty knowledge base is an answer, not a failure.
	EmptyCorpusAnswer = "Knowledge base is empty."

	// notConfiguredPrefix marks the degraded answer produced without a
	// reasoning provider: the caller gets the full prompt back instead.
	notConfiguredPrefix = "(provider not configured) "
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps any document name onto a safe storage key.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

/*
KnowledgeAgent answers questions strictly from the locally ingested corpus.
It holds the loaded corpus in memory and refreshes it whenever a document
is added, so a question asked right after Add sees the new material.
*/
type KnowledgeAgent struct {
	gateway provider.Gateway
	corpus  stores.Corpus

	mu     sync.Mutex
	loaded string
}

func NewKnowledgeAgent(
	gateway provider.Gateway, corpus stores.Corpus,
) *KnowledgeAgent {
	agent := &KnowledgeAgent{gateway: gateway, corpus: corpus}

	if err := agent.reload(); err != nil {
		log.Error("failed to load knowledge corpus", "error", err)
	}

	return agent
}

func (agent *KnowledgeAgent) Kind() flow.AgentKind {
	return flow.AgentKnowledge
}

/*
Run treats the action text as the question. With an empty corpus it answers
the fixed sentinel without touching the provider; without a provider it
returns the rendered prompt behind a not-configured notice. Both are
degraded successes, not errors.
*/
func (agent *KnowledgeAgent) Run(
	ctx context.Context, action string,
) (string, error) {
	corpusText := agent.snapshot()

	if strings.TrimSpace(corpusText) == "" {
		return EmptyCorpusAnswer, nil
	}

	prompt, err := provider.RenderPrompt(provider.PromptKnowledge, map[string]any{
		"Corpus":   corpusText,
		"Question": action,
	})

	if err != nil {
		return "", err
	}

	if !agent.gateway.Available() {
		return notConfiguredPrefix + prompt, nil
	}

	return agent.gateway.Ask(ctx, prompt)
}

/*
Add sanitizes name, persists content under it and refreshes the in-memory
corpus before returning, so the next Run observes the document.
*/
func (agent *KnowledgeAgent) Add(name, content string) error {
	if agent.corpus == nil {
		return errors.ErrMissingCorpus
	}

	if err := agent.corpus.Put(SanitizeName(name), content); err != nil {
		return err
	}

	return agent.reload()
}

func (agent *KnowledgeAgent) reload() error {
	if agent.corpus == nil {
		return nil
	}

	loaded, err := agent.corpus.LoadAll()

	if err != nil {
		return err
	}

	agent.mu.Lock()
	agent.loaded = loaded
	agent.mu.Unlock()

	return nil
}

func (agent *KnowledgeAgent) snapshot() string {
	agent.mu.Lock()
	defer agent.mu.Unlock()

	return agent.loaded
}
