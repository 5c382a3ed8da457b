package provider

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
Gateway is the single choke point for every reasoning-provider call the
engine makes: plan generation, per-step argument extraction, and knowledge
answers all go through here. One attempt per call, no retries; every call
carries the gateway's wall-clock budget.
*/
type Gateway interface {
	// Ask sends one prompt and returns the provider's raw text reply.
	Ask(ctx context.Context, prompt string) (string, error)

	// AskJSON sends one prompt, strips any Markdown code fences from the
	// reply and decodes it into out.
	AskJSON(ctx context.Context, prompt string, out any) error

	// Available reports whether the gateway was constructed with working
	// credentials. Adapters use it to pick their degraded paths without
	// paying for a failed call.
	Available() bool
}

/*
Config selects and parameterises a concrete gateway. Backend names the
provider; everything else is optional and falls back to the provider's
default.
*/
type Config struct {
	Backend string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

/*
New builds the gateway the config names. An unknown backend is a
configuration error, not a degraded mode.
*/
func New(cfg Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "openai":
		return NewOpenAIGateway(
			WithOpenAIKey(cfg.APIKey),
			WithOpenAIModel(cfg.Model),
			WithOpenAITimeout(cfg.Timeout),
		), nil
	case "anthropic":
		return NewAnthropicGateway(
			WithAnthropicKey(cfg.APIKey),
			WithAnthropicModel(cfg.Model),
			WithAnthropicTimeout(cfg.Timeout),
		), nil
	case "google", "gemini":
		return NewGoogleGateway(
			WithGoogleKey(cfg.APIKey),
			WithGoogleModel(cfg.Model),
			WithGoogleTimeout(cfg.Timeout),
		), nil
	case "cohere":
		return NewCohereGateway(
			WithCohereKey(cfg.APIKey),
			WithCohereModel(cfg.Model),
			WithCohereTimeout(cfg.Timeout),
		), nil
	case "deepseek":
		return NewDeepseekGateway(
			WithDeepseekKey(cfg.APIKey),
			WithDeepseekModel(cfg.Model),
			WithDeepseekTimeout(cfg.Timeout),
		), nil
	case "ollama":
		return NewOllamaGateway(
			WithOllamaClientFromEnvironment(),
			WithOllamaModel(cfg.Model),
			WithOllamaTimeout(cfg.Timeout),
		), nil
	}

	return nil, errors.ErrProviderUnavailable.WithMessagef(
		"unknown provider backend %q", cfg.Backend,
	)
}

// Providers wrap structured replies in Markdown fences more often than not.
var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?[ \t]*```$")
)

/*
StripFences removes a leading and trailing Markdown code fence (with an
optional, case-insensitive json tag) from a provider reply. Text without
fences passes through trimmed.
*/
func StripFences(raw string) string {
	out := strings.TrimSpace(raw)
	out = fenceOpen.ReplaceAllString(out, "")
	out = fenceClose.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

/*
DecodeStructured strips fences from raw and unmarshals the remainder into
out. Decode failures carry the offending raw reply for diagnostics.
*/
func DecodeStructured(raw string, out any) error {
	if err := json.Unmarshal([]byte(StripFences(raw)), out); err != nil {
		return errors.ErrMalformedPlan.Wrap(err).WithData(raw)
	}

	return nil
}

/*
classifyCallError folds a failed provider call into the gateway taxonomy:
hitting the per-call deadline is a timeout, everything else means the
provider is unreachable or rejecting us.
*/
func classifyCallError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrProviderTimeout.Wrap(err)
	}

	return errors.ErrProviderUnavailable.Wrap(err)
}
