package provider

import (
	"context"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
OllamaGateway asks a local Ollama instance. It is the only keyless backend,
so it stays available whenever an Ollama host can be resolved from the
environment.
*/
type OllamaGateway struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

type OllamaGatewayOption func(*OllamaGateway)

func NewOllamaGateway(options ...OllamaGatewayOption) *OllamaGateway {
	gateway := &OllamaGateway{
		model:   "llama3.2",
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *OllamaGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *OllamaGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"ollama gateway has no reachable host",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	builder := &strings.Builder{}
	stream := false

	err := gateway.client.Chat(ctx, &api.ChatRequest{
		Model: gateway.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: prompt,
		}},
		Stream: &stream,
	}, func(response api.ChatResponse) error {
		builder.WriteString(response.Message.Content)
		return nil
	})

	if err != nil {
		return "", classifyCallError(err)
	}

	return strings.TrimSpace(builder.String()), nil
}

func (gateway *OllamaGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithOllamaClientFromEnvironment() OllamaGatewayOption {
	return func(gateway *OllamaGateway) {
		client, err := api.ClientFromEnvironment()

		if err != nil {
			return
		}

		gateway.client = client
	}
}

func WithOllamaModel(model string) OllamaGatewayOption {
	return func(gateway *OllamaGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithOllamaTimeout(timeout time.Duration) OllamaGatewayOption {
	return func(gateway *OllamaGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
