package provider

import (
	"context"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
CohereGateway asks the Cohere chat API.
*/
type CohereGateway struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
}

type CohereGatewayOption func(*CohereGateway)

func NewCohereGateway(options ...CohereGatewayOption) *CohereGateway {
	gateway := &CohereGateway{
		model:   "command-r",
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *CohereGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *CohereGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"cohere gateway has no API key",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	response, err := gateway.client.Chat(ctx, &cohere.ChatRequest{
		Model:   &gateway.model,
		Message: prompt,
	})

	if err != nil {
		return "", classifyCallError(err)
	}

	return strings.TrimSpace(response.GetText()), nil
}

func (gateway *CohereGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithCohereKey(key string) CohereGatewayOption {
	return func(gateway *CohereGateway) {
		if key == "" {
			return
		}

		gateway.client = cohereclient.NewClient(cohereclient.WithToken(key))
	}
}

func WithCohereModel(model string) CohereGatewayOption {
	return func(gateway *CohereGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithCohereTimeout(timeout time.Duration) CohereGatewayOption {
	return func(gateway *CohereGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
