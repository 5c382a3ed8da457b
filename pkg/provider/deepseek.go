package provider

import (
	"context"
	"strings"
	"time"

	deepseek "github.com/cohesion-org/deepseek-go"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
DeepseekGateway asks the DeepSeek chat completion API.
*/
type DeepseekGateway struct {
	client  *deepseek.Client
	model   string
	timeout time.Duration
}

type DeepseekGatewayOption func(*DeepseekGateway)

func NewDeepseekGateway(options ...DeepseekGatewayOption) *DeepseekGateway {
	gateway := &DeepseekGateway{
		model:   deepseek.DeepSeekChat,
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *DeepseekGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *DeepseekGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"deepseek gateway has no API key",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	response, err := gateway.client.CreateChatCompletion(
		ctx, &deepseek.ChatCompletionRequest{
			Model: gateway.model,
			Messages: []deepseek.ChatCompletionMessage{{
				Role:    deepseek.ChatMessageRoleUser,
				Content: prompt,
			}},
		},
	)

	if err != nil {
		return "", classifyCallError(err)
	}

	if len(response.Choices) == 0 {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"deepseek completion returned no choices",
		)
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (gateway *DeepseekGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithDeepseekKey(key string) DeepseekGatewayOption {
	return func(gateway *DeepseekGateway) {
		if key == "" {
			return
		}

		gateway.client = deepseek.NewClient(key)
	}
}

func WithDeepseekModel(model string) DeepseekGatewayOption {
	return func(gateway *DeepseekGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithDeepseekTimeout(timeout time.Duration) DeepseekGatewayOption {
	return func(gateway *DeepseekGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
