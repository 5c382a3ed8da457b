package provider

import (
	"context"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
OpenAIGateway asks OpenAI chat completions. This is the default backend.
*/
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

type OpenAIGatewayOption func(*OpenAIGateway)

func NewOpenAIGateway(options ...OpenAIGatewayOption) *OpenAIGateway {
	gateway := &OpenAIGateway{
		model:   openai.ChatModelGPT4oMini,
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *OpenAIGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *OpenAIGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"openai gateway has no API key",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	completion, err := gateway.client.Chat.Completions.New(
		ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(gateway.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		},
	)

	if err != nil {
		return "", classifyCallError(err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"openai completion returned no choices",
		)
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func (gateway *OpenAIGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithOpenAIKey(key string) OpenAIGatewayOption {
	return func(gateway *OpenAIGateway) {
		if key == "" {
			return
		}

		client := openai.NewClient(option.WithAPIKey(key))
		gateway.client = &client
	}
}

func WithOpenAIModel(model string) OpenAIGatewayOption {
	return func(gateway *OpenAIGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithOpenAITimeout(timeout time.Duration) OpenAIGatewayOption {
	return func(gateway *OpenAIGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
