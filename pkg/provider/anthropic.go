package provider

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

/*
AnthropicGateway asks the Anthropic Messages API.
*/
type AnthropicGateway struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

type AnthropicGatewayOption func(*AnthropicGateway)

func NewAnthropicGateway(options ...AnthropicGatewayOption) *AnthropicGateway {
	gateway := &AnthropicGateway{
		model:     string(anthropic.ModelClaude3_5HaikuLatest),
		maxTokens: 1024,
		timeout:   DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *AnthropicGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *AnthropicGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"anthropic gateway has no API key",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	message, err := gateway.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(gateway.model),
		MaxTokens: gateway.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	if err != nil {
		return "", classifyCallError(err)
	}

	builder := &strings.Builder{}

	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			builder.WriteString(text.Text)
		}
	}

	if builder.Len() == 0 {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"anthropic message contained no text blocks",
		)
	}

	return strings.TrimSpace(builder.String()), nil
}

func (gateway *AnthropicGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithAnthropicKey(key string) AnthropicGatewayOption {
	return func(gateway *AnthropicGateway) {
		if key == "" {
			return
		}

		client := anthropic.NewClient(option.WithAPIKey(key))
		gateway.client = &client
	}
}

func WithAnthropicModel(model string) AnthropicGatewayOption {
	return func(gateway *AnthropicGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithAnthropicTimeout(timeout time.Duration) AnthropicGatewayOption {
	return func(gateway *AnthropicGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
