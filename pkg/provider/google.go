package provider

import (
	"context"
	"strings"
	"time"

	"github.com/theapemachine/taskflow-go/pkg/errors"
	"google.golang.org/genai"
)

/*
GoogleGateway asks the Gemini API through the google.golang.org/genai
client, the backend the original automation ran on.
*/
type GoogleGateway struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

type GoogleGatewayOption func(*GoogleGateway)

func NewGoogleGateway(options ...GoogleGatewayOption) *GoogleGateway {
	gateway := &GoogleGateway{
		model:   "gemini-2.0-flash",
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(gateway)
	}

	return gateway
}

func (gateway *GoogleGateway) Available() bool {
	return gateway.client != nil
}

func (gateway *GoogleGateway) Ask(
	ctx context.Context, prompt string,
) (string, error) {
	if !gateway.Available() {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"google gateway has no API key",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, gateway.timeout)
	defer cancel()

	resp, err := gateway.client.Models.GenerateContent(
		ctx, gateway.model, genai.Text(prompt), nil,
	)

	if err != nil {
		return "", classifyCallError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.ErrProviderUnavailable.WithMessagef(
			"google response carried no candidates",
		)
	}

	builder := &strings.Builder{}

	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String()), nil
}

func (gateway *GoogleGateway) AskJSON(
	ctx context.Context, prompt string, out any,
) error {
	raw, err := gateway.Ask(ctx, prompt)

	if err != nil {
		return err
	}

	return DecodeStructured(raw, out)
}

func WithGoogleKey(key string) GoogleGatewayOption {
	return func(gateway *GoogleGateway) {
		if key == "" {
			return
		}

		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})

		if err != nil {
			return
		}

		gateway.client = client
	}
}

func WithGoogleModel(model string) GoogleGatewayOption {
	return func(gateway *GoogleGateway) {
		if model != "" {
			gateway.model = model
		}
	}
}

func WithGoogleTimeout(timeout time.Duration) GoogleGatewayOption {
	return func(gateway *GoogleGateway) {
		if timeout > 0 {
			gateway.timeout = timeout
		}
	}
}
