package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	openrouterx "github.com/tanpawarit/tenant-assistant/pkg/openrouter"
)

const finishReasonContentFilter = "content_filter"

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
// SDK level retries are disabled; Client owns the retry policy.
type OpenAIProvider struct {
	completions chatCompletions
	model       string
	maxTokens   int
	temperature float32
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(cfg openrouterx.Config, extra ...option.RequestOption) (*OpenAIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := append([]option.RequestOption{option.WithMaxRetries(0)}, extra...)
	client, err := openrouterx.NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &OpenAIProvider{
		completions: &client.Chat.Completions,
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxCompletionToken,
		temperature: cfg.Temperature,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, entries []contractx.Entry) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(p.model),
		MaxCompletionTokens: openai.Int(int64(p.maxTokens)),
		Messages:            toOpenAIMessages(entries),
	}
	if p.temperature >= 0 {
		params.Temperature = openai.Float(float64(p.temperature))
	}

	completion, err := p.completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", contractx.ErrCompletionRejected)
	}

	choice := completion.Choices[0]
	if string(choice.FinishReason) == finishReasonContentFilter {
		return "", fmt.Errorf("%w: content filtered", contractx.ErrCompletionRejected)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", contractx.ErrCompletionRejected)
	}
	return content, nil
}

func toOpenAIMessages(entries []contractx.Entry) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case contractx.RoleUser:
			out = append(out, openai.UserMessage(e.Content))
		case contractx.RoleAssistant:
			out = append(out, openai.AssistantMessage(e.Content))
		default:
			out = append(out, openai.SystemMessage(e.Content))
		}
	}
	return out
}

// classifyOpenAIError marks client errors other than timeouts, conflicts and
// rate limits as rejections. Server and transport errors stay transient.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai transport: %w", err)
	}
	return classifyStatus("openai", apiErr.StatusCode, err)
}

func classifyStatus(source string, code int, err error) error {
	if transientStatus(code) {
		return fmt.Errorf("%s status %d: %w", source, code, err)
	}
	return fmt.Errorf("%w: %s status %d: %w", contractx.ErrCompletionRejected, source, code, err)
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
