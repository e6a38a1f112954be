package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	openrouterx "github.com/tanpawarit/tenant-assistant/pkg/openrouter"
)

// EinoProvider adapts an eino chat model. HTTP errors from the eino-ext openai
// model are classified by status; any other model error is transient.
type EinoProvider struct {
	chat einomodel.BaseChatModel
	opts []einomodel.Option
}

var _ Provider = (*EinoProvider)(nil)

func NewEinoProvider(chat einomodel.BaseChatModel, opts ...einomodel.Option) (*EinoProvider, error) {
	if chat == nil {
		return nil, errors.New("eino chat model is required")
	}
	return &EinoProvider{chat: chat, opts: opts}, nil
}

// NewEinoProviderFromConfig builds the eino chat model through the endpoint
// builder.
func NewEinoProviderFromConfig(ctx context.Context, builder openrouterx.LLMBuilder) (*EinoProvider, error) {
	if builder == nil {
		return nil, errors.New("llm builder is required")
	}
	chat, err := builder.New(ctx)
	if err != nil {
		return nil, err
	}
	return NewEinoProvider(chat)
}

func (p *EinoProvider) Generate(ctx context.Context, entries []contractx.Entry) (string, error) {
	msg, err := p.chat.Generate(ctx, toSchemaMessages(entries), p.opts...)
	if err != nil {
		return "", classifyEinoError(err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: eino model returned no message", contractx.ErrCompletionRejected)
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason == finishReasonContentFilter {
		return "", fmt.Errorf("%w: content filtered", contractx.ErrCompletionRejected)
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", contractx.ErrCompletionRejected)
	}
	return content, nil
}

func classifyEinoError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return classifyStatus("eino", apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus("eino", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("eino generate: %w", err)
}

func toSchemaMessages(entries []contractx.Entry) []*schema.Message {
	out := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(e.Content))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(e.Content, nil))
		default:
			out = append(out, schema.SystemMessage(e.Content))
		}
	}
	return out
}
