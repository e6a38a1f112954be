package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

// Provider produces one reply for an ordered list of entries. Implementations
// wrap well-formed refusals with contract.ErrCompletionRejected; every other
// error is treated as transient.
type Provider interface {
	Generate(ctx context.Context, entries []contractx.Entry) (string, error)
}

// Client calls a Provider under a retry and timeout discipline.
type Client struct {
	provider Provider
	cfg      Config
}

var _ contractx.Completer = (*Client)(nil)

func NewClient(provider Provider, cfg Config) (*Client, error) {
	if provider == nil {
		return nil, errors.New("completion provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{provider: provider, cfg: cfg}, nil
}

// Complete returns a non-empty reply or one of ErrCompletionTimeout,
// ErrCompletionRejected or ErrCompletionUnavailable.
func (c *Client) Complete(ctx context.Context, ic contractx.InstructionContext) (string, error) {
	if _, ok := ic.UserMessage(); !ok {
		return "", fmt.Errorf("%w: instruction context must end with a user entry", contractx.ErrValidation)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	logger := zerolog.Ctx(ctx)

	attempts := 0
	reply, err := backoff.Retry(ctx, func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", backoff.Permanent(err)
		}
		attempts++
		return c.attempt(ctx, ic.Entries)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().
				Err(err).
				Int("attempt", attempts).
				Dur("next_in", next).
				Msg("completion attempt failed, retrying")
		}),
	)
	if err == nil {
		return reply, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w: after %d attempts: %w", contractx.ErrCompletionTimeout, attempts, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return "", fmt.Errorf("completion canceled: %w", ctx.Err())
	case errors.Is(err, contractx.ErrCompletionRejected):
		return "", err
	default:
		return "", fmt.Errorf("%w: after %d attempts: %w", contractx.ErrCompletionUnavailable, attempts, err)
	}
}

func (c *Client) attempt(ctx context.Context, entries []contractx.Entry) (string, error) {
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	text, err := c.provider.Generate(ctx, entries)
	if err != nil {
		if errors.Is(err, contractx.ErrCompletionRejected) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: empty reply", contractx.ErrCompletionRejected))
	}
	return text, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	return b
}
