package completion

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

const (
	BackendOpenAI = "openai"
	BackendEino   = "eino"
)

type Config struct {
	Backend string `default:"openai"`
	// MaxRetries counts retries after the first attempt.
	MaxRetries     int           `split_words:"true" default:"3"`
	Timeout        time.Duration `default:"60s"`
	AttemptTimeout time.Duration `split_words:"true" default:"20s"`
	InitialBackoff time.Duration `split_words:"true" default:"250ms"`
	MaxBackoff     time.Duration `split_words:"true" default:"4s"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", BackendOpenAI, BackendEino:
	default:
		return fmt.Errorf("%w: unknown completion backend %q", contractx.ErrValidation, c.Backend)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", contractx.ErrValidation, c.MaxRetries)
	}
	if c.Timeout < 0 || c.AttemptTimeout < 0 || c.InitialBackoff < 0 || c.MaxBackoff < 0 {
		return fmt.Errorf("%w: completion durations must be >= 0", contractx.ErrValidation)
	}
	return nil
}
