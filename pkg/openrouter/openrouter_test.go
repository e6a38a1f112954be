package openrouter

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	ok := Config{APIKey: "k", Model: "m", MaxCompletionToken: 150}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	noKey := ok
	noKey.APIKey = "  "
	if err := noKey.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() error = %v, want ErrMissingAPIKey", err)
	}

	noTokens := ok
	noTokens.MaxCompletionToken = 0
	if err := noTokens.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want max token error")
	}
}

func TestConfigNewBuildsChatModel(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		BaseURL:            "http://127.0.0.1:1/v1/",
		APIKey:             "k",
		Model:              "m",
		MaxCompletionToken: 150,
		Temperature:        0.2,
	}
	m, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m == nil {
		t.Fatal("New() returned nil model")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("NewClient() error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := NewClient(Config{APIKey: "k", BaseURL: "https://openrouter.ai/api/v1"}); err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
}
