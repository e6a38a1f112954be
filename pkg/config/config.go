package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var exportMu sync.Mutex

type options struct {
	envFile  string
	optional bool
}

type Option func(*options)

// WithEnvFile loads the given env file instead of the default ".env".
// An explicit file must exist.
func WithEnvFile(path string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			o.envFile = trimmed
			o.optional = false
		}
	}
}

// WithoutEnvFile skips env file loading and reads the process environment only.
func WithoutEnvFile() Option {
	return func(o *options) {
		o.envFile = ""
	}
}

func MustNew[T any](prefix string, opts ...Option) *T {
	conf, err := New[T](prefix, opts...)
	if err != nil {
		panic(err)
	}
	return conf
}

// New exports the env file (if any) into the process environment and then
// fills T from variables named PREFIX_FIELD.
func New[T any](prefix string, opts ...Option) (*T, error) {
	o := options{envFile: defaultEnvFile, optional: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.envFile != "" {
		if err := exportEnvFile(o.envFile, o.optional); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
		}
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process %s config: %w", strings.ToUpper(prefix), err)
	}
	return &conf, nil
}

func exportEnvFile(path string, optional bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		if optional {
			return nil
		}
		return fmt.Errorf("%s is a directory", path)
	}

	exportMu.Lock()
	defer exportMu.Unlock()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		// Real environment wins over the file.
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
