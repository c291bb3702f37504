// Package config loads adapter policies (retry, throttle, debounce and memoize
// storage) from YAML.
//
//	retry:
//	  max_attempts: 5
//	  backoff:
//	    strategy: exponential
//	    delay: 100ms
//	    max_delay: 2s
//	throttle:
//	  interval: 1s
//	memoize:
//	  backend: sturdyc
//	  key_serializer: hashed
//	  capacity: 5000
//	  ttl: 10m
package config

import (
	"io"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-functools/backoff"
	"github.com/goliatone/go-functools/cache"
)

// Text codes attached to configuration errors.
const (
	TextCodeInvalidConfig   = "INVALID_CONFIG"
	TextCodeUnreadableInput = "UNREADABLE_CONFIG"
)

// Backoff strategies.
const (
	StrategyNone        = "none"
	StrategyConstant    = "constant"
	StrategyLinear      = "linear"
	StrategyExponential = "exponential"
	StrategyJitter      = "jitter"
)

// Memoize backends.
const (
	BackendMemory  = "memory"
	BackendSturdyc = "sturdyc"
)

// Key serializers.
const (
	SerializerReflect = "reflect"
	SerializerHashed  = "hashed"
	SerializerMsgpack = "msgpack"
)

// Config is the root configuration document.
type Config struct {
	Retry    RetryConfig    `yaml:"retry"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Debounce DebounceConfig `yaml:"debounce"`
	Memoize  MemoizeConfig  `yaml:"memoize"`
}

// RetryConfig holds the retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     BackoffConfig `yaml:"backoff"`
}

// BackoffConfig selects a backoff shape from package backoff.
type BackoffConfig struct {
	Strategy string        `yaml:"strategy"`
	Delay    time.Duration `yaml:"delay"`
	// MaxDelay caps the delay; zero leaves it uncapped.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// ThrottleConfig holds the throttle interval.
type ThrottleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DebounceConfig holds the debounce delay.
type DebounceConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// MemoizeConfig selects where memoized results live and how keys are built.
// Zero sizing fields fall back to cache.DefaultConfig.
type MemoizeConfig struct {
	Backend            string        `yaml:"backend"`
	KeySerializer      string        `yaml:"key_serializer"`
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff: BackoffConfig{
				Strategy: StrategyExponential,
				Delay:    100 * time.Millisecond,
				MaxDelay: 5 * time.Second,
			},
		},
		Throttle: ThrottleConfig{Interval: time.Second},
		Debounce: DebounceConfig{Delay: 0},
		Memoize: MemoizeConfig{
			Backend:       BackendMemory,
			KeySerializer: SerializerReflect,
		},
	}
}

// Load decodes YAML from r on top of Default and validates the result.
// Unknown fields are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to decode configuration").
			WithTextCode(TextCodeUnreadableInput)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load on the contents of path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "could not read config file").
			WithTextCode(TextCodeUnreadableInput).
			WithMetadata(map[string]any{"path": path})
	}
	defer f.Close()

	return Load(f)
}

// Validate checks every section and reports all problems in one error.
func (c Config) Validate() error {
	verr := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Retry),
			validation.Field(&c.Throttle),
			validation.Field(&c.Debounce),
			validation.Field(&c.Memoize),
		)
	}, "invalid configuration")
	if verr != nil {
		return verr.WithTextCode(TextCodeInvalidConfig)
	}
	return nil
}

// Validate implements validation.Validatable.
func (c RetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.Backoff),
	)
}

// Validate implements validation.Validatable.
func (c BackoffConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Strategy, validation.In(
			StrategyNone, StrategyConstant, StrategyLinear, StrategyExponential, StrategyJitter,
		)),
		validation.Field(&c.Delay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (c ThrottleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (c DebounceConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Delay, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable. Sturdyc sizing is checked by the
// cache package once the defaults are filled in.
func (c MemoizeConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.In(BackendMemory, BackendSturdyc)),
		validation.Field(&c.KeySerializer, validation.In(SerializerReflect, SerializerHashed, SerializerMsgpack)),
		validation.Field(&c.Capacity, validation.Min(0)),
		validation.Field(&c.NumShards, validation.Min(0)),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
		validation.Field(&c.EvictionPercentage, validation.Min(0), validation.Max(100)),
	)
	if err != nil {
		return err
	}

	if c.Backend == BackendSturdyc {
		if err := c.CacheConfig().Validate(); err != nil {
			return validation.Errors{"Cache": err}
		}
	}
	return nil
}

// Func builds the configured backoff function. An empty strategy means none.
func (c BackoffConfig) Func() backoff.Func {
	switch c.Strategy {
	case StrategyConstant:
		return backoff.Constant(c.Delay)
	case StrategyLinear:
		return backoff.Linear(c.Delay, c.MaxDelay)
	case StrategyExponential:
		return backoff.Exponential(c.Delay, c.MaxDelay)
	case StrategyJitter:
		return backoff.Jitter(c.Delay, c.MaxDelay)
	default:
		return backoff.None()
	}
}

// CacheConfig converts the memoize section into a bounded cache configuration.
func (c MemoizeConfig) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	if c.Capacity > 0 {
		cfg.Capacity = c.Capacity
	}
	if c.NumShards > 0 {
		cfg.NumShards = c.NumShards
	}
	if c.TTL > 0 {
		cfg.TTL = c.TTL
	}
	if c.EvictionPercentage > 0 {
		cfg.EvictionPercentage = c.EvictionPercentage
	}
	return cfg
}

// NewKeySerializer builds the configured key serializer.
func (c MemoizeConfig) NewKeySerializer() cache.KeySerializer {
	switch c.KeySerializer {
	case SerializerHashed:
		return cache.NewHashedKeySerializer(nil)
	case SerializerMsgpack:
		return cache.NewMsgpackKeySerializer()
	default:
		return cache.NewDefaultKeySerializer()
	}
}

// NewCacheService builds the configured memoize store.
func (c MemoizeConfig) NewCacheService() (cache.CacheService, error) {
	if c.Backend == BackendSturdyc {
		return cache.NewCacheService(c.CacheConfig())
	}
	return cache.NewMemoryService(), nil
}
