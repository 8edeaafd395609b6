package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Tuning controls debounce windows and retry policy. Reloaded at runtime
// from tuning.yml when present.
type Tuning struct {
	UIDebounce     time.Duration `mapstructure:"uiDebounce"`
	RemoteDebounce time.Duration `mapstructure:"remoteDebounce"`
	RetryBaseDelay time.Duration `mapstructure:"retryBaseDelay"`
	RetryMaxTries  int           `mapstructure:"retryMaxTries"`
}

func DefaultTuning() Tuning {
	return Tuning{
		UIDebounce:     50 * time.Millisecond,
		RemoteDebounce: 1500 * time.Millisecond,
		RetryBaseDelay: 200 * time.Millisecond,
		RetryMaxTries:  3,
	}
}

func validateTuning(t Tuning) error {
	if t.UIDebounce <= 0 || t.RemoteDebounce <= 0 {
		return errors.New("debounce windows must be positive")
	}
	if t.RemoteDebounce < t.UIDebounce {
		return errors.New("remote debounce must not be shorter than ui debounce")
	}
	if t.RetryBaseDelay <= 0 {
		return errors.New("retry base delay must be positive")
	}
	if t.RetryMaxTries < 1 {
		return errors.New("retry max tries must be at least 1")
	}
	return nil
}

// TuningHolder serves the current tuning to callers and swaps it atomically
// on reload.
type TuningHolder struct {
	current atomic.Value // holds Tuning
}

// NewTuningHolder reads tuning.yml (working dir or /etc/cutflow), falling
// back to defaults when absent, and hot-reloads on file change. Invalid
// reloads are ignored with a log line; the last good tuning stays active.
func NewTuningHolder() (*TuningHolder, error) {
	v := viper.New()

	v.SetConfigName("tuning")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/cutflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CUTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &TuningHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultTuning())
		return holder, nil
	}

	cfg := DefaultTuning()
	if err := v.UnmarshalKey("tuning", &cfg); err != nil {
		return nil, err
	}
	if err := validateTuning(cfg); err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultTuning()
		if err := v.UnmarshalKey("tuning", &updated); err != nil {
			log.Printf("[tuning] reload failed: %v", err)
			return
		}
		if err := validateTuning(updated); err != nil {
			log.Printf("[tuning] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

// NewStaticTuningHolder wraps a fixed tuning, for tests.
func NewStaticTuningHolder(t Tuning) *TuningHolder {
	holder := &TuningHolder{}
	holder.current.Store(t)
	return holder
}

// Get returns the current tuning.
func (h *TuningHolder) Get() Tuning {
	if v, ok := h.current.Load().(Tuning); ok {
		return v
	}
	return DefaultTuning()
}

// Set replaces the current tuning after validation.
func (h *TuningHolder) Set(t Tuning) error {
	if err := validateTuning(t); err != nil {
		return err
	}
	h.current.Store(t)
	return nil
}
