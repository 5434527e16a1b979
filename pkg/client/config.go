package client

import (
	"time"

	"github.com/tautline/taut-go/pkg/buffer"
	"github.com/tautline/taut-go/pkg/log"
	"github.com/tautline/taut-go/pkg/retry"
	"github.com/tautline/taut-go/pkg/transport"
)

// Configuration defaults.
const (
	// DefaultHeartbeat is the heartbeat probe interval.
	DefaultHeartbeat = 5 * time.Second

	// DefaultPingTimeout is the time to await a pong.
	DefaultPingTimeout = 5 * time.Second

	// DefaultKeepAliveTimeout is the overall inactivity limit.
	// Zero disables keep-alive monitoring.
	DefaultKeepAliveTimeout = 30 * time.Second
)

// Config is the effective, fully-merged configuration. It is
// immutable for the lifetime of a Client; only the binary mode
// remains mutable at runtime.
type Config struct {
	// Binary is the initial transport payload decoding mode.
	Binary transport.BinaryType

	// Buffer configures the bidirectional queues.
	Buffer BufferConfig

	// Immediate connects during construction.
	Immediate bool

	// Ping configures liveness probing.
	Ping PingConfig

	// Protocols is the sub-protocol negotiation list.
	Protocols []string

	// Retry is the reconnection policy.
	Retry retry.Policy

	// RetryEnabled records whether a retry policy was supplied at
	// all; automatic reconnection requires it.
	RetryEnabled bool

	// Timeout is the keep-alive inactivity limit. Zero disables it.
	Timeout time.Duration
}

// BufferConfig bounds the inbound and outbound queues.
type BufferConfig struct {
	// Enabled turns buffering on. When false, messages that cannot
	// be delivered immediately are dropped.
	Enabled bool

	// Max is the queue capacity.
	Max int

	// Min is the release threshold.
	Min int
}

// PingConfig configures liveness probing.
type PingConfig struct {
	// Heartbeat is the repeating probe interval.
	Heartbeat time.Duration

	// Strict aborts on ping timeout instead of silently
	// disconnecting.
	Strict bool

	// Timeout is the time to await a pong.
	Timeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Binary: transport.BinaryBlob,
		Buffer: BufferConfig{
			Enabled: true,
			Max:     buffer.DefaultMax,
			Min:     buffer.DefaultMin,
		},
		Immediate: false,
		Ping: PingConfig{
			Heartbeat: DefaultHeartbeat,
			Strict:    true,
			Timeout:   DefaultPingTimeout,
		},
		Retry:   retry.DefaultPolicy(),
		Timeout: DefaultKeepAliveTimeout,
	}
}

// Options is the caller-supplied partial configuration. Nil leaves
// fall back to the documented defaults; the merge is recursive per
// field. A nil *Options selects all defaults.
type Options struct {
	// Binary overrides the payload decoding mode.
	Binary *transport.BinaryType `yaml:"binary"`

	// Buffer overrides the queue bounds, or disables buffering.
	Buffer *BufferOptions `yaml:"buffer"`

	// Immediate connects during construction.
	Immediate *bool `yaml:"immediate"`

	// Ping overrides liveness probing settings.
	Ping *PingOptions `yaml:"ping"`

	// Protocols is the sub-protocol negotiation list.
	Protocols []string `yaml:"protocol"`

	// Retry supplies the reconnection policy. Leaving it nil keeps
	// automatic reconnection disabled.
	Retry *RetryOptions `yaml:"retry"`

	// Timeout overrides the keep-alive inactivity limit.
	Timeout *time.Duration `yaml:"-"`

	// Factory injects a transport constructor. Defaults to the
	// WebSocket transport.
	Factory transport.Factory `yaml:"-"`

	// Logger receives lifecycle events. Defaults to NoopLogger.
	Logger log.Logger `yaml:"-"`
}

// BufferOptions is the partial queue configuration.
type BufferOptions struct {
	// Disabled turns buffering off entirely.
	Disabled bool `yaml:"disabled"`

	// Max overrides the queue capacity.
	Max *int `yaml:"max"`

	// Min overrides the release threshold.
	Min *int `yaml:"min"`
}

// PingOptions is the partial liveness probing configuration.
type PingOptions struct {
	// Heartbeat overrides the probe interval.
	Heartbeat *time.Duration `yaml:"-"`

	// Strict overrides abort-on-timeout behavior.
	Strict *bool `yaml:"strict"`

	// Timeout overrides the pong wait.
	Timeout *time.Duration `yaml:"-"`
}

// RetryOptions is the partial reconnection policy.
type RetryOptions struct {
	// Amount overrides the maximum number of automatic reconnects.
	Amount *int `yaml:"amount"`

	// DelayFactor overrides the backoff multiplier.
	DelayFactor *float64 `yaml:"delayFactor"`

	// MaxDelay overrides the backoff cap.
	MaxDelay *time.Duration `yaml:"-"`

	// MinUpTime overrides the minimum prior uptime for a retry.
	MinUpTime *time.Duration `yaml:"-"`

	// OnAbort reconnects instead of signaling when Abort is called.
	OnAbort *bool `yaml:"onAbort"`

	// StartDelay overrides the backoff base.
	StartDelay *time.Duration `yaml:"-"`
}

// newConfig deep-merges opts onto the defaults.
func newConfig(opts *Options) Config {
	cfg := DefaultConfig()
	if opts == nil {
		return cfg
	}

	if opts.Binary != nil {
		cfg.Binary = *opts.Binary
	}
	if opts.Buffer != nil {
		if opts.Buffer.Disabled {
			cfg.Buffer.Enabled = false
		}
		if opts.Buffer.Max != nil {
			cfg.Buffer.Max = *opts.Buffer.Max
		}
		if opts.Buffer.Min != nil {
			cfg.Buffer.Min = *opts.Buffer.Min
		}
	}
	if opts.Immediate != nil {
		cfg.Immediate = *opts.Immediate
	}
	if opts.Ping != nil {
		if opts.Ping.Heartbeat != nil {
			cfg.Ping.Heartbeat = *opts.Ping.Heartbeat
		}
		if opts.Ping.Strict != nil {
			cfg.Ping.Strict = *opts.Ping.Strict
		}
		if opts.Ping.Timeout != nil {
			cfg.Ping.Timeout = *opts.Ping.Timeout
		}
	}
	if len(opts.Protocols) > 0 {
		cfg.Protocols = append([]string(nil), opts.Protocols...)
	}
	if opts.Retry != nil {
		cfg.RetryEnabled = true
		if opts.Retry.Amount != nil {
			cfg.Retry.Amount = *opts.Retry.Amount
		}
		if opts.Retry.DelayFactor != nil {
			cfg.Retry.DelayFactor = *opts.Retry.DelayFactor
		}
		if opts.Retry.MaxDelay != nil {
			cfg.Retry.MaxDelay = *opts.Retry.MaxDelay
		}
		if opts.Retry.MinUpTime != nil {
			cfg.Retry.MinUpTime = *opts.Retry.MinUpTime
		}
		if opts.Retry.OnAbort != nil {
			cfg.Retry.OnAbort = *opts.Retry.OnAbort
		}
		if opts.Retry.StartDelay != nil {
			cfg.Retry.StartDelay = *opts.Retry.StartDelay
		}
	}
	if opts.Timeout != nil {
		cfg.Timeout = *opts.Timeout
	}

	return cfg
}
