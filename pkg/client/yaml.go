package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tautline/taut-go/pkg/transport"
)

// yamlFile mirrors the documented configuration surface. Durations
// are plain millisecond integers in the file.
type yamlFile struct {
	Binary    *string     `yaml:"binary"`
	Buffer    *yamlBuffer `yaml:"buffer"`
	Immediate *bool       `yaml:"immediate"`
	Ping      *yamlPing   `yaml:"ping"`
	Protocol  []string    `yaml:"protocol"`
	Retry     *yamlRetry  `yaml:"retry"`
	Timeout   *int64      `yaml:"timeout"`
}

// yamlBuffer accepts either a mapping with max/min or the literal
// false to disable buffering entirely.
type yamlBuffer struct {
	disabled bool
	max      *int
	min      *int
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *yamlBuffer) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var flag bool
		if err := value.Decode(&flag); err != nil {
			return fmt.Errorf("buffer: expected mapping or false: %w", err)
		}
		b.disabled = !flag
		return nil
	}

	var aux struct {
		Max *int `yaml:"max"`
		Min *int `yaml:"min"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	b.max = aux.Max
	b.min = aux.Min
	return nil
}

type yamlPing struct {
	Heartbeat *int64 `yaml:"heartbeat"`
	Strict    *bool  `yaml:"strict"`
	Timeout   *int64 `yaml:"timeout"`
}

type yamlRetry struct {
	Amount      *int     `yaml:"amount"`
	DelayFactor *float64 `yaml:"delayFactor"`
	MaxDelay    *int64   `yaml:"maxDelay"`
	MinUpTime   *int64   `yaml:"minUpTime"`
	OnAbort     *bool    `yaml:"onAbort"`
	StartDelay  *int64   `yaml:"startDelay"`
}

// OptionsFromYAML parses a partial configuration from YAML data.
func OptionsFromYAML(data []byte) (*Options, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	opts := &Options{
		Immediate: f.Immediate,
		Protocols: f.Protocol,
		Timeout:   millis(f.Timeout),
	}

	if f.Binary != nil {
		mode := transport.BinaryType(*f.Binary)
		opts.Binary = &mode
	}
	if f.Buffer != nil {
		opts.Buffer = &BufferOptions{
			Disabled: f.Buffer.disabled,
			Max:      f.Buffer.max,
			Min:      f.Buffer.min,
		}
	}
	if f.Ping != nil {
		opts.Ping = &PingOptions{
			Heartbeat: millis(f.Ping.Heartbeat),
			Strict:    f.Ping.Strict,
			Timeout:   millis(f.Ping.Timeout),
		}
	}
	if f.Retry != nil {
		opts.Retry = &RetryOptions{
			Amount:      f.Retry.Amount,
			DelayFactor: f.Retry.DelayFactor,
			MaxDelay:    millis(f.Retry.MaxDelay),
			MinUpTime:   millis(f.Retry.MinUpTime),
			OnAbort:     f.Retry.OnAbort,
			StartDelay:  millis(f.Retry.StartDelay),
		}
	}

	return opts, nil
}

// LoadOptions reads a partial configuration from a YAML file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return OptionsFromYAML(data)
}

// millis converts a millisecond count to a duration pointer.
func millis(v *int64) *time.Duration {
	if v == nil {
		return nil
	}
	d := time.Duration(*v) * time.Millisecond
	return &d
}
