package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/irtrace/internal/decoder"
	"github.com/banshee-data/irtrace/internal/fdwait"
	"github.com/banshee-data/irtrace/internal/pulse"
	"github.com/banshee-data/irtrace/internal/rawtrace"
)

// DefaultConfigPath is the path to the canonical decoder defaults file.
const DefaultConfigPath = "config/decoder.defaults.json"

// DecoderConfig holds every tunable threshold and width used by the decoder.
// Fields omitted from a config file fall back to the built-in defaults through
// the Get* accessors, so partial configs are safe.
type DecoderConfig struct {
	// Duration buckets, microseconds
	ShortMinUs    *uint32 `json:"short_min_us,omitempty" yaml:"short_min_us,omitempty"`
	ShortMaxUs    *uint32 `json:"short_max_us,omitempty" yaml:"short_max_us,omitempty"`
	LongMinUs     *uint32 `json:"long_min_us,omitempty" yaml:"long_min_us,omitempty"`
	LongMaxUs     *uint32 `json:"long_max_us,omitempty" yaml:"long_max_us,omitempty"`
	PreambleMinUs *uint32 `json:"preamble_min_us,omitempty" yaml:"preamble_min_us,omitempty"`
	PreambleMaxUs *uint32 `json:"preamble_max_us,omitempty" yaml:"preamble_max_us,omitempty"`
	NoiseAboveUs  *uint32 `json:"noise_above_us,omitempty" yaml:"noise_above_us,omitempty"`

	// Bit row layout
	BitsPerByte  *int `json:"bits_per_byte,omitempty" yaml:"bits_per_byte,omitempty"`
	BytesPerLine *int `json:"bytes_per_line,omitempty" yaml:"bytes_per_line,omitempty"`

	// Raw trace layout
	RawRecordWidth *int    `json:"raw_record_width,omitempty" yaml:"raw_record_width,omitempty"`
	RawGapUs       *uint32 `json:"raw_gap_us,omitempty" yaml:"raw_gap_us,omitempty"`

	// Readiness polling
	WaitMaxRetries     *int    `json:"wait_max_retries,omitempty" yaml:"wait_max_retries,omitempty"`
	WaitInitialBackoff *string `json:"wait_initial_backoff,omitempty" yaml:"wait_initial_backoff,omitempty"` // duration string like "10ms"
	WaitMaxBackoff     *string `json:"wait_max_backoff,omitempty" yaml:"wait_max_backoff,omitempty"`

	// Serial receivers
	SerialBaudRate *int `json:"serial_baud_rate,omitempty" yaml:"serial_baud_rate,omitempty"`
}

// EmptyDecoderConfig returns a DecoderConfig with all fields unset.
func EmptyDecoderConfig() *DecoderConfig {
	return &DecoderConfig{}
}

// LoadDecoderConfig loads a DecoderConfig from a .json, .yaml or .yml file no
// larger than 1MB, and validates it.
func LoadDecoderConfig(path string) (*DecoderConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDecoderConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the resolved values describe a usable decoder.
func (c *DecoderConfig) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.RawLayout().Validate(); err != nil {
		return fmt.Errorf("raw layout: %w", err)
	}

	for name, s := range map[string]*string{
		"wait_initial_backoff": c.WaitInitialBackoff,
		"wait_max_backoff":     c.WaitMaxBackoff,
	} {
		if s != nil && *s != "" {
			if _, err := time.ParseDuration(*s); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
			}
		}
	}
	if err := c.WaitPolicy().Validate(); err != nil {
		return fmt.Errorf("wait policy: %w", err)
	}

	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}
	return nil
}

func getUint32(p *uint32, def uint32) uint32 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// Thresholds returns the duration buckets.
func (c *DecoderConfig) Thresholds() pulse.Thresholds {
	return pulse.Thresholds{
		Short: pulse.Range{
			Min: getUint32(c.ShortMinUs, pulse.DefaultShortMin),
			Max: getUint32(c.ShortMaxUs, pulse.DefaultShortMax),
		},
		Long: pulse.Range{
			Min: getUint32(c.LongMinUs, pulse.DefaultLongMin),
			Max: getUint32(c.LongMaxUs, pulse.DefaultLongMax),
		},
		Preamble: pulse.Range{
			Min: getUint32(c.PreambleMinUs, pulse.DefaultPreambleMin),
			Max: getUint32(c.PreambleMaxUs, pulse.DefaultPreambleMax),
		},
		NoiseAbove: getUint32(c.NoiseAboveUs, pulse.DefaultNoiseAbove),
	}
}

// Layout returns the bit row layout.
func (c *DecoderConfig) Layout() decoder.Layout {
	l := decoder.DefaultLayout()
	l.BitsPerByte = getInt(c.BitsPerByte, l.BitsPerByte)
	l.BytesPerLine = getInt(c.BytesPerLine, l.BytesPerLine)
	return l
}

// RawLayout returns the raw trace layout.
func (c *DecoderConfig) RawLayout() rawtrace.Layout {
	l := rawtrace.DefaultLayout()
	l.RecordWidth = getInt(c.RawRecordWidth, l.RecordWidth)
	l.GapAbove = getUint32(c.RawGapUs, l.GapAbove)
	return l
}

// WaitPolicy returns the retry policy for readiness polling.
func (c *DecoderConfig) WaitPolicy() fdwait.Policy {
	p := fdwait.DefaultPolicy()
	p.MaxRetries = getInt(c.WaitMaxRetries, p.MaxRetries)
	p.InitialBackoff = getDuration(c.WaitInitialBackoff, p.InitialBackoff)
	p.MaxBackoff = getDuration(c.WaitMaxBackoff, p.MaxBackoff)
	return p
}

// GetSerialBaudRate returns the serial_baud_rate value or the default.
func (c *DecoderConfig) GetSerialBaudRate() int {
	return getInt(c.SerialBaudRate, 115200)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *DecoderConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadDecoderConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}
