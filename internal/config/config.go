package config

import (
	"time"

	"github.com/spf13/viper"

	"codeberg.org/isvind/gpufanctl/internal/curve"
	"codeberg.org/isvind/gpufanctl/internal/errors"
)

const (
	// MinResponseTime is the fastest permitted control cadence.
	MinResponseTime = 250 * time.Millisecond

	minHysteresis = 1
	maxHysteresis = 5
)

// Config is the validated daemon configuration. Immutable after Load.
type Config struct {
	ResponseTime float64 `mapstructure:"response_time"`
	Hysteresis   int     `mapstructure:"hysteresis"`
	FanCurve     [][]int `mapstructure:"fan_curve"`
	LogLevel     string  `mapstructure:"log_level"`
	Telemetry    bool    `mapstructure:"telemetry"`
	TelemetryDB  string  `mapstructure:"database"`
}

// Load reads and validates the TOML config at path. All validation
// happens here, before the device is ever opened.
func Load(path string) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	errFactory := errors.New()

	if c.Interval() < MinResponseTime {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"Response time must be at least 0.25 seconds")
	}
	if c.Hysteresis < minHysteresis || c.Hysteresis > maxHysteresis {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"Hysteresis must be between 1C and 5C")
	}
	if len(c.FanCurve) < curve.MinAnchors {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"Fan curve must have at least 3 points")
	}

	for _, pair := range c.FanCurve {
		if len(pair) != 2 {
			return errFactory.WithMessage(errors.ErrInvalidConfig,
				"Fan curve points must be [temperature, duty] pairs")
		}
		temp, duty := pair[0], pair[1]
		if temp < 0 || temp > 255 {
			return errFactory.WithMessage(errors.ErrInvalidConfig,
				"Fan curve temperature must be between 0C and 255C")
		}
		if duty < 0 || duty > curve.MaxDuty {
			return errFactory.WithMessage(errors.ErrInvalidConfig,
				"Fan duty cannot be higher than 100%")
		}
	}

	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"Telemetry requires a database path")
	}

	return nil
}

// Interval returns the control loop cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.ResponseTime * float64(time.Second))
}

// Anchors converts the raw curve pairs for the compiler.
func (c *Config) Anchors() []curve.Anchor {
	anchors := make([]curve.Anchor, 0, len(c.FanCurve))
	for _, pair := range c.FanCurve {
		anchors = append(anchors, curve.Anchor{
			Temperature: uint8(pair[0]),
			Duty:        uint8(pair[1]),
		})
	}

	return anchors
}
