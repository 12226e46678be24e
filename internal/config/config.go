// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration object for droidpilot. Each sub-struct
// covers one concern and maps 1:1 onto a section of the YAML config file.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Device     DeviceConfig     `mapstructure:"device" yaml:"device"`
	Perception PerceptionConfig `mapstructure:"perception" yaml:"perception"`
	Humanizer  HumanizerConfig  `mapstructure:"humanizer" yaml:"humanizer"`
	Unlock     UnlockConfig     `mapstructure:"unlock" yaml:"unlock"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Oracle     OracleConfig     `mapstructure:"oracle" yaml:"oracle"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the terminal color names for each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// DeviceConfig selects and tunes the ADB transport.
type DeviceConfig struct {
	ADBPath        string        `mapstructure:"adb_path" yaml:"adb_path"`
	Serial         string        `mapstructure:"serial" yaml:"serial"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
}

// PerceptionConfig tunes scene capture.
type PerceptionConfig struct {
	// MaxScreenshotWidth downscales wider captures before JPEG encoding;
	// zero disables scaling.
	MaxScreenshotWidth int `mapstructure:"max_screenshot_width" yaml:"max_screenshot_width"`
	JPEGQuality        int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

// DelaySpec parameterizes one log-normal duration distribution: the mode of
// the distribution, the dispersion in log-space, and hard clamp bounds.
type DelaySpec struct {
	ModeMS int     `mapstructure:"mode_ms" yaml:"mode_ms"`
	Sigma  float64 `mapstructure:"sigma" yaml:"sigma"`
	MinMS  int     `mapstructure:"min_ms" yaml:"min_ms"`
	MaxMS  int     `mapstructure:"max_ms" yaml:"max_ms"`
}

// HumanizerConfig tunes the synthetic-input realism model.
type HumanizerConfig struct {
	// SigmaDivisor scales tap jitter to the target element: sigma = size/divisor.
	SigmaDivisor float64 `mapstructure:"sigma_divisor" yaml:"sigma_divisor"`
	// BiasX/BiasY are the means of the small directional bias distribution,
	// in pixels; BiasStdDev its spread.
	BiasX      float64 `mapstructure:"bias_x" yaml:"bias_x"`
	BiasY      float64 `mapstructure:"bias_y" yaml:"bias_y"`
	BiasStdDev float64 `mapstructure:"bias_std_dev" yaml:"bias_std_dev"`

	TapDuration DelaySpec `mapstructure:"tap_duration" yaml:"tap_duration"`
	PreDelay    DelaySpec `mapstructure:"pre_delay" yaml:"pre_delay"`
	PostDelay   DelaySpec `mapstructure:"post_delay" yaml:"post_delay"`

	SwipeStartJitter float64 `mapstructure:"swipe_start_jitter" yaml:"swipe_start_jitter"`
	SwipeEndJitter   float64 `mapstructure:"swipe_end_jitter" yaml:"swipe_end_jitter"`
	// Swipe duration is scaled by a uniform factor in [ScaleMin, ScaleMax].
	SwipeScaleMin float64 `mapstructure:"swipe_scale_min" yaml:"swipe_scale_min"`
	SwipeScaleMax float64 `mapstructure:"swipe_scale_max" yaml:"swipe_scale_max"`
}

// UnlockConfig tunes the screen-unlock precondition controller.
type UnlockConfig struct {
	// Credential is the stored PIN/password for secured lock screens.
	// Empty means none is stored; secured devices then need user action.
	Credential string `mapstructure:"credential" yaml:"-"`

	WakeTimeout      time.Duration `mapstructure:"wake_timeout" yaml:"wake_timeout"`
	WakePollInterval time.Duration `mapstructure:"wake_poll_interval" yaml:"wake_poll_interval"`
	SettleDelay      time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`

	// Swipe path for unsecured lock screens, as fractions of screen height.
	SwipeStartPct float64 `mapstructure:"swipe_start_pct" yaml:"swipe_start_pct"`
	SwipeEndPct   float64 `mapstructure:"swipe_end_pct" yaml:"swipe_end_pct"`

	SwipeClearTimeout      time.Duration `mapstructure:"swipe_clear_timeout" yaml:"swipe_clear_timeout"`
	CredentialClearTimeout time.Duration `mapstructure:"credential_clear_timeout" yaml:"credential_clear_timeout"`
	ClearPollInterval      time.Duration `mapstructure:"clear_poll_interval" yaml:"clear_poll_interval"`
}

// SessionConfig tunes the session controller state machine.
type SessionConfig struct {
	// StepBudget bounds total perceive/decide/act iterations per session.
	StepBudget int `mapstructure:"step_budget" yaml:"step_budget"`
	// MaxConsecutiveFailures abandons the session after this many failed
	// steps in a row; zero disables the cap.
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`

	TargetPackage   string `mapstructure:"target_package" yaml:"target_package"`
	FallbackPackage string `mapstructure:"fallback_package" yaml:"fallback_package"`

	AppWaitTimeout  time.Duration `mapstructure:"app_wait_timeout" yaml:"app_wait_timeout"`
	AppPollInterval time.Duration `mapstructure:"app_poll_interval" yaml:"app_poll_interval"`
	AppSettleDelay  time.Duration `mapstructure:"app_settle_delay" yaml:"app_settle_delay"`
}

// OracleMode selects the decision-service backend.
type OracleMode string

const (
	// OracleModeService talks to a remote decision endpoint over HTTP.
	OracleModeService OracleMode = "service"
	// OracleModeGemini queries Gemini directly with the scene payload.
	OracleModeGemini OracleMode = "gemini"
)

// OracleConfig configures the decision-service client.
type OracleConfig struct {
	Mode        OracleMode    `mapstructure:"mode" yaml:"mode"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	// RatePerMinute caps decision calls across all sessions; zero disables.
	RatePerMinute float64 `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
}

// EngineConfig tunes the batch work-item runner.
type EngineConfig struct {
	// Concurrency bounds how many devices run items simultaneously. Items
	// for the same device serial are always serialized.
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	ItemTimeout time.Duration `mapstructure:"item_timeout" yaml:"item_timeout"`
}

// NewDefaultConfig returns the built-in defaults. Every tunable has a safe
// default so an empty config file yields a working agent.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "droidpilot",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
			Colors: ColorConfig{
				Debug: "cyan",
				Info:  "green",
				Warn:  "yellow",
				Error: "red",
				Fatal: "magenta",
			},
		},
		Device: DeviceConfig{
			ADBPath:        "adb",
			CommandTimeout: 15 * time.Second,
		},
		Perception: PerceptionConfig{
			MaxScreenshotWidth: 720,
			JPEGQuality:        70,
		},
		Humanizer: HumanizerConfig{
			SigmaDivisor:     6.0,
			BiasX:            1.5,
			BiasY:            1.5,
			BiasStdDev:       1.0,
			TapDuration:      DelaySpec{ModeMS: 100, Sigma: 0.3, MinMS: 70, MaxMS: 150},
			PreDelay:         DelaySpec{ModeMS: 300, Sigma: 0.4, MinMS: 150, MaxMS: 600},
			PostDelay:        DelaySpec{ModeMS: 400, Sigma: 0.3, MinMS: 200, MaxMS: 800},
			SwipeStartJitter: 5.0,
			SwipeEndJitter:   10.0,
			SwipeScaleMin:    0.8,
			SwipeScaleMax:    1.2,
		},
		Unlock: UnlockConfig{
			WakeTimeout:            2 * time.Second,
			WakePollInterval:       50 * time.Millisecond,
			SettleDelay:            500 * time.Millisecond,
			SwipeStartPct:          0.9,
			SwipeEndPct:            0.4,
			SwipeClearTimeout:      1500 * time.Millisecond,
			CredentialClearTimeout: 3 * time.Second,
			ClearPollInterval:      100 * time.Millisecond,
		},
		Session: SessionConfig{
			StepBudget:             50,
			MaxConsecutiveFailures: 8,
			AppWaitTimeout:         10 * time.Second,
			AppPollInterval:        500 * time.Millisecond,
			AppSettleDelay:         2 * time.Second,
		},
		Oracle: OracleConfig{
			Mode:        OracleModeGemini,
			Model:       "gemini-2.0-flash",
			APITimeout:  45 * time.Second,
			Temperature: 0.2,
		},
		Engine: EngineConfig{
			Concurrency: 1,
			ItemTimeout: 10 * time.Minute,
		},
	}
}

// Load reads the config file (explicit path, or ./config.yaml and
// ~/.droidpilot/config.yaml), layers DROIDPILOT_* environment variables on
// top, and unmarshals onto the defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.droidpilot")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DROIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the controllers cannot operate under.
func (c *Config) Validate() error {
	if c.Session.StepBudget <= 0 {
		return fmt.Errorf("session.step_budget must be positive, got %d", c.Session.StepBudget)
	}
	if c.Humanizer.SigmaDivisor <= 0 {
		return fmt.Errorf("humanizer.sigma_divisor must be positive, got %g", c.Humanizer.SigmaDivisor)
	}
	if c.Humanizer.SwipeScaleMin > c.Humanizer.SwipeScaleMax {
		return fmt.Errorf("humanizer.swipe_scale_min %g exceeds swipe_scale_max %g",
			c.Humanizer.SwipeScaleMin, c.Humanizer.SwipeScaleMax)
	}
	for _, d := range []struct {
		name string
		spec DelaySpec
	}{
		{"humanizer.tap_duration", c.Humanizer.TapDuration},
		{"humanizer.pre_delay", c.Humanizer.PreDelay},
		{"humanizer.post_delay", c.Humanizer.PostDelay},
	} {
		if d.spec.MinMS > d.spec.MaxMS {
			return fmt.Errorf("%s: min_ms %d exceeds max_ms %d", d.name, d.spec.MinMS, d.spec.MaxMS)
		}
		if d.spec.ModeMS <= 0 {
			return fmt.Errorf("%s: mode_ms must be positive", d.name)
		}
	}
	if c.Unlock.SwipeStartPct <= c.Unlock.SwipeEndPct {
		return fmt.Errorf("unlock.swipe_start_pct %g must be greater than swipe_end_pct %g (swipe moves up the screen)",
			c.Unlock.SwipeStartPct, c.Unlock.SwipeEndPct)
	}
	if c.Oracle.Mode != OracleModeService && c.Oracle.Mode != OracleModeGemini {
		return fmt.Errorf("oracle.mode must be %q or %q, got %q", OracleModeService, OracleModeGemini, c.Oracle.Mode)
	}
	return nil
}
