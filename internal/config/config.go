// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DatabaseURLEnv names the environment variable that overrides database.url.
const DatabaseURLEnv = "GOAPSIM_DATABASE_URL"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Simulation() SimulationConfig
	Planner() PlannerConfig
	Agent() AgentConfig
	Engine() EngineConfig
	Report() ReportConfig

	// Simulation Setters
	SetSimulationSeed(uint64)
	SetSimulationRealtime(bool)
	SetSimulationDuration(time.Duration)

	// Engine Setters
	SetEngineRuns(int)
	SetEngineConcurrency(int)

	// Report Setters
	SetReportFormat(string)
	SetReportOutput(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	SimulationCfg SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	PlannerCfg    PlannerConfig    `mapstructure:"planner" yaml:"planner"`
	AgentCfg      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	EngineCfg     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	ReportCfg     ReportConfig     `mapstructure:"report" yaml:"report"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Simulation() SimulationConfig { return c.SimulationCfg }
func (c *Config) Planner() PlannerConfig       { return c.PlannerCfg }
func (c *Config) Agent() AgentConfig           { return c.AgentCfg }
func (c *Config) Engine() EngineConfig         { return c.EngineCfg }
func (c *Config) Report() ReportConfig         { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

// Simulation Setters
func (c *Config) SetSimulationSeed(s uint64)            { c.SimulationCfg.Seed = s }
func (c *Config) SetSimulationRealtime(b bool)          { c.SimulationCfg.Realtime = b }
func (c *Config) SetSimulationDuration(d time.Duration) { c.SimulationCfg.Duration = d }

// Engine Setters
func (c *Config) SetEngineRuns(n int)        { c.EngineCfg.Runs = n }
func (c *Config) SetEngineConcurrency(n int) { c.EngineCfg.Concurrency = n }

// Report Setters
func (c *Config) SetReportFormat(f string) { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string) { c.ReportCfg.Output = o }

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SimulationConfig drives a single run.
type SimulationConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	Duration       time.Duration `mapstructure:"duration" yaml:"duration"`
	DayRatio       float64       `mapstructure:"day_ratio" yaml:"day_ratio"`
	TimeScale      float64       `mapstructure:"time_scale" yaml:"time_scale"`
	Realtime       bool          `mapstructure:"realtime" yaml:"realtime"`
	Seed           uint64        `mapstructure:"seed" yaml:"seed"`
	StrictCapacity bool          `mapstructure:"strict_capacity" yaml:"strict_capacity"`
}

// PlannerConfig tunes the planner.
type PlannerConfig struct {
	// Debug logs every plan an agent finds.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// AgentConfig holds the movement settings shared by all agents.
type AgentConfig struct {
	GoalDistance float64 `mapstructure:"goal_distance" yaml:"goal_distance"`
	Speed        float64 `mapstructure:"speed" yaml:"speed"`
}

// EngineConfig configures the batch engine.
type EngineConfig struct {
	Runs           int           `mapstructure:"runs" yaml:"runs"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`
}

// ReportConfig selects the report writer.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "goapsim")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Simulation --
	v.SetDefault("simulation.tick_interval", "250ms")
	v.SetDefault("simulation.duration", "2m")
	v.SetDefault("simulation.day_ratio", 0.75)
	v.SetDefault("simulation.time_scale", 1.0)
	v.SetDefault("simulation.realtime", false)
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.strict_capacity", false)

	// -- Planner --
	v.SetDefault("planner.debug", false)

	// -- Agent --
	v.SetDefault("agent.goal_distance", 0.5)
	v.SetDefault("agent.speed", 3.5)

	// -- Engine --
	v.SetDefault("engine.runs", 10)
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.persist_timeout", "30s")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "stdout")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The connection string usually carries credentials, so it comes from the environment.
	_ = v.BindEnv("database.url", DatabaseURLEnv)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the URL if Unmarshal didn't pick it up
	if cfg.DatabaseCfg.URL == "" {
		cfg.DatabaseCfg.URL = os.Getenv(DatabaseURLEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// database.url is only required by commands that persist runs.
func (c *Config) Validate() error {
	if err := c.SimulationCfg.Validate(); err != nil {
		return fmt.Errorf("simulation configuration invalid: %w", err)
	}
	if c.AgentCfg.GoalDistance <= 0 {
		return fmt.Errorf("agent.goal_distance must be positive")
	}
	if c.AgentCfg.Speed <= 0 {
		return fmt.Errorf("agent.speed must be positive")
	}
	if c.EngineCfg.Concurrency <= 0 {
		return fmt.Errorf("engine.concurrency must be a positive integer")
	}
	if c.EngineCfg.Runs <= 0 {
		return fmt.Errorf("engine.runs must be a positive integer")
	}
	switch c.ReportCfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("report.format must be json or text, got %q", c.ReportCfg.Format)
	}
	return nil
}

// Validate checks the SimulationConfig settings.
func (s *SimulationConfig) Validate() error {
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be a positive duration")
	}
	if s.Duration <= 0 {
		return fmt.Errorf("duration must be a positive duration")
	}
	if s.DayRatio < 0.0 || s.DayRatio > 1.0 {
		return fmt.Errorf("day_ratio must be between 0.0 and 1.0")
	}
	if s.Realtime && s.TimeScale <= 0 {
		return fmt.Errorf("time_scale must be positive when realtime is enabled")
	}
	return nil
}
