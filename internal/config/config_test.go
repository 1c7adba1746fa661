// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "goapsim", cfg.Logger().ServiceName)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulation().TickInterval)
	assert.Equal(t, 2*time.Minute, cfg.Simulation().Duration)
	assert.Equal(t, 0.75, cfg.Simulation().DayRatio)
	assert.Equal(t, uint64(1), cfg.Simulation().Seed)
	assert.False(t, cfg.Planner().Debug)
	assert.Equal(t, 0.5, cfg.Agent().GoalDistance)
	assert.Equal(t, 4, cfg.Engine().Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Engine().PersistTimeout)
	assert.Equal(t, "text", cfg.Report().Format)
	assert.NoError(t, cfg.Validate(), "defaults must be valid")
}

func TestSetters(t *testing.T) {
	var cfg Interface = NewDefaultConfig()
	cfg.SetSimulationSeed(99)
	cfg.SetSimulationRealtime(true)
	cfg.SetSimulationDuration(time.Minute)
	cfg.SetEngineRuns(3)
	cfg.SetEngineConcurrency(2)
	cfg.SetReportFormat("json")
	cfg.SetReportOutput("out.json")

	assert.Equal(t, uint64(99), cfg.Simulation().Seed)
	assert.True(t, cfg.Simulation().Realtime)
	assert.Equal(t, time.Minute, cfg.Simulation().Duration)
	assert.Equal(t, 3, cfg.Engine().Runs)
	assert.Equal(t, 2, cfg.Engine().Concurrency)
	assert.Equal(t, ReportConfig{Format: "json", Output: "out.json"}, cfg.Report())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero tick", func(c *Config) { c.SimulationCfg.TickInterval = 0 }, "tick_interval must be a positive duration"},
		{"negative duration", func(c *Config) { c.SimulationCfg.Duration = -time.Second }, "duration must be a positive duration"},
		{"day ratio", func(c *Config) { c.SimulationCfg.DayRatio = 1.2 }, "day_ratio must be between 0.0 and 1.0"},
		{"realtime scale", func(c *Config) { c.SimulationCfg.Realtime = true; c.SimulationCfg.TimeScale = 0 }, "time_scale must be positive"},
		{"goal distance", func(c *Config) { c.AgentCfg.GoalDistance = 0 }, "agent.goal_distance must be positive"},
		{"speed", func(c *Config) { c.AgentCfg.Speed = -1 }, "agent.speed must be positive"},
		{"concurrency", func(c *Config) { c.EngineCfg.Concurrency = 0 }, "engine.concurrency must be a positive integer"},
		{"runs", func(c *Config) { c.EngineCfg.Runs = 0 }, "engine.runs must be a positive integer"},
		{"report format", func(c *Config) { c.ReportCfg.Format = "sarif" }, "report.format must be json or text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("realtime disabled ignores time scale", func(t *testing.T) {
		s := SimulationConfig{TickInterval: time.Second, Duration: time.Minute, DayRatio: 0.5}
		assert.NoError(t, s.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
simulation:
  tick_interval: 100ms
  duration: 30s
  seed: 42
  strict_capacity: true
planner:
  debug: true
engine:
  runs: 25
report:
  format: json
`)
		v := viper.New()
		SetDefaults(v) // Set defaults first
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 100*time.Millisecond, cfg.Simulation().TickInterval)
		assert.Equal(t, 30*time.Second, cfg.Simulation().Duration)
		assert.Equal(t, uint64(42), cfg.Simulation().Seed)
		assert.True(t, cfg.Simulation().StrictCapacity)
		assert.True(t, cfg.Planner().Debug)
		assert.Equal(t, 25, cfg.Engine().Runs)
		assert.Equal(t, "json", cfg.Report().Format)
		// Check a default value was also loaded
		assert.Equal(t, "info", cfg.Logger().Level)
		assert.Equal(t, 4, cfg.Engine().Concurrency)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("engine.concurrency", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "engine.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		yamlConfig := []byte(`
database:
  url: "postgres://configfile/db"
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)), "Failed to read mock config buffer")

		testDBURL := "postgres://envvar/db"
		t.Setenv(DatabaseURLEnv, testDBURL)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		// The env var overrides the value from the config buffer.
		assert.Equal(t, testDBURL, cfg.Database().URL)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/goapsim.log
  colors:
    info: blue
agent:
  speed: 2.5
`
	v := viper.New()
	SetDefaults(v) // Set defaults first
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/goapsim.log", cfg.Logger().LogFile)
	assert.Equal(t, "blue", cfg.Logger().Colors.Info)
	assert.Equal(t, "red", cfg.Logger().Colors.Error)
	assert.Equal(t, 2.5, cfg.Agent().Speed)
	assert.Equal(t, 0.5, cfg.Agent().GoalDistance)
}
