// Package config reads the YAML configuration of a training run.
//
// Every field has a default, so a configuration file only needs to
// list the values it changes. Values can also be overridden with
// environment variables prefixed by DOTARL_, with nested keys joined by
// underscores, e.g. DOTARL_DQN_BATCH_SIZE.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/dotarl/agent/deepq"
	"github.com/samuelfneumann/dotarl/agent/pg"
	"github.com/samuelfneumann/dotarl/demonstration"
	"github.com/samuelfneumann/dotarl/environment/bridge"
	"github.com/samuelfneumann/dotarl/network"
	"github.com/samuelfneumann/dotarl/shaping"
)

// EnvPrefix prefixes environment variables overriding configuration
// values
const EnvPrefix string = "DOTARL"

// ResolvedFile is the name of the file the resolved configuration is
// written to in the experiment directory
const ResolvedFile string = "config.yaml"

// Environment kinds
const (
	Lane   string = "lane"
	Bridge string = "bridge"
)

// Potential kinds used to shape rewards of the DQN loop
const (
	GoalPotential          string = "goal"
	DemonstrationPotential string = "demonstrations"
	NoPotential            string = "none"
)

// Experiment configures where a run saves its data
type Experiment struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// Environment configures the environment trained in
type Environment struct {
	Kind string `mapstructure:"kind" yaml:"kind"`

	// Lane environment
	Goal          []float64 `mapstructure:"goal" yaml:"goal"`
	EpisodeSteps  int       `mapstructure:"episode_steps" yaml:"episode_steps"`
	EmptyTerminal bool      `mapstructure:"empty_terminal" yaml:"empty_terminal"`

	Bridge bridge.Config `mapstructure:"bridge" yaml:"bridge"`
}

// Shaping configures the reward shapers
type Shaping struct {
	Potential string    `mapstructure:"potential" yaml:"potential"`
	Goal      []float64 `mapstructure:"goal" yaml:"goal"`

	// Demonstrations of states for the state potential
	ReplayDir  string                   `mapstructure:"replay_dir" yaml:"replay_dir"`
	Projection demonstration.Projection `mapstructure:"projection" yaml:"projection"`
	Scale      []float64                `mapstructure:"scale" yaml:"scale,omitempty"`

	// Demonstration of state-action pairs for action advice
	Observations string `mapstructure:"observations" yaml:"observations"`
}

// Config is the configuration of a training run
type Config struct {
	Experiment  Experiment     `mapstructure:"experiment" yaml:"experiment"`
	Environment Environment    `mapstructure:"environment" yaml:"environment"`
	Shaping     Shaping        `mapstructure:"shaping" yaml:"shaping"`
	DQN         deepq.Config   `mapstructure:"dqn" yaml:"dqn"`
	PG          pg.Config      `mapstructure:"pg" yaml:"pg"`
	Network     network.Config `mapstructure:"network" yaml:"network"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Experiment: Experiment{Dir: "experiments", Seed: 1},
		Environment: Environment{
			Kind:         Lane,
			Goal:         append([]float64(nil), shaping.DefaultGoal...),
			EpisodeSteps: 500,
			Bridge:       bridge.DefaultConfig(),
		},
		Shaping: Shaping{
			Potential:    GoalPotential,
			Goal:         append([]float64(nil), shaping.DefaultGoal...),
			ReplayDir:    "replays",
			Projection:   demonstration.DefaultProjection,
			Observations: filepath.Join("replays", shaping.DefaultObservations),
		},
		DQN:     deepq.DefaultConfig(),
		PG:      pg.DefaultConfig(),
		Network: network.DefaultConfig(),
	}
}

// FromYaml reads the configuration in path. Values missing from the
// file keep their defaults. If path is empty, only defaults and
// environment variables are used.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigType("yaml")
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := setDefaults(vp); err != nil {
		return nil, fmt.Errorf("fromYaml: %w", err)
	}

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("fromYaml: could not read %v: %w", path, err)
		}
	}

	var c Config
	if err := vp.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("fromYaml: could not decode %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("fromYaml: %v: %w", path, err)
	}
	return &c, nil
}

// setDefaults registers every value of the default configuration as a
// viper default, so that viper knows every key
func setDefaults(vp *viper.Viper) error {
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}

	dv := viper.New()
	dv.SetConfigType("yaml")
	if err := dv.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return err
	}
	for _, key := range dv.AllKeys() {
		vp.SetDefault(key, dv.Get(key))
	}
	return nil
}

// Validate returns an error if the configuration is invalid
func (c *Config) Validate() error {
	switch c.Environment.Kind {
	case Lane:
		if len(c.Environment.Goal) != 2 {
			return fmt.Errorf("validate: lane goal must be 2-dimensional")
		}
	case Bridge:
		if err := c.Environment.Bridge.Validate(); err != nil {
			return fmt.Errorf("validate: bridge: %w", err)
		}
	default:
		return fmt.Errorf("validate: unknown environment kind %q",
			c.Environment.Kind)
	}

	switch c.Shaping.Potential {
	case GoalPotential, NoPotential:
	case DemonstrationPotential:
		if err := c.Shaping.Projection.Validate(); err != nil {
			return fmt.Errorf("validate: shaping: %w", err)
		}
		if len(c.Shaping.Scale) != 0 &&
			len(c.Shaping.Scale) != c.Shaping.Projection.Len() {
			return fmt.Errorf("validate: shaping: scale must have one "+
				"value per projected feature")
		}
	default:
		return fmt.Errorf("validate: unknown potential %q",
			c.Shaping.Potential)
	}

	if err := c.DQN.Validate(); err != nil {
		return fmt.Errorf("validate: dqn: %w", err)
	}
	if err := c.PG.Validate(); err != nil {
		return fmt.Errorf("validate: pg: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("validate: network: %w", err)
	}
	return nil
}

// Preprocessor returns the preprocessor applied to demonstration
// states and queries of the state potential
func (s Shaping) Preprocessor() demonstration.Preprocessor {
	if len(s.Scale) == 0 {
		return demonstration.Identity
	}
	return demonstration.Scale(s.Scale)
}

// Write writes the configuration as YAML to ResolvedFile in dir
func (c *Config) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ResolvedFile), out, 0o644)
}
