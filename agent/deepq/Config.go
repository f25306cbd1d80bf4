package deepq

import (
	"fmt"

	"github.com/samuelfneumann/dotarl/agent/policy"
	"github.com/samuelfneumann/dotarl/expreplay"
)

// Config implements a configuration for a DeepQ training loop
type Config struct {
	NumEpisodes int `mapstructure:"num_episodes" yaml:"num_episodes"`

	// Experience replay parameters
	ReplayMemorySize     int                    `mapstructure:"replay_memory_size" yaml:"replay_memory_size"`
	ReplayMemoryInitSize int                    `mapstructure:"replay_memory_init_size" yaml:"replay_memory_init_size"`
	SampleMethod         expreplay.SelectorType `mapstructure:"sample_method" yaml:"sample_method"`
	BatchSize            int                    `mapstructure:"batch_size" yaml:"batch_size"`

	// Number of steps between hard target network updates
	UpdateTargetEvery int `mapstructure:"update_target_every" yaml:"update_target_every"`

	Discount float64 `mapstructure:"discount" yaml:"discount"`

	// Behaviour policy ε decays linearly from EpsilonStart to EpsilonEnd
	// over EpsilonDecaySteps steps
	EpsilonStart      float64 `mapstructure:"epsilon_start" yaml:"epsilon_start"`
	EpsilonEnd        float64 `mapstructure:"epsilon_end" yaml:"epsilon_end"`
	EpsilonDecaySteps int     `mapstructure:"epsilon_decay_steps" yaml:"epsilon_decay_steps"`

	// Restore resumes from the latest checkpoint if there is one
	Restore bool `mapstructure:"restore" yaml:"restore"`

	// Every SnapshotEvery'th checkpoint is kept in its own file. Zero
	// disables snapshots.
	SnapshotEvery int `mapstructure:"snapshot_every" yaml:"snapshot_every"`
}

// DefaultConfig returns the default DeepQ configuration
func DefaultConfig() Config {
	return Config{
		NumEpisodes:          200,
		ReplayMemorySize:     500_000,
		ReplayMemoryInitSize: 500,
		SampleMethod:         expreplay.Uniform,
		BatchSize:            32,
		UpdateTargetEvery:    1000,
		Discount:             0.999,
		EpsilonStart:         1.0,
		EpsilonEnd:           0.1,
		EpsilonDecaySteps:    10_000,
		Restore:              true,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ training loop
func (c Config) Validate() error {
	if c.NumEpisodes < 0 {
		return fmt.Errorf("validate: number of episodes must be "+
			"non-negative, have %v", c.NumEpisodes)
	}

	if c.ReplayMemorySize < 1 {
		return fmt.Errorf("validate: replay memory size must be positive, "+
			"have %v", c.ReplayMemorySize)
	}

	if c.ReplayMemoryInitSize < 0 ||
		c.ReplayMemoryInitSize > c.ReplayMemorySize {
		return fmt.Errorf("validate: replay memory init size must be in "+
			"[0, %v], have %v", c.ReplayMemorySize, c.ReplayMemoryInitSize)
	}

	if c.BatchSize < 1 || c.BatchSize > c.ReplayMemorySize {
		return fmt.Errorf("validate: batch size must be in [1, %v], have %v",
			c.ReplayMemorySize, c.BatchSize)
	}

	if c.UpdateTargetEvery < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive step intervals \n\twant(>0) \n\thave(%v)",
			c.UpdateTargetEvery)
	}

	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have %v",
			c.Discount)
	}

	if _, err := policy.NewSchedule(c.EpsilonStart, c.EpsilonEnd,
		c.EpsilonDecaySteps); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if c.SnapshotEvery < 0 {
		return fmt.Errorf("validate: snapshot interval must be "+
			"non-negative, have %v", c.SnapshotEvery)
	}

	return nil
}

// ExpReplay returns the configuration of the replay buffer
func (c Config) ExpReplay() expreplay.Config {
	return expreplay.Config{
		SampleMethod: c.SampleMethod,
		Capacity:     c.ReplayMemorySize,
	}
}
