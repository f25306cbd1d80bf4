package pg

import (
	"fmt"

	"github.com/samuelfneumann/dotarl/agent/policy"
)

// Config implements a configuration of a policy gradient training loop
type Config struct {
	Episodes int `mapstructure:"episodes" yaml:"episodes"`

	// BatchSize is both the maximum length of a sampled episode and the
	// size of the minibatches the policy is trained on
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Behaviour ε is multiplied by EpsUpdate after each episode
	Epsilon   float64 `mapstructure:"epsilon" yaml:"epsilon"`
	EpsUpdate float64 `mapstructure:"eps_update" yaml:"eps_update"`

	// EvalEpsilon is the ε used when showing the performance of a
	// trained policy
	EvalEpsilon float64 `mapstructure:"eval_epsilon" yaml:"eval_epsilon"`

	Discount float64 `mapstructure:"discount" yaml:"discount"`

	// Number of minibatch updates after each episode
	Updates int `mapstructure:"updates" yaml:"updates"`

	// Offline training on a saved buffer
	ReplayBatchSize int `mapstructure:"replay_batch_size" yaml:"replay_batch_size"`
	ReplayEpochs    int `mapstructure:"replay_epochs" yaml:"replay_epochs"`
}

// DefaultConfig returns the default policy gradient configuration
func DefaultConfig() Config {
	return Config{
		Episodes:        100,
		BatchSize:       100,
		Epsilon:         0.7,
		EpsUpdate:       0.99,
		EvalEpsilon:     0.05,
		Discount:        0.99,
		Updates:         10,
		ReplayBatchSize: 500,
		ReplayEpochs:    25,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// policy gradient training loop
func (c Config) Validate() error {
	if c.Episodes < 0 {
		return fmt.Errorf("validate: number of episodes must be "+
			"non-negative, have %v", c.Episodes)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, have %v",
			c.BatchSize)
	}
	if err := policy.Validate(c.Epsilon); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := policy.Validate(c.EvalEpsilon); err != nil {
		return fmt.Errorf("validate: evaluation: %w", err)
	}
	if c.EpsUpdate < 0 || c.EpsUpdate > 1 {
		return fmt.Errorf("validate: ε update must be in [0, 1], have %v",
			c.EpsUpdate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have %v",
			c.Discount)
	}
	if c.Updates < 0 {
		return fmt.Errorf("validate: updates must be non-negative, have %v",
			c.Updates)
	}
	if c.ReplayBatchSize < 1 || c.ReplayEpochs < 0 {
		return fmt.Errorf("validate: offline training needs a positive "+
			"batch size and non-negative epochs, have %v and %v",
			c.ReplayBatchSize, c.ReplayEpochs)
	}
	return nil
}
