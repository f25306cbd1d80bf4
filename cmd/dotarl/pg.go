package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/dotarl/agent/pg"
	"github.com/samuelfneumann/dotarl/config"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/network"
)

// PGDir is the directory of the experiment directory the policy
// gradient loop saves into
const PGDir string = "pg"

var (
	show         bool
	replayBatch  int
	replayEpochs int
)

// newPG creates the policy gradient loop for env
func newPG(c *config.Config, env environment.Environment) (*pg.PG, error) {
	net, err := network.NewPolicyNetwork(env.ObservationSpec().Size,
		env.ActionSpec().Size, c.Network, c.Experiment.Seed)
	if err != nil {
		return nil, err
	}
	return pg.New(env, net, c.PG, filepath.Join(c.Experiment.Dir, PGDir),
		c.Experiment.Seed)
}

// showPerformance evaluates p and logs the mean episode reward
func showPerformance(p *pg.PG) error {
	rewards, err := p.ShowPerformance()
	if err != nil {
		return err
	}
	log.Infof("mean reward over %v evaluation episodes: %.3f", len(rewards),
		stat.Mean(rewards, nil))
	return nil
}

func PGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pg",
		Short: "Train a policy with REINFORCE",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := conf
			if err := c.Write(c.Experiment.Dir); err != nil {
				return err
			}

			return withEnvironment(cmd.Context(), c,
				func(env environment.Environment) error {
					p, err := newPG(c, env)
					if err != nil {
						return fmt.Errorf("pg: %w", err)
					}

					if show {
						if err := showPerformance(p); err != nil {
							return fmt.Errorf("pg: %w", err)
						}
						return nil
					}
					if err := p.Train(); err != nil {
						return fmt.Errorf("pg: %w", err)
					}
					return nil
				})
		},
	}

	cmd.Flags().BoolVar(&show, "show", false,
		"evaluate the policy instead of training it")
	return cmd
}

func PGReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pg-replay",
		Short: "Train a policy offline on the buffer saved by pg",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := conf
			batch, epochs := c.PG.ReplayBatchSize, c.PG.ReplayEpochs
			if cmd.Flags().Changed("batch-size") {
				batch = replayBatch
			}
			if cmd.Flags().Changed("epochs") {
				epochs = replayEpochs
			}

			return withEnvironment(cmd.Context(), c,
				func(env environment.Environment) error {
					p, err := newPG(c, env)
					if err != nil {
						return fmt.Errorf("pg-replay: %w", err)
					}
					p.SetProgress(os.Stderr)

					if err := p.TrainOnReplay(batch, epochs); err != nil {
						return fmt.Errorf("pg-replay: %w", err)
					}
					if show {
						if err := showPerformance(p); err != nil {
							return fmt.Errorf("pg-replay: %w", err)
						}
					}
					return nil
				})
		},
	}

	cmd.Flags().IntVar(&replayBatch, "batch-size", 0,
		"batch size, overriding pg.replay_batch_size")
	cmd.Flags().IntVar(&replayEpochs, "epochs", 0,
		"passes over the buffer, overriding pg.replay_epochs")
	cmd.Flags().BoolVar(&show, "show", false,
		"evaluate the policy after training")
	return cmd
}
