package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/dotarl/agent/deepq"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/network"
)

// DQNDir is the directory of the experiment directory the DQN loop
// saves into
const DQNDir string = "dqn"

func DQNCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dqn",
		Short: "Train a deep Q-network with shaped rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := conf
			if err := c.Write(c.Experiment.Dir); err != nil {
				return err
			}

			p, err := potential(c)
			if err != nil {
				return fmt.Errorf("dqn: %w", err)
			}

			return withEnvironment(cmd.Context(), c,
				func(env environment.Environment) error {
					features := env.ObservationSpec().Size
					actions := env.ActionSpec().Size
					seed := c.Experiment.Seed

					online, err := network.NewQNetwork(features, actions,
						c.Network, seed)
					if err != nil {
						return fmt.Errorf("dqn: %w", err)
					}
					target, err := network.NewQNetwork(features, actions,
						c.Network, seed+1)
					if err != nil {
						return fmt.Errorf("dqn: %w", err)
					}

					d, err := deepq.New(env, online, target, p, c.DQN,
						filepath.Join(c.Experiment.Dir, DQNDir), seed)
					if err != nil {
						return fmt.Errorf("dqn: %w", err)
					}
					if err := d.Run(); err != nil {
						return fmt.Errorf("dqn: %w", err)
					}
					log.Infof("trained for %v episodes and %v steps",
						d.Episode(), d.Step())
					return nil
				})
		},
	}
}
