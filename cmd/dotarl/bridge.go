package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/dotarl/agent/policy"
	"github.com/samuelfneumann/dotarl/config"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/experiment"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

// Files holding the episode rewards and lengths of random bridge runs
const (
	BridgeRewardsFile string = "bridge_rewards.gob"
	BridgeLengthsFile string = "bridge_lengths.gob"
)

var bridgeEpisodes int

func BridgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve the bridge and drive the bot with random actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *conf
			c.Environment.Kind = config.Bridge

			return withEnvironment(cmd.Context(), &c,
				func(env environment.Environment) error {
					actions := make([]float64, env.ActionSpec().Size)
					random := policy.NewEGreedy(c.Experiment.Seed)
					agent := experiment.AgentFunc(
						func(ts.TimeStep) (int, error) {
							return random.SelectAction(actions, 1.0), nil
						})

					returns := trackers.NewReturn(filepath.Join(
						c.Experiment.Dir, BridgeRewardsFile), 1.0)
					lengths := trackers.NewEpisodeLength(filepath.Join(
						c.Experiment.Dir, BridgeLengthsFile))
					exp := experiment.NewOnline(env, agent, bridgeEpisodes,
						returns, lengths)
					if err := exp.Run(); err != nil {
						return fmt.Errorf("bridge: %w", err)
					}
					steps := lengths.Lengths()
					for i, r := range returns.Returns() {
						log.Infof("episode %v: %v steps, total reward %v", i,
							steps[i], r)
					}
					return exp.Save()
				})
		},
	}

	cmd.Flags().IntVar(&bridgeEpisodes, "episodes", 1,
		"number of episodes to run")
	return cmd
}
