package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/samuelfneumann/dotarl/config"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/environment/bridge"
	"github.com/samuelfneumann/dotarl/environment/lane"
	"github.com/samuelfneumann/dotarl/shaping"
)

// withEnvironment calls run with the configured environment. A bridge
// is served until run returns or ctx is cancelled, and cancelling ctx
// aborts run.
func withEnvironment(ctx context.Context, c *config.Config,
	run func(environment.Environment) error) error {
	switch c.Environment.Kind {
	case config.Lane:
		laneConfig := lane.DefaultConfig(c.Environment.Goal)
		laneConfig.EpisodeSteps = c.Environment.EpisodeSteps
		laneConfig.EmptyTerminal = c.Environment.EmptyTerminal

		env, err := lane.New(laneConfig, c.Experiment.Seed)
		if err != nil {
			return fmt.Errorf("lane: %w", err)
		}
		return run(env)

	case config.Bridge:
		b, err := bridge.New(c.Environment.Bridge)
		if err != nil {
			return fmt.Errorf("bridge: %w", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return b.ListenAndServe(ctx) })
		g.Go(func() error {
			<-ctx.Done()
			return b.Close()
		})
		g.Go(func() error {
			defer cancel()
			return run(b)
		})
		return g.Wait()

	default:
		return fmt.Errorf("unknown environment kind %q", c.Environment.Kind)
	}
}

// numActions returns the number of actions of the configured
// environment
func numActions(c *config.Config) int {
	if c.Environment.Kind == config.Bridge {
		return c.Environment.Bridge.NumActions
	}
	return lane.NumActions
}

// potential returns the configured potential shaping DQN rewards
func potential(c *config.Config) (shaping.Potential, error) {
	switch c.Shaping.Potential {
	case config.GoalPotential:
		goal, err := shaping.NewGoalDistance(c.Shaping.Goal)
		if err != nil {
			return nil, err
		}
		return goal, nil

	case config.DemonstrationPotential:
		states, err := shaping.LoadStatePotential(c.Shaping.ReplayDir,
			c.Shaping.Projection, c.Shaping.Preprocessor())
		if err != nil {
			return nil, err
		}
		return states, nil

	case config.NoPotential:
		return shaping.Zero, nil

	default:
		return nil, fmt.Errorf("unknown potential %q", c.Shaping.Potential)
	}
}
