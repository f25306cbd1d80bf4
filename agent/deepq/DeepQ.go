// Package deepq implements the double deep Q-learning training loop.
//
// The loop first warms up the replay buffer by acting with the
// initial online network, and then trains the online network on
// minibatches sampled from the buffer after every environment step. A
// separate target network, hard-synced with the online network at
// fixed step intervals, evaluates the bootstrapped next-state values.
package deepq

import (
	"fmt"
	"path/filepath"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/dotarl/agent/policy"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/experiment/checkpointer"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	"github.com/samuelfneumann/dotarl/expreplay"
	"github.com/samuelfneumann/dotarl/network"
	"github.com/samuelfneumann/dotarl/shaping"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

var log = logging.MustGetLogger("dotarl.deepq")

// RewardsFile is the name of the file in the experiment directory
// holding the discounted reward of each finished episode
const RewardsFile string = "rewards.gob"

const (
	onlineName = "online"
	targetName = "target"
)

// DeepQ implements the double deep Q-learning training loop
type DeepQ struct {
	env        environment.Environment
	numActions int
	config     Config

	online network.Estimator // Estimator whose weights are learned
	target network.Estimator // Provides next-state values for the target

	replay    *expreplay.Buffer
	builder   *expreplay.TransitionBuilder
	behaviour *policy.EGreedy
	schedule  *policy.Schedule

	checkpoints *checkpointer.Checkpointer
	returns     *trackers.Return

	step    int // Global step, excluding warm-up steps
	episode int // Next episode to run
	loss    float64
}

// New creates and returns a new DeepQ training loop. Rewards are
// shaped with potential p before transitions are stored. If p is nil,
// rewards are shaped by the distance to shaping.DefaultGoal.
// Checkpoints and the reward log are written into dir.
func New(env environment.Environment, online, target network.Estimator,
	p shaping.Potential, c Config, dir string, seed uint64) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	// Ensure the environment and estimators fit together
	if err := environment.ValidateDiscreteActions(env); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	numActions := env.ActionSpec().Size
	features := env.ObservationSpec().Size
	for _, e := range []network.Estimator{online, target} {
		if e.Outputs() != numActions {
			return nil, fmt.Errorf("new: estimator has %v outputs for %v "+
				"actions", e.Outputs(), numActions)
		}
		if e.Features() != features {
			return nil, fmt.Errorf("new: estimator has %v features for "+
				"observations of size %v", e.Features(), features)
		}
	}

	if p == nil {
		goal, err := shaping.NewGoalDistance(shaping.DefaultGoal)
		if err != nil {
			return nil, fmt.Errorf("new: %w", err)
		}
		p = goal
	}
	builder, err := expreplay.NewTransitionBuilder(p, c.Discount)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	replay, err := c.ExpReplay().Create(seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %w", err)
	}

	schedule, err := policy.NewSchedule(c.EpsilonStart, c.EpsilonEnd,
		c.EpsilonDecaySteps)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	checkpoints, err := checkpointer.New(filepath.Join(dir, "checkpoints"),
		c.SnapshotEvery)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &DeepQ{
		env:         env,
		numActions:  numActions,
		config:      c,
		online:      online,
		target:      target,
		replay:      replay,
		builder:     builder,
		behaviour:   policy.NewEGreedy(seed + 1),
		schedule:    schedule,
		checkpoints: checkpoints,
		returns:     trackers.NewReturn(filepath.Join(dir, RewardsFile), c.Discount),
	}, nil
}

// Run runs the training loop: it restores the latest checkpoint if
// configured to, warms up the replay buffer and then trains until the
// configured number of episodes have finished
func (d *DeepQ) Run() error {
	if d.config.Restore {
		if err := d.restore(); err != nil {
			return fmt.Errorf("run: restore: %w", err)
		}
	}

	log.Info("populating replay memory...")
	if err := d.warmup(); err != nil {
		return fmt.Errorf("run: warmup: %w", err)
	}

	for ; d.episode < d.config.NumEpisodes; d.episode++ {
		if err := d.runEpisode(); err != nil {
			return fmt.Errorf("run: episode %v: %w", d.episode, err)
		}
	}

	if err := d.checkpoint(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	log.Info("finished training")
	return nil
}

// Step returns the global step
func (d *DeepQ) Step() int {
	return d.step
}

// Episode returns the number of finished episodes
func (d *DeepQ) Episode() int {
	return d.episode
}

// Returns returns the discounted reward of each finished episode
func (d *DeepQ) Returns() []float64 {
	return d.returns.Returns()
}

// Replay returns the replay buffer
func (d *DeepQ) Replay() *expreplay.Buffer {
	return d.replay
}

// warmup fills the replay buffer with ReplayMemoryInitSize steps of
// experience without learning
func (d *DeepQ) warmup() error {
	step, err := d.env.Reset()
	if err != nil {
		return err
	}

	for i := 0; i < d.config.ReplayMemoryInitSize; i++ {
		action, err := d.selectAction(step.Observation, d.schedule.At(d.step))
		if err != nil {
			return err
		}

		next, err := d.env.Execute(action)
		if err != nil {
			return err
		}
		d.replay.Push(d.builder.Build(step.Observation, action, next.Reward,
			next.Observation, next.Last()))

		if next.Last() {
			if next, err = d.env.Reset(); err != nil {
				return err
			}
		}
		step = next
		log.Debugf("step %v state: %v, action: %v", i, step.Observation,
			action)
	}
	return nil
}

// runEpisode runs and learns from a single episode
func (d *DeepQ) runEpisode() error {
	if err := d.checkpoint(); err != nil {
		return err
	}

	step, err := d.env.Reset()
	if err != nil {
		return err
	}
	d.returns.Track(step)

	for !step.Last() {
		if d.step%d.config.UpdateTargetEvery == 0 {
			if err := network.CopyParameters(d.online, d.target); err != nil {
				return err
			}
			log.Debugf("copied model parameters to target network at "+
				"step %v", d.step)
		}

		epsilon := d.schedule.At(d.step)
		action, err := d.selectAction(step.Observation, epsilon)
		if err != nil {
			return err
		}

		next, err := d.env.Execute(action)
		if err != nil {
			return err
		}
		d.returns.Track(next)
		d.replay.Push(d.builder.Build(step.Observation, action, next.Reward,
			next.Observation, next.Last()))

		if err := d.learn(); err != nil {
			return err
		}

		log.Debugf("step %v (%v) @ episode %v/%v, loss: %v", next.Number,
			d.step, d.episode+1, d.config.NumEpisodes, d.loss)
		step = next
		d.step++
	}

	reward, _ := d.returns.LastReturn()
	log.Infof("finished episode %v with reward %.4f", d.episode, reward)
	return d.returns.Save()
}

// learn takes a gradient step on a minibatch sampled from the replay
// buffer. Nothing is learned while the buffer holds fewer transitions
// than a minibatch.
func (d *DeepQ) learn() error {
	batch, err := d.replay.Sample(d.config.BatchSize)
	if expreplay.IsInsufficientSamples(err) || expreplay.IsEmptyBuffer(err) {
		log.Debugf("skipping update: %v", err)
		return nil
	} else if err != nil {
		return err
	}

	targets, err := Targets(batch, d.online, d.target, d.config.Discount)
	if err != nil {
		return err
	}

	states := make([][]float64, len(batch))
	actions := make([]int, len(batch))
	for i, t := range batch {
		states[i] = t.State
		actions[i] = t.Action
	}

	d.loss, err = d.online.Update(states, actions, targets)
	return err
}

// selectAction selects an action ε-greedily with respect to the online
// network. Empty states cannot be evaluated, so actions in empty states
// are selected uniformly at random.
func (d *DeepQ) selectAction(state []float64, epsilon float64) (int,
	error) {
	if len(state) == 0 {
		return d.behaviour.SelectAction(make([]float64, d.numActions), 1.0),
			nil
	}

	values, err := d.online.Predict([][]float64{state})
	if err != nil {
		return 0, fmt.Errorf("selectAction: %w", err)
	}
	return d.behaviour.SelectAction(values.RawRowView(0), epsilon), nil
}

// Targets returns the double Q-learning update targets of a batch of
// transitions:
//
//	r + γ (1 - done) Q_target(s', argmax_a Q_online(s', a))
func Targets(batch []ts.Transition, online, target network.Estimator,
	discount float64) ([]float64, error) {
	next := make([][]float64, len(batch))
	for i, t := range batch {
		next[i] = t.NextState
	}

	onlineNext, err := online.Predict(next)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	targetNext, err := target.Predict(next)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}

	targets := make([]float64, len(batch))
	for i, t := range batch {
		best := floats.MaxIdx(onlineNext.RawRowView(i))
		targets[i] = t.Reward +
			discount*t.Continuation()*targetNext.At(i, best)
	}
	return targets, nil
}

// checkpoint saves the current state of training
func (d *DeepQ) checkpoint() error {
	cp := checkpointer.NewCheckpoint(d.episode, d.step,
		d.schedule.At(d.step), d.estimators())
	if err := d.checkpoints.Save(cp); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// restore resumes training from the latest checkpoint. A missing
// checkpoint starts training from scratch.
func (d *DeepQ) restore() error {
	cp, ok, err := d.checkpoints.Restore()
	if err != nil {
		return err
	}
	if !ok {
		log.Info("no checkpoint found, starting from scratch")
		return nil
	}

	if err := cp.Apply(d.estimators()); err != nil {
		return err
	}
	d.episode = cp.Episode
	d.step = cp.Step

	if err := d.returns.Restore(); err != nil {
		return err
	}
	d.returns.Truncate(cp.Episode)

	log.Infof("restored checkpoint at episode %v, step %v", d.episode,
		d.step)
	return nil
}

func (d *DeepQ) estimators() map[string]network.Estimator {
	return map[string]network.Estimator{
		onlineName: d.online,
		targetName: d.target,
	}
}
