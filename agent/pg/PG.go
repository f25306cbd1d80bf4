// Package pg implements the Monte-Carlo policy gradient (REINFORCE)
// training loop.
//
// After each sampled episode, the discounted returns of the episode
// are normalized and stored in a Buffer together with the states and
// actions of the episode. Once the Buffer holds a full batch, the
// policy is trained on several random batches after every episode.
package pg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/dotarl/agent/policy"
	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/experiment"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	"github.com/samuelfneumann/dotarl/network"
	ts "github.com/samuelfneumann/dotarl/timestep"
	"github.com/samuelfneumann/dotarl/utils/progressbar"
)

var log = logging.MustGetLogger("dotarl.pg")

const (
	// RewardsFile holds every raw reward seen while training
	RewardsFile string = "saved_rewards.gob"

	// BufferFile holds the training Buffer
	BufferFile string = "buffer.gob"

	// PerformanceFile holds the total reward of each evaluation episode
	PerformanceFile string = "performance.gob"
)

// PG implements the policy gradient training loop
type PG struct {
	env        environment.Environment
	numActions int
	net        network.Estimator
	config     Config
	dir        string

	epsilon   float64
	behaviour *policy.EGreedy
	buffer    *Buffer
	rewards   *trackers.RewardHistory

	progress io.Writer
}

// New creates and returns a new policy gradient training loop for the
// policy net. The reward history and buffer are saved into dir.
func New(env environment.Environment, net network.Estimator, c Config,
	dir string, seed uint64) (*PG, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if err := environment.ValidateDiscreteActions(env); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	numActions := env.ActionSpec().Size
	features := env.ObservationSpec().Size
	if net.Outputs() != numActions || net.Features() != features {
		return nil, fmt.Errorf("new: policy maps %v features to %v "+
			"actions, environment has %v features and %v actions",
			net.Features(), net.Outputs(), features, numActions)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &PG{
		env:        env,
		numActions: numActions,
		net:        net,
		config:     c,
		dir:        dir,
		epsilon:    c.Epsilon,
		behaviour:  policy.NewEGreedy(seed),
		buffer:     NewBuffer(features, seed+1),
		rewards:    trackers.NewRewardHistory(filepath.Join(dir, RewardsFile)),
		progress:   io.Discard,
	}, nil
}

// SetProgress sets where the progress of offline training is displayed
func (p *PG) SetProgress(w io.Writer) {
	p.progress = w
}

// Epsilon returns the current behaviour ε
func (p *PG) Epsilon() float64 {
	return p.epsilon
}

// Buffer returns the training Buffer
func (p *PG) Buffer() *Buffer {
	return p.buffer
}

// Rewards returns every raw reward seen while training
func (p *PG) Rewards() []float64 {
	return p.rewards.Rewards()
}

// Train trains the policy online for the configured number of episodes
func (p *PG) Train() error {
	for episode := 0; episode < p.config.Episodes; episode++ {
		if err := p.trainEpisode(episode); err != nil {
			return fmt.Errorf("train: episode %v: %w", episode, err)
		}
	}
	log.Info("finished training")
	return nil
}

func (p *PG) trainEpisode(episode int) error {
	states, actions, rewards, err := p.sampleEpisode(p.epsilon)
	if err != nil {
		return err
	}
	log.Infof("finished episode %v with total reward %v. eps=%.4f",
		episode, floats.Sum(rewards), p.epsilon)

	if err := p.rewards.Extend(rewards); err != nil {
		return err
	}

	returns := Normalize(DiscountedReturns(rewards, p.config.Discount))
	if err := p.buffer.Extend(states, actions, returns); err != nil {
		return err
	}

	p.epsilon *= p.config.EpsUpdate

	if p.buffer.Len() >= p.config.BatchSize {
		for i := 0; i < p.config.Updates; i++ {
			batchStates, batchActions, batchReturns, err :=
				p.buffer.Sample(p.config.BatchSize)
			if err != nil {
				return err
			}
			if err := p.update(batchStates, batchActions,
				batchReturns); err != nil {
				return err
			}
		}
		p.logParameters()
	}

	return p.buffer.Save(filepath.Join(p.dir, BufferFile))
}

// sampleEpisode runs an episode for at most BatchSize steps and returns
// the states, actions and rewards of the episode. Steps taken in empty
// states are not returned.
func (p *PG) sampleEpisode(epsilon float64) ([][]float64, []int, []float64,
	error) {
	var states [][]float64
	var actions []int
	var rewards []float64

	step, err := p.env.Reset()
	if err != nil {
		return nil, nil, nil, err
	}

	for i := 0; i < p.config.BatchSize && !step.Last(); i++ {
		action, err := p.selectAction(step.Observation, epsilon)
		if err != nil {
			return nil, nil, nil, err
		}

		next, err := p.env.Execute(action)
		if err != nil {
			return nil, nil, nil, err
		}

		if len(step.Observation) > 0 {
			states = append(states, step.Observation)
			actions = append(actions, action)
			rewards = append(rewards, next.Reward)
		} else {
			log.Debugf("step %v: dropping action taken in empty state", i)
		}
		log.Debugf("step %v state: %v, action: %v", i, step.Observation,
			action)
		step = next
	}

	return states, actions, rewards, nil
}

// selectAction selects an action ε-greedily with respect to the action
// probabilities of the policy. Actions in empty states are selected
// uniformly at random.
func (p *PG) selectAction(state []float64, epsilon float64) (int, error) {
	if len(state) == 0 {
		return p.behaviour.SelectAction(make([]float64, p.numActions), 1.0),
			nil
	}

	probs, err := p.net.Predict([][]float64{state})
	if err != nil {
		return 0, fmt.Errorf("selectAction: %w", err)
	}
	return p.behaviour.SelectAction(probs.RawRowView(0), epsilon), nil
}

func (p *PG) update(states [][]float64, actions []int,
	returns []float64) error {
	log.Debugf("training network on batch: states (%v, %v), actions %v, "+
		"returns %v", len(states), p.net.Features(), len(actions),
		len(returns))

	_, err := p.net.Update(states, actions, returns)
	return err
}

// TrainOnReplay trains the policy offline on the saved Buffer, in
// sequential batches of batchSize steps, for epochs passes over the
// Buffer
func (p *PG) TrainOnReplay(batchSize, epochs int) error {
	if batchSize < 1 {
		return fmt.Errorf("trainOnReplay: batch size must be positive, "+
			"have %v", batchSize)
	}
	if err := p.buffer.Load(filepath.Join(p.dir, BufferFile)); err != nil {
		return fmt.Errorf("trainOnReplay: %w", err)
	}

	batches := (p.buffer.Len() + batchSize - 1) / batchSize
	bar := progressbar.NewManualProgressBar(p.progress, 40, epochs*batches)
	for epoch := 0; epoch < epochs; epoch++ {
		for start := 0; start < p.buffer.Len(); start += batchSize {
			states, actions, returns, err := p.buffer.Batch(start, batchSize)
			if err != nil {
				return fmt.Errorf("trainOnReplay: %w", err)
			}
			if err := p.update(states, actions, returns); err != nil {
				return fmt.Errorf("trainOnReplay: epoch %v: %w", epoch, err)
			}
			bar.Increment()
		}
		bar.SetLabel(fmt.Sprintf("epoch %v/%v", epoch+1, epochs))
		bar.Display()
		log.Debugf("training: epoch %v", epoch)
	}
	bar.Finish()
	return nil
}

// ShowPerformance runs the policy with ε fixed to EvalEpsilon, without
// learning, and returns the total reward of each episode. Episodes are
// cut off after BatchSize steps, as during training.
func (p *PG) ShowPerformance() ([]float64, error) {
	env := environment.NewLimited(p.env, p.config.BatchSize)
	agent := experiment.AgentFunc(func(t ts.TimeStep) (int, error) {
		return p.selectAction(t.Observation, p.config.EvalEpsilon)
	})

	returns := trackers.NewReturn(filepath.Join(p.dir, PerformanceFile), 1.0)
	exp := experiment.NewOnline(env, agent, p.config.Episodes, returns)

	for episode := 0; episode < p.config.Episodes; episode++ {
		if _, err := exp.RunEpisode(); err != nil {
			return nil, fmt.Errorf("showPerformance: episode %v: %w",
				episode, err)
		}
		reward, _ := returns.LastReturn()
		log.Infof("finished episode %v with total reward %v. eps=%v",
			episode, reward, p.config.EvalEpsilon)
	}

	if err := exp.Save(); err != nil {
		return nil, fmt.Errorf("showPerformance: %w", err)
	}
	return returns.Returns(), nil
}

// logParameters logs the norm of each parameter of the policy
func (p *PG) logParameters() {
	for i, param := range p.net.Parameters() {
		log.Debugf("parameter %v: norm %.4f", i, mat.Norm(param, 2))
	}
}
