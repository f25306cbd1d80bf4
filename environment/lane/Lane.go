// Package lane implements a simulated lane environment. A hero spawns
// near its base and must walk to a goal point on the map, such as the
// middle-lane tower. The environment stands in for the game client so
// that the learning loops can run without the game.
package lane

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/dotarl/environment"
	ts "github.com/samuelfneumann/dotarl/timestep"
	"github.com/samuelfneumann/dotarl/utils/floatutils"
)

const (
	// NumActions is the number of compass directions the hero can move in
	NumActions int = 16

	// ObservationSize is the length of an observation: x, y and the
	// fraction of the episode that has elapsed
	ObservationSize int = 3

	// MapMin and MapMax bound both coordinates of the map
	MapMin float64 = -8000.0
	MapMax float64 = 8000.0
)

// MapBounds bounds the position of the hero
var MapBounds = []r1.Interval{
	{Min: MapMin, Max: MapMax},
	{Min: MapMin, Max: MapMax},
}

// SpawnBounds is the default region in which the hero spawns
var SpawnBounds = []r1.Interval{
	{Min: -6900, Max: -6500},
	{Min: -6400, Max: -6000},
}

// Config describes a Lane environment
type Config struct {
	Goal         []float64 // Goal point (x, y)
	GoalRadius   float64   // Distance to the goal that ends the episode
	Stride       float64   // Distance moved per action
	StepReward   float64   // Reward on every non-goal step
	GoalReward   float64   // Reward for reaching the goal
	EpisodeSteps int       // Steps before the episode is cut off

	// EmptyTerminal makes the environment report an empty observation on
	// the last step of an episode, as the game does when a match ends
	EmptyTerminal bool
}

// DefaultConfig returns the default configuration walking to goal
func DefaultConfig(goal []float64) Config {
	return Config{
		Goal:         goal,
		GoalRadius:   300.0,
		Stride:       250.0,
		StepReward:   -1.0,
		GoalReward:   100.0,
		EpisodeSteps: 500,
	}
}

// Lane is the simulated lane environment
type Lane struct {
	starter environment.Starter
	ender   environment.Ender
	config  Config

	position []float64
	step     ts.TimeStep
	started  bool
}

// New returns a new Lane environment with spawn positions sampled
// uniformly from SpawnBounds
func New(c Config, seed uint64) (*Lane, error) {
	return NewWithStarter(c, environment.NewUniformStarter(SpawnBounds, seed))
}

// NewWithStarter returns a new Lane environment using a custom
// starting state distribution
func NewWithStarter(c Config, s environment.Starter) (*Lane, error) {
	if len(c.Goal) != 2 {
		return nil, fmt.Errorf("new: goal must be 2-dimensional, have %v",
			len(c.Goal))
	}
	if c.Stride <= 0 {
		return nil, fmt.Errorf("new: stride must be positive")
	}
	if c.EpisodeSteps < 1 {
		return nil, fmt.Errorf("new: episode steps must be positive")
	}

	return &Lane{
		starter: s,
		ender:   environment.NewStepLimit(c.EpisodeSteps),
		config:  c,
	}, nil
}

// Reset resets the environment and returns the first step of the new
// episode
func (l *Lane) Reset() (ts.TimeStep, error) {
	l.position = l.starter.Start()
	l.step = ts.New(ts.First, 0.0, l.observation(0), 0)
	l.started = true
	return l.step, nil
}

// Execute moves the hero one stride in the direction given by action.
// Direction i points at angle 2πi/NumActions.
func (l *Lane) Execute(action int) (ts.TimeStep, error) {
	if !l.started {
		return ts.TimeStep{}, fmt.Errorf("execute: environment must be " +
			"reset before executing actions")
	}
	if l.step.Last() {
		return ts.TimeStep{}, fmt.Errorf("execute: episode is over")
	}
	if action < 0 || action >= NumActions {
		return ts.TimeStep{}, fmt.Errorf("execute: illegal action %v", action)
	}

	angle := 2 * math.Pi * float64(action) / float64(NumActions)
	l.position[0] += l.config.Stride * math.Cos(angle)
	l.position[1] += l.config.Stride * math.Sin(angle)
	floatutils.ClipPoint(l.position, MapBounds)

	number := l.step.Number + 1
	reward := l.config.StepReward
	stepType := ts.Mid
	if floats.Distance(l.position, l.config.Goal, 2) <= l.config.GoalRadius {
		reward = l.config.GoalReward
		stepType = ts.Last
	}

	step := ts.New(stepType, reward, l.observation(number), number)
	l.ender.End(&step)
	if step.Last() && l.config.EmptyTerminal {
		step = ts.New(ts.Last, step.Reward, []float64{}, step.Number)
	}

	l.step = step
	return step, nil
}

// Position returns a copy of the hero's position
func (l *Lane) Position() []float64 {
	return append([]float64(nil), l.position...)
}

// ObservationSpec returns the observation specification of the
// environment
func (l *Lane) ObservationSpec() environment.Spec {
	return environment.NewSpec(ObservationSize, environment.Observation,
		environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (l *Lane) ActionSpec() environment.Spec {
	return environment.NewSpec(NumActions, environment.Action,
		environment.Discrete)
}

func (l *Lane) observation(number int) []float64 {
	elapsed := float64(number) / float64(l.config.EpisodeSteps)
	return []float64{l.position[0], l.position[1], elapsed}
}
