// Package experiment implements functionality for running a fixed
// policy in an environment and tracking the data it generates, for
// example to evaluate a trained agent
package experiment

import (
	"fmt"

	"github.com/op/go-logging"

	env "github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

var log = logging.MustGetLogger("dotarl.experiment")

// Agent selects actions in an environment
type Agent interface {
	SelectAction(t ts.TimeStep) (int, error)
}

// AgentFunc adapts an ordinary function to the Agent interface
type AgentFunc func(t ts.TimeStep) (int, error)

// SelectAction returns f(t)
func (f AgentFunc) SelectAction(t ts.TimeStep) (int, error) {
	return f(t)
}

// Online is an experiment that runs an agent online for a fixed number
// of episodes. No learning happens in the experiment itself.
//
// Online sends each TimeStep to its Trackers, which determine which
// data generated during the experiment is saved.
type Online struct {
	env.Environment
	Agent
	episodes int
	trackers []trackers.Tracker
}

// NewOnline creates and returns a new online experiment running agent
// a in environment e for the given number of episodes
func NewOnline(e env.Environment, a Agent, episodes int,
	t ...trackers.Tracker) *Online {
	return &Online{e, a, episodes, t}
}

// Register registers a Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Run runs all episodes of the experiment
func (o *Online) Run() error {
	for i := 0; i < o.episodes; i++ {
		last, err := o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: episode %v: %w", i, err)
		}
		log.Infof("episode %v finished after %v steps", i, last.Number)
	}
	return nil
}

// RunEpisode runs a single episode of the experiment and returns its
// last TimeStep
func (o *Online) RunEpisode() (ts.TimeStep, error) {
	step, err := o.Environment.Reset()
	if err != nil {
		return step, fmt.Errorf("runEpisode: could not reset: %w", err)
	}
	o.track(step)

	for !step.Last() {
		action, err := o.Agent.SelectAction(step)
		if err != nil {
			return step, fmt.Errorf("runEpisode: could not select "+
				"action: %w", err)
		}

		step, err = o.Environment.Execute(action)
		if err != nil {
			return step, fmt.Errorf("runEpisode: could not execute "+
				"action %v: %w", action, err)
		}
		o.track(step)
	}
	return step, nil
}

// Save saves the data of all Trackers
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track sends a TimeStep to all Trackers
func (o *Online) track(step ts.TimeStep) {
	for _, t := range o.trackers {
		t.Track(step)
	}
}
