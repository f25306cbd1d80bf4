package trackers

import (
	"fmt"

	ts "github.com/samuelfneumann/dotarl/timestep"
)

// Return tracks and saves the discounted episodic return in an
// experiment. When an environment returns a TimeStep, this Tracker
// will extract the reward and accumulate the return for each episode.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode in an experiment does not finish, that episode's
// return will not be saved.
type Return struct {
	discount       float64
	weight         float64 // Discount applied to the next reward
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker which saves
// returns discounted by discount to filename
func NewReturn(filename string, discount float64) *Return {
	return &Return{
		discount:     discount,
		weight:       1.0,
		lastTimeStep: -1,
		filename:     filename,
	}
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will accumulate the discounted return
// of the episode and cache it when the episode ends. When a new episode
// starts, this method detects this and starts accumulating the return
// for the new episode separately.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	if step.First() {
		r.reset()
		r.lastTimeStep = step.Number
		return
	}

	// Ensure that Track is called on sequential timesteps
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += r.weight * step.Reward
	r.weight *= r.discount
	r.lastTimeStep = step.Number

	// Episode has ended, save the return and begin tracking the
	// return for a new episode
	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.reset()
	}
}

// LastReturn returns the return of the most recently finished episode
func (r *Return) LastReturn() (float64, bool) {
	if len(r.episodeReturns) == 0 {
		return 0, false
	}
	return r.episodeReturns[len(r.episodeReturns)-1], true
}

// Returns returns a copy of the returns of all finished episodes
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Restore loads previously saved returns so that a resumed run keeps
// appending to them. It is not an error if there is nothing to load.
func (r *Return) Restore() error {
	if !exists(r.filename) {
		return nil
	}
	returns, err := LoadData[float64](r.filename)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	r.episodeReturns = returns
	return nil
}

// Truncate drops all but the first n episode returns, for example to
// roll back to a checkpoint taken after n episodes
func (r *Return) Truncate(n int) {
	if n >= 0 && n < len(r.episodeReturns) {
		r.episodeReturns = r.episodeReturns[:n]
	}
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}

func (r *Return) reset() {
	r.currentReturn = 0.0
	r.weight = 1.0
	r.lastTimeStep = -1
}
