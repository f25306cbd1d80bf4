package trackers

import (
	"fmt"
)

// RewardHistory is a flat history of every raw reward seen during
// training, in the order the rewards were seen. Rewards are appended
// one episode at a time and the history is saved after each episode so
// that it can be analyzed offline while training continues.
type RewardHistory struct {
	rewards  []float64
	filename string
}

// NewRewardHistory returns a new RewardHistory saved to filename
func NewRewardHistory(filename string) *RewardHistory {
	return &RewardHistory{filename: filename}
}

// Restore loads a previously saved history so that new rewards are
// appended to it. It is not an error if there is nothing to load.
func (r *RewardHistory) Restore() error {
	if !exists(r.filename) {
		return nil
	}
	rewards, err := LoadData[float64](r.filename)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	r.rewards = rewards
	return nil
}

// Extend appends the rewards of an episode to the history and saves
// the history
func (r *RewardHistory) Extend(rewards []float64) error {
	r.rewards = append(r.rewards, rewards...)
	return r.Save()
}

// Len returns the number of rewards in the history
func (r *RewardHistory) Len() int {
	return len(r.rewards)
}

// Rewards returns a copy of the history
func (r *RewardHistory) Rewards() []float64 {
	return append([]float64(nil), r.rewards...)
}

// Save saves the history to disk
func (r *RewardHistory) Save() error {
	return save(r.filename, r.rewards)
}
