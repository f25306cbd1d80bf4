package demonstration

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// HeroInfoSize is the number of hero features in a recorded step
	HeroInfoSize int = 11

	// EnemyInfoSize is the number of enemy features in a recorded step
	EnemyInfoSize int = 6

	// AdviceStateSize is the length of a state vector used for action
	// advice: the previous action followed by hero and enemy features
	AdviceStateSize int = 1 + HeroInfoSize + EnemyInfoSize
)

// Pair is a demonstrated state together with the action taken in it
type Pair struct {
	State  []float64
	Action int
}

// Pairs is a demonstration made of state-action pairs
type Pairs []Pair

// Len returns the number of pairs in the demonstration
func (p Pairs) Len() int {
	return len(p)
}

// ObservedState is the state of a single recorded step
type ObservedState struct {
	HeroInfo  []float64 `json:"hero_info"`
	EnemyInfo []float64 `json:"enemy_info"`
}

// Observation is a single recorded step of an observation file
type Observation struct {
	State  *ObservedState `json:"state"`
	Action *int           `json:"action"`
}

// validate checks that an Observation matches the expected schema
func (o Observation) validate() error {
	if o.State == nil {
		return errors.New("missing state")
	}
	if o.Action == nil {
		return errors.New("missing action")
	}
	if len(o.State.HeroInfo) != HeroInfoSize {
		return fmt.Errorf("hero_info has %v features, want %v",
			len(o.State.HeroInfo), HeroInfoSize)
	}
	if len(o.State.EnemyInfo) != EnemyInfoSize {
		return fmt.Errorf("enemy_info has %v features, want %v",
			len(o.State.EnemyInfo), EnemyInfoSize)
	}
	return nil
}

// AdviceState builds the action-advice state vector for a step, given
// the action taken on the previous step
func AdviceState(prevAction, numActions int, s ObservedState) []float64 {
	state := make([]float64, AdviceStateSize)
	state[0] = float64(prevAction) / (float64(numActions) - 1.0)
	copy(state[1:1+HeroInfoSize], s.HeroInfo)
	copy(state[1+HeroInfoSize:], s.EnemyInfo)
	return state
}

// PairsProcessor returns a Processor which reads newline-delimited JSON
// observations and builds a Pairs demonstration.
//
// Steps whose action is outside [0, numActions) are dropped. The
// previous action is embedded as the first feature of each state, and
// only retained steps count as previous actions. Blank lines are
// skipped.
func PairsProcessor(numActions int) Processor[Pairs] {
	return func(name string, r io.Reader) (Pairs, error) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var demo Pairs
		lastAction := 0
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Bytes()
			if len(text) == 0 {
				continue
			}

			var obs Observation
			if err := json.Unmarshal(text, &obs); err != nil {
				return nil, &ParseError{File: name, Line: line, Err: err}
			}
			if err := obs.validate(); err != nil {
				return nil, &ParseError{File: name, Line: line, Err: err}
			}

			action := *obs.Action
			if action < 0 || action >= numActions {
				log.Debugf("%v:%v: dropping step with action %v", name,
					line, action)
				continue
			}

			demo = append(demo, Pair{
				State:  AdviceState(lastAction, numActions, *obs.State),
				Action: action,
			})
			lastAction = action
		}
		if err := scanner.Err(); err != nil {
			return nil, &ParseError{File: name, Line: line, Err: err}
		}

		return demo, nil
	}
}

// LoadPairs loads a single observation file as a Pairs demonstration
func LoadPairs(path string, numActions int) (Pairs, error) {
	if numActions < 2 {
		return nil, fmt.Errorf("loadPairs: need at least 2 actions, have %v",
			numActions)
	}
	return LoadFile(path, PairsProcessor(numActions))
}
