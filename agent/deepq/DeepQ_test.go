package deepq

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/dotarl/environment"
	"github.com/samuelfneumann/dotarl/environment/lane"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	"github.com/samuelfneumann/dotarl/network"
	"github.com/samuelfneumann/dotarl/shaping"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

// chain is an environment whose episodes always last length steps,
// each rewarded with 1. Observations are (step, 0, 0).
type chain struct {
	length        int
	emptyTerminal bool
	current       int
	resets        int
}

func (c *chain) Reset() (ts.TimeStep, error) {
	c.current = 0
	c.resets++
	return ts.New(ts.First, 0, []float64{0, 0, 0}, 0), nil
}

func (c *chain) Execute(action int) (ts.TimeStep, error) {
	if action < 0 || action >= 4 {
		return ts.TimeStep{}, fmt.Errorf("illegal action %v", action)
	}
	c.current++
	if c.current == c.length {
		obs := []float64{float64(c.current), 0, 0}
		if c.emptyTerminal {
			obs = nil
		}
		return ts.New(ts.Last, 1, obs, c.current), nil
	}
	return ts.New(ts.Mid, 1, []float64{float64(c.current), 0, 0},
		c.current), nil
}

func (c *chain) ObservationSpec() environment.Spec {
	return environment.NewSpec(3, environment.Observation,
		environment.Continuous)
}

func (c *chain) ActionSpec() environment.Spec {
	return environment.NewSpec(4, environment.Action, environment.Discrete)
}

// fakeEstimator predicts value(state, action) and counts calls
type fakeEstimator struct {
	features, outputs int
	value             func(state []float64, action int) float64
	params            []*mat.Dense

	updates int
	sets    int
}

func newFakeEstimator(value func([]float64, int) float64) *fakeEstimator {
	return &fakeEstimator{
		features: 3,
		outputs:  4,
		value:    value,
		params:   []*mat.Dense{mat.NewDense(1, 1, []float64{1})},
	}
}

func (f *fakeEstimator) Predict(states [][]float64) (*mat.Dense, error) {
	out := mat.NewDense(len(states), f.outputs, nil)
	for i, s := range states {
		if len(s) != f.features {
			return nil, fmt.Errorf("state %v has wrong length", s)
		}
		for a := 0; a < f.outputs; a++ {
			out.Set(i, a, f.value(s, a))
		}
	}
	return out, nil
}

func (f *fakeEstimator) Update(states [][]float64, actions []int,
	targets []float64) (float64, error) {
	if len(states) != len(actions) || len(states) != len(targets) {
		return 0, fmt.Errorf("mismatched batch")
	}
	for _, s := range states {
		if len(s) == 0 {
			return 0, fmt.Errorf("empty state in batch")
		}
	}
	f.updates++
	f.params[0].Set(0, 0, f.params[0].At(0, 0)+1)
	return 0.5, nil
}

func (f *fakeEstimator) Parameters() []*mat.Dense {
	return []*mat.Dense{mat.DenseCopyOf(f.params[0])}
}

func (f *fakeEstimator) SetParameters(params []*mat.Dense) error {
	f.sets++
	f.params = []*mat.Dense{mat.DenseCopyOf(params[0])}
	return nil
}

func (f *fakeEstimator) Features() int { return f.features }
func (f *fakeEstimator) Outputs() int  { return f.outputs }

func zeroValue([]float64, int) float64 { return 0 }

func testConfig() Config {
	c := DefaultConfig()
	c.NumEpisodes = 3
	c.ReplayMemorySize = 100
	c.ReplayMemoryInitSize = 4
	c.BatchSize = 2
	c.UpdateTargetEvery = 3
	c.Discount = 0.5
	c.EpsilonDecaySteps = 10
	return c
}

func TestTargets(t *testing.T) {
	// Online prefers the last action in any state with positive x,
	// which the target network values at 10 - 3 = 7
	online := newFakeEstimator(func(s []float64, a int) float64 {
		return s[0] * float64(a)
	})
	target := newFakeEstimator(func(s []float64, a int) float64 {
		return 10 - float64(a)
	})

	batch := []ts.Transition{
		ts.NewTransition([]float64{0, 0, 0}, 1, 1, []float64{1, 0, 0}, false),
		ts.NewTransition([]float64{1, 0, 0}, 2, 2, []float64{2, 0, 0}, true),
		ts.NewTransition([]float64{1, 0, 0}, 0, -1, []float64{0, 0, 0}, false),
	}

	targets, err := Targets(batch, online, target, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	// In the last transition all online values tie and the first
	// action, valued 10 by the target, is selected
	want := []float64{1 + 0.9*7, 2, -1 + 0.9*10}
	for i := range want {
		if math.Abs(targets[i]-want[i]) > 1e-12 {
			t.Errorf("target %v: have %v, want %v", i, targets[i], want[i])
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	env := &chain{length: 5}
	online := newFakeEstimator(zeroValue)
	target := newFakeEstimator(zeroValue)

	d, err := New(env, online, target, shaping.Zero, testConfig(), dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	if d.Step() != 15 {
		t.Errorf("global step %v, want 15", d.Step())
	}
	if online.updates != 15 {
		t.Errorf("online network updated %v times, want 15", online.updates)
	}

	// Target syncs at steps 0, 3, 6, 9 and 12
	if target.sets != 5 {
		t.Errorf("target network synced %v times, want 5", target.sets)
	}

	// 4 warm-up transitions and 15 training transitions
	if d.Replay().Len() != 19 {
		t.Errorf("replay buffer holds %v transitions, want 19",
			d.Replay().Len())
	}

	saved, err := trackers.LoadData[float64](filepath.Join(dir, RewardsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 3 {
		t.Fatalf("saved %v episode rewards, want 3", len(saved))
	}
	for _, r := range saved {
		if math.Abs(r-1.9375) > 1e-12 {
			t.Errorf("episode reward %v, want 1.9375", r)
		}
	}
}

func TestRunResumes(t *testing.T) {
	dir := t.TempDir()
	config := testConfig()

	first := newFakeEstimator(zeroValue)
	d, err := New(&chain{length: 5}, first, newFakeEstimator(zeroValue),
		shaping.Zero, config, dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	config.NumEpisodes = 5
	online := newFakeEstimator(zeroValue)
	resumed, err := New(&chain{length: 5}, online,
		newFakeEstimator(zeroValue), shaping.Zero, config, dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := resumed.Run(); err != nil {
		t.Fatal(err)
	}

	if resumed.Episode() != 5 || resumed.Step() != 25 {
		t.Errorf("resumed run ended at episode %v step %v, want 5 and 25",
			resumed.Episode(), resumed.Step())
	}
	if online.updates != 10 {
		t.Errorf("resumed run made %v updates, want 10", online.updates)
	}

	// The online network restarts from the 15 updates of the first run
	if got := online.params[0].At(0, 0); got != 1+15+10 {
		t.Errorf("online parameter %v, want 26", got)
	}
	if got := len(resumed.Returns()); got != 5 {
		t.Errorf("have %v episode rewards, want 5", got)
	}
}

func TestRunWithoutRestore(t *testing.T) {
	dir := t.TempDir()
	config := testConfig()
	config.NumEpisodes = 1
	config.Restore = false

	for i := 0; i < 2; i++ {
		d, err := New(&chain{length: 5}, newFakeEstimator(zeroValue),
			newFakeEstimator(zeroValue), shaping.Zero, config, dir, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := d.Run(); err != nil {
			t.Fatal(err)
		}
		if d.Step() != 5 || len(d.Returns()) != 1 {
			t.Errorf("run %v: step %v with %v rewards, want 5 and 1", i,
				d.Step(), len(d.Returns()))
		}
	}
}

func TestRunDiscardsEmptyStates(t *testing.T) {
	env := &chain{length: 5, emptyTerminal: true}
	d, err := New(env, newFakeEstimator(zeroValue),
		newFakeEstimator(zeroValue), shaping.Zero, testConfig(), t.TempDir(),
		1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	// The last transition of each of the 3 episodes is discarded, and the
	// 4 warm-up steps never reach a terminal step
	if d.Replay().Len() != 4+3*4 {
		t.Errorf("replay buffer holds %v transitions, want 16",
			d.Replay().Len())
	}
	for i := 0; i < d.Replay().Len(); i++ {
		tr := d.Replay().At(i)
		if len(tr.State) == 0 || len(tr.NextState) == 0 {
			t.Errorf("stored transition %v has an empty state", tr)
		}
	}
}

func TestShapedTransitions(t *testing.T) {
	config := testConfig()
	config.NumEpisodes = 0
	potential := shaping.PotentialFunc(func(s []float64) float64 {
		return s[0]
	})

	d, err := New(&chain{length: 5}, newFakeEstimator(zeroValue),
		newFakeEstimator(zeroValue), potential, config, t.TempDir(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	// Warm-up step i moves from x = i to x = i+1, shaping the reward to
	// 1 + 0.5(i+1) - i
	for i := 0; i < d.Replay().Len(); i++ {
		want := 1 + 0.5*float64(i+1) - float64(i)
		if got := d.Replay().At(i).Reward; math.Abs(got-want) > 1e-12 {
			t.Errorf("transition %v: reward %v, want %v", i, got, want)
		}
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"batch larger than memory", func(c *Config) { c.BatchSize = 101 }},
		{"init larger than memory", func(c *Config) {
			c.ReplayMemoryInitSize = 101
		}},
		{"zero target interval", func(c *Config) { c.UpdateTargetEvery = 0 }},
		{"discount", func(c *Config) { c.Discount = 1.5 }},
		{"epsilon", func(c *Config) { c.EpsilonStart = 2 }},
		{"decay steps", func(c *Config) { c.EpsilonDecaySteps = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testConfig()
			test.modify(&c)
			_, err := New(&chain{length: 5}, newFakeEstimator(zeroValue),
				newFakeEstimator(zeroValue), nil, c, t.TempDir(), 1)
			if err == nil {
				t.Error("expected error")
			}
		})
	}

	wrong := newFakeEstimator(zeroValue)
	wrong.outputs = 3
	_, err := New(&chain{length: 5}, wrong, newFakeEstimator(zeroValue), nil,
		testConfig(), t.TempDir(), 1)
	if err == nil {
		t.Error("expected error for estimator with wrong number of outputs")
	}
}

func TestLaneQNetwork(t *testing.T) {
	laneConfig := lane.DefaultConfig(shaping.DefaultGoal)
	laneConfig.EpisodeSteps = 10
	laneConfig.EmptyTerminal = true
	env, err := lane.New(laneConfig, 1)
	if err != nil {
		t.Fatal(err)
	}

	netConfig := network.DefaultConfig()
	netConfig.HiddenSizes = []int{8}
	online, err := network.NewQNetwork(lane.ObservationSize, lane.NumActions,
		netConfig, 1)
	if err != nil {
		t.Fatal(err)
	}
	target, err := network.NewQNetwork(lane.ObservationSize, lane.NumActions,
		netConfig, 2)
	if err != nil {
		t.Fatal(err)
	}

	config := testConfig()
	config.NumEpisodes = 2
	config.ReplayMemoryInitSize = 16
	config.BatchSize = 8
	config.Discount = 0.999

	d, err := New(env, online, target, nil, config, t.TempDir(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}

	if d.Step() != 20 || len(d.Returns()) != 2 {
		t.Errorf("ran %v steps with %v rewards, want 20 and 2", d.Step(),
			len(d.Returns()))
	}
	for _, r := range d.Returns() {
		if math.IsNaN(r) || r >= 0 {
			t.Errorf("unexpected episode reward %v", r)
		}
	}
}
