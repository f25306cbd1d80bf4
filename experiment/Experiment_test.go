package experiment

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/dotarl/environment/lane"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

func TestOnline(t *testing.T) {
	config := lane.DefaultConfig([]float64{0, 0})
	config.EpisodeSteps = 20
	env, err := lane.New(config, 1)
	if err != nil {
		t.Fatal(err)
	}

	lengths := trackers.NewEpisodeLength(filepath.Join(t.TempDir(), "len"))
	returns := trackers.NewReturn(filepath.Join(t.TempDir(), "ret"), 1.0)

	// Always walk east, which never reaches the goal in 20 steps
	agent := AgentFunc(func(ts.TimeStep) (int, error) { return 0, nil })
	exp := NewOnline(env, agent, 3, lengths)
	exp.Register(returns)

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}

	got := lengths.Lengths()
	if len(got) != 3 {
		t.Fatalf("ran %v episodes, want 3", len(got))
	}
	for _, l := range got {
		if l != 20 {
			t.Errorf("episode length %v, want 20", l)
		}
	}
	for _, r := range returns.Returns() {
		if r != -20 {
			t.Errorf("episode return %v, want -20", r)
		}
	}
}
