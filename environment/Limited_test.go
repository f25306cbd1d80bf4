package environment

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"

	ts "github.com/samuelfneumann/dotarl/timestep"
)

// counter never ends its episodes on its own
type counter struct {
	n int
}

func (c *counter) Reset() (ts.TimeStep, error) {
	c.n = 0
	return ts.New(ts.First, 0, []float64{0}, 0), nil
}

func (c *counter) Execute(int) (ts.TimeStep, error) {
	c.n++
	return ts.New(ts.Mid, 1, []float64{float64(c.n)}, c.n), nil
}

func (c *counter) ObservationSpec() Spec {
	return NewSpec(1, Observation, Continuous)
}

func (c *counter) ActionSpec() Spec {
	return NewSpec(2, Action, Discrete)
}

func TestLimited(t *testing.T) {
	env := NewLimited(&counter{}, 3)

	for episode := 0; episode < 2; episode++ {
		step, err := env.Reset()
		if err != nil {
			t.Fatal(err)
		}
		for !step.Last() {
			if step, err = env.Execute(0); err != nil {
				t.Fatal(err)
			}
		}
		if step.Number != 3 || step.Observation[0] != 3 {
			t.Errorf("episode ended at %v, want step 3", step)
		}
	}

	if err := ValidateDiscreteActions(env); err != nil {
		t.Error(err)
	}
}

func TestUniformStarter(t *testing.T) {
	bounds := []r1.Interval{{Min: -1, Max: 1}, {Min: 5, Max: 5}}
	starter := NewUniformStarter(bounds, 1)
	for i := 0; i < 100; i++ {
		start := starter.Start()
		if start[0] < -1 || start[0] > 1 || start[1] != 5 {
			t.Fatalf("start %v outside of %v", start, bounds)
		}
	}
}
