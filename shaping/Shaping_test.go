package shaping

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/dotarl/demonstration"
	. "github.com/smartystreets/goconvey/convey"
)

// lineDemo returns a raw demonstration of length 5 walking along the x
// axis at height y. The third coordinate is ignored by the projection.
func lineDemo(y float64) [][]float64 {
	steps := make([][]float64, 5)
	for i := range steps {
		steps[i] = []float64{float64(i), y, 1.0}
	}
	return steps
}

func TestStatePotential(t *testing.T) {
	Convey("Given three demonstrations of length 5", t, func() {
		dir := t.TempDir()
		for i, y := range []float64{0, 10, 20} {
			path := filepath.Join(dir, fmt.Sprintf("demo-%v", i))
			So(demonstration.WriteStates(path, lineDemo(y)), ShouldBeNil)
		}

		shaper, err := LoadStatePotential(dir,
			demonstration.DefaultProjection, nil)
		So(err, ShouldBeNil)
		So(shaper.Demonstrations(), ShouldEqual, 3)

		Convey("The third state of the second demonstration has potential 60", func() {
			So(shaper.Potential([]float64{2, 10, 0}), ShouldEqual, 60.0)
		})

		Convey("A state within the threshold of a demonstrated state matches", func() {
			So(shaper.Potential([]float64{4.05, 20, 0}), ShouldEqual, 100.0)
		})

		Convey("A state far from every demonstration has zero potential", func() {
			So(shaper.Potential([]float64{1e6, 1e6, 1e6}), ShouldEqual, 0.0)
			So(shaper.Potential([]float64{2, 10.2, 0}), ShouldEqual, 0.0)
		})

		Convey("A state shorter than the projection has zero potential", func() {
			So(shaper.Potential([]float64{2}), ShouldEqual, 0.0)
			So(shaper.Potential(nil), ShouldEqual, 0.0)
		})

		Convey("Only the first three demonstrations are loaded", func() {
			path := filepath.Join(dir, "demo-3")
			So(demonstration.WriteStates(path, lineDemo(30)), ShouldBeNil)

			shaper, err := LoadStatePotential(dir,
				demonstration.DefaultProjection, nil)
			So(err, ShouldBeNil)
			So(shaper.Demonstrations(), ShouldEqual, 3)
			So(shaper.Potential([]float64{2, 30}), ShouldEqual, 0.0)
		})
	})

	Convey("Loading fewer than three demonstrations fails", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "demo")
		So(demonstration.WriteStates(path, lineDemo(0)), ShouldBeNil)

		_, err := LoadStatePotential(dir, demonstration.DefaultProjection, nil)
		So(err, ShouldNotBeNil)
	})

	Convey("The furthest match over all demonstrations wins", t, func() {
		demos := []demonstration.States{
			{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}},
			{{9, 9}, {8, 8}, {7, 7}, {1, 1}, {6, 6}},
		}
		shaper, err := NewStatePotential(demos,
			demonstration.DefaultProjection, nil)
		So(err, ShouldBeNil)
		So(shaper.Potential([]float64{1, 1}), ShouldEqual, 80.0)
		So(shaper.Potential([]float64{4, 4}), ShouldEqual, 100.0)
	})

	Convey("Queries are preprocessed like the demonstrations", t, func() {
		scale := demonstration.Scale([]float64{10, 10})
		demos := []demonstration.States{{{0, 0}, {1, 1}}}
		shaper, err := NewStatePotential(demos,
			demonstration.DefaultProjection, scale)
		So(err, ShouldBeNil)
		So(shaper.Potential([]float64{10, 10}), ShouldEqual, 100.0)

		// The threshold is measured in preprocessed units
		So(shaper.Potential([]float64{10.5, 10}), ShouldEqual, 100.0)
		So(shaper.Potential([]float64{1.05, 1}), ShouldEqual, 0.0)
	})

	Convey("Demonstrated states must match the projection", t, func() {
		demos := []demonstration.States{{{0, 0, 0}}}
		_, err := NewStatePotential(demos, demonstration.DefaultProjection,
			nil)
		So(err, ShouldNotBeNil)
	})
}

func TestStatePotentialBounds(t *testing.T) {
	demos := []demonstration.States{
		{{0, 0}, {0.05, 0}, {0.1, 0}},
		{{0, 0.05}},
	}
	shaper, err := NewStatePotential(demos, demonstration.DefaultProjection,
		nil)
	if err != nil {
		t.Fatal(err)
	}

	for x := -0.5; x <= 0.5; x += 0.01 {
		for y := -0.5; y <= 0.5; y += 0.01 {
			p := shaper.Potential([]float64{x, y})
			if p < 0 || p > StateScale {
				t.Errorf("potential of (%v, %v) is %v, out of bounds", x, y,
					p)
			}
		}
	}
}

func TestGoalDistance(t *testing.T) {
	goal, err := NewGoalDistance(DefaultGoal)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		state []float64
		want  float64
	}{
		{"at goal", []float64{-1543.998535, -1407.998291, 5}, 0.0},
		{"three-four-five", []float64{-1540.998535, -1403.998291}, 5.0},
		{"short state", []float64{1}, 0.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := goal.Potential(test.state); math.Abs(got-test.want) >
				1e-6 {
				t.Errorf("potential %v, want %v", got, test.want)
			}
		})
	}

	if _, err := NewGoalDistance(nil); err == nil {
		t.Error("expected error for empty goal")
	}
}

func TestShape(t *testing.T) {
	p := PotentialFunc(func(state []float64) float64 { return state[0] })
	got := Shape(p, 1.0, 0.5, []float64{2}, []float64{4})
	if got != 1.0 {
		t.Errorf("shaped reward %v, want 1", got)
	}

	if got := Shape(Zero, 3.0, 0.9, []float64{2}, []float64{4}); got != 3.0 {
		t.Errorf("zero potential shaped reward %v, want 3", got)
	}
}

func adviceState(prev float64, hero float64) []float64 {
	state := make([]float64, demonstration.AdviceStateSize)
	state[0] = prev
	for i := 1; i < len(state); i++ {
		state[i] = hero
	}
	return state
}

func TestActionAdvice(t *testing.T) {
	Convey("Given demonstrated state-action pairs", t, func() {
		demos := []demonstration.Pairs{
			{
				{State: adviceState(0, 0), Action: 1},
				{State: adviceState(0, 1), Action: 1},
			},
			{
				{State: adviceState(1, 0), Action: 2},
			},
		}
		advice, err := NewActionAdvice(demos, 4)
		So(err, ShouldBeNil)

		potentials, err := advice.ActionPotentials([][]float64{
			adviceState(0, 0),
			adviceState(0, 0.5),
		})
		So(err, ShouldBeNil)

		rows, cols := potentials.Dims()
		So(rows, ShouldEqual, 2)
		So(cols, ShouldEqual, 4)

		Convey("An exact match scores the full scale", func() {
			So(potentials.At(0, 1), ShouldEqual, AdviceScale)
		})

		Convey("Undemonstrated actions score zero", func() {
			So(potentials.At(0, 0), ShouldEqual, 0.0)
			So(potentials.At(1, 3), ShouldEqual, 0.0)
		})

		Convey("The kernel uses the diagonal weights", func() {
			// Previous action differs by 1 with weight 1
			So(potentials.At(0, 2), ShouldAlmostEqual,
				AdviceScale*math.Exp(-0.5), 1e-9)

			// Two features with weight 1 and fifteen with weight 0.2
			// differ by 0.5 from either demonstrated state
			quad := 2*0.25 + 15*0.2*0.25
			So(potentials.At(1, 1), ShouldAlmostEqual,
				AdviceScale*math.Exp(-0.5*quad), 1e-9)
		})

		Convey("States of the wrong length are rejected", func() {
			_, err := advice.ActionPotentials([][]float64{{1, 2}})
			So(err, ShouldNotBeNil)
		})

		Convey("An empty batch is rejected", func() {
			_, err := advice.ActionPotentials(nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Demonstrated actions must be in range", t, func() {
		demos := []demonstration.Pairs{{{State: adviceState(0, 0), Action: 4}}}
		_, err := NewActionAdvice(demos, 4)
		So(err, ShouldNotBeNil)
	})
}
