package network

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/dotarl/solver"
)

func testConfig() Config {
	c := DefaultConfig()
	c.HiddenSizes = []int{16}
	c.Solver = solver.Options{Type: solver.Adam, StepSize: 0.01}
	return c
}

func TestPredictShape(t *testing.T) {
	net, err := NewQNetwork(3, 4, testConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}

	pred, err := net.Predict([][]float64{{1, 2, 3}, {0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if r, c := pred.Dims(); r != 2 || c != 4 {
		t.Errorf("prediction has shape (%v, %v), want (2, 4)", r, c)
	}

	if _, err := net.Predict([][]float64{{1, 2}}); err == nil {
		t.Error("expected error for wrong number of features")
	}
	if _, err := net.Predict(nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestRegressionUpdate(t *testing.T) {
	net, err := NewQNetwork(2, 3, testConfig(), 7)
	if err != nil {
		t.Fatal(err)
	}

	states := [][]float64{{0.5, -0.5}, {-0.5, 0.5}}
	actions := []int{1, 2}
	targets := []float64{1.0, -1.0}

	first, err := net.Update(states, actions, targets)
	if err != nil {
		t.Fatal(err)
	}
	var last float64
	for i := 0; i < 300; i++ {
		if last, err = net.Update(states, actions, targets); err != nil {
			t.Fatal(err)
		}
	}
	if last >= first {
		t.Errorf("loss did not decrease: first %v, last %v", first, last)
	}

	pred, err := net.Predict(states)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pred.At(0, 1)-1.0) > 0.1 || math.Abs(pred.At(1, 2)+1.0) > 0.1 {
		t.Errorf("predictions %v not close to targets %v",
			mat.Formatted(pred), targets)
	}

	// A different batch size trains from the same parameters
	if _, err := net.Update(states[:1], actions[:1], targets[:1]); err != nil {
		t.Fatal(err)
	}
	pred, _ = net.Predict(states[:1])
	if math.Abs(pred.At(0, 1)-1.0) > 0.2 {
		t.Errorf("prediction %v drifted after smaller batch", pred.At(0, 1))
	}
}

func TestUpdateValidation(t *testing.T) {
	net, err := NewQNetwork(2, 3, testConfig(), 7)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := net.Update([][]float64{{0, 0}}, []int{3}, []float64{1}); err == nil {
		t.Error("expected error for illegal action")
	}
	if _, err := net.Update([][]float64{{0, 0}}, []int{0, 1}, []float64{1}); err == nil {
		t.Error("expected error for mismatched batch")
	}
}

func TestPolicyGradientUpdate(t *testing.T) {
	net, err := NewPolicyNetwork(2, 3, testConfig(), 3)
	if err != nil {
		t.Fatal(err)
	}

	states := [][]float64{{1, 0}, {1, 0}}
	probs, err := net.Predict(states[:1])
	if err != nil {
		t.Fatal(err)
	}
	if sum := floats.Sum(probs.RawRowView(0)); math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
	before := probs.At(0, 0)

	// Action 0 has positive return and action 1 negative return
	for i := 0; i < 100; i++ {
		_, err := net.Update(states, []int{0, 1}, []float64{1, -1})
		if err != nil {
			t.Fatal(err)
		}
	}

	probs, _ = net.Predict(states[:1])
	if probs.At(0, 0) <= before {
		t.Errorf("probability of rewarded action went from %v to %v", before,
			probs.At(0, 0))
	}
	if probs.At(0, 1) >= probs.At(0, 2) {
		t.Errorf("punished action has probability %v >= %v", probs.At(0, 1),
			probs.At(0, 2))
	}
}

func TestPolicyGradientBatchGradient(t *testing.T) {
	c := testConfig()
	c.HiddenSizes = nil
	c.Solver = solver.Options{Type: solver.Vanilla, StepSize: 1}

	states := [][]float64{{1, 0}, {1, 0}}
	actions := []int{0, 1}
	tests := [][]float64{{1, -1}, {0, -1}, {2, 0.5}}

	for _, returns := range tests {
		net, err := NewPolicyNetwork(2, 3, c, 5)
		if err != nil {
			t.Fatal(err)
		}
		probs, err := net.Predict(states[:1])
		if err != nil {
			t.Fatal(err)
		}
		p := probs.RawRowView(0)
		before := net.Parameters()[1]

		if _, err := net.Update(states, actions, returns); err != nil {
			t.Fatal(err)
		}
		after := net.Parameters()[1]

		// The bias gradient is -(1/B) sum_i ret_i (e_{a_i} - p), and a
		// vanilla step of size 1 moves the bias by its negative
		want := make([]float64, len(p))
		for i, a := range actions {
			for j := range want {
				indicator := 0.0
				if j == a {
					indicator = 1
				}
				want[j] += returns[i] * (indicator - p[j]) /
					float64(len(actions))
			}
		}
		for j := range want {
			got := after.At(0, j) - before.At(0, j)
			if math.Abs(got-want[j]) > 1e-6 {
				t.Errorf("returns %v: bias %v moved by %v, want %v", returns,
					j, got, want[j])
			}
		}
	}
}

func TestCopyParameters(t *testing.T) {
	online, err := NewQNetwork(2, 3, testConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}
	target, err := NewQNetwork(2, 3, testConfig(), 2)
	if err != nil {
		t.Fatal(err)
	}

	states := [][]float64{{0.3, 0.7}}
	if err := CopyParameters(online, target); err != nil {
		t.Fatal(err)
	}
	onlinePred, _ := online.Predict(states)
	targetPred, _ := target.Predict(states)
	if !mat.Equal(onlinePred, targetPred) {
		t.Error("predictions differ after copying parameters")
	}

	// Copies are independent
	if _, err := online.Update(states, []int{0}, []float64{10}); err != nil {
		t.Fatal(err)
	}
	targetAfter, _ := target.Predict(states)
	if !mat.Equal(targetPred, targetAfter) {
		t.Error("target changed after updating online network")
	}

	wide, err := NewQNetwork(2, 4, testConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := CopyParameters(wide, target); err == nil {
		t.Error("expected error copying between different architectures")
	}
}

func TestConfigValidate(t *testing.T) {
	c := testConfig()
	c.Activation = "sigmoid"
	if _, err := NewQNetwork(2, 2, c, 1); err == nil {
		t.Error("expected error for unknown activation")
	}

	c = testConfig()
	c.HiddenSizes = []int{0}
	if _, err := NewQNetwork(2, 2, c, 1); err == nil {
		t.Error("expected error for empty hidden layer")
	}
}
