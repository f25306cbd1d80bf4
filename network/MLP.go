package network

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/dotarl/initwfn"
	"github.com/samuelfneumann/dotarl/solver"
	"github.com/samuelfneumann/dotarl/utils/floatutils"
)

// Config describes the architecture and training of an MLP
type Config struct {
	HiddenSizes []int           `mapstructure:"hidden_sizes" yaml:"hidden_sizes"`
	Activation  string          `mapstructure:"activation" yaml:"activation"`
	InitWFn     initwfn.Options `mapstructure:"init" yaml:"init"`
	Solver      solver.Options  `mapstructure:"solver" yaml:"solver"`
}

// DefaultConfig returns a single hidden layer of 64 ReLU units trained
// with RMSProp
func DefaultConfig() Config {
	return Config{
		HiddenSizes: []int{64},
		Activation:  "relu",
		InitWFn:     initwfn.Options{Type: initwfn.GlorotU, Gain: 1.0},
		Solver: solver.Options{
			Type:     solver.RMSProp,
			StepSize: solver.DefaultRMSPropStepSize,
			Epsilon:  solver.DefaultRMSPropEpsilon,
			Rho:      solver.DefaultRMSPropRho,
		},
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	for i, size := range c.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %v has size %v", i, size)
		}
	}
	if _, err := ActivationByName(c.Activation); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// MLP implements a multi-layered perceptron with one output per
// action. The final layer is always linear, with a softmax applied to
// the outputs of a PolicyGradient MLP.
//
// The canonical parameters of the MLP are gonum matrices. Each batch
// size seen by Update gets its own training graph, which is loaded with
// the canonical parameters before a gradient step and read back after.
type MLP struct {
	numInputs   int
	numOutputs  int
	hiddenSizes []int
	activations []*Activation // One per layer, including the output layer
	loss        Loss

	// Layer i maps inputs x to act(x * weights[i] + biases[i]), where
	// biases[i] has a single row
	weights []*mat.Dense
	biases  []*mat.Dense

	solver *solver.Solver
	graphs map[int]*trainGraph
}

// NewQNetwork returns a new MLP predicting one action value per action
func NewQNetwork(features, actions int, c Config, seed uint64) (*MLP,
	error) {
	return NewMLP(features, actions, Regression, c, seed)
}

// NewPolicyNetwork returns a new MLP predicting a softmax distribution
// over actions
func NewPolicyNetwork(features, actions int, c Config,
	seed uint64) (*MLP, error) {
	return NewMLP(features, actions, PolicyGradient, c, seed)
}

// NewMLP creates and returns a new multi-layered perceptron with
// features inputs and outputs outputs. Weights are initialized with
// the Config's InitWFn using seed, and biases are initialized to 0.
func NewMLP(features, outputs int, loss Loss, c Config, seed uint64) (*MLP,
	error) {
	if features < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMLP: need positive features and outputs, "+
			"have %v and %v", features, outputs)
	}
	if loss != Regression && loss != PolicyGradient {
		return nil, fmt.Errorf("newMLP: unknown loss %q", loss)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newMLP: %w", err)
	}

	init, err := c.InitWFn.Create()
	if err != nil {
		return nil, fmt.Errorf("newMLP: could not create weight "+
			"initializer: %w", err)
	}
	s, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newMLP: could not create solver: %w", err)
	}

	activations := make([]*Activation, 0, len(c.HiddenSizes)+1)
	for range c.HiddenSizes {
		act, _ := ActivationByName(c.Activation)
		activations = append(activations, act)
	}
	activations = append(activations, Identity())

	source := rand.NewSource(seed)
	sizes := append(append([]int(nil), c.HiddenSizes...), outputs)
	weights := make([]*mat.Dense, len(sizes))
	biases := make([]*mat.Dense, len(sizes))
	in := features
	for i, out := range sizes {
		weights[i] = mat.NewDense(in, out, nil)
		init.Initialize(weights[i], source)
		biases[i] = mat.NewDense(1, out, nil)
		in = out
	}

	return &MLP{
		numInputs:   features,
		numOutputs:  outputs,
		hiddenSizes: append([]int(nil), c.HiddenSizes...),
		activations: activations,
		loss:        loss,
		weights:     weights,
		biases:      biases,
		solver:      s,
		graphs:      make(map[int]*trainGraph),
	}, nil
}

// Features returns the number of features in a single state
func (m *MLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs from the network
func (m *MLP) Outputs() int {
	return m.numOutputs
}

// Loss returns the loss the MLP is trained with
func (m *MLP) Loss() Loss {
	return m.loss
}

// Predict returns the outputs of the MLP for a batch of states. The
// outputs of a PolicyGradient MLP are action probabilities.
func (m *MLP) Predict(states [][]float64) (*mat.Dense, error) {
	x, err := m.batch(states)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	x = m.logits(x)
	if m.loss == PolicyGradient {
		r, _ := x.Dims()
		for i := 0; i < r; i++ {
			softmax(x.RawRowView(i))
		}
	}
	return x, nil
}

// Update takes a single gradient step on the MLP's loss. For a
// Regression MLP the loss is the mean squared error between targets and
// the predicted values of actions. For a PolicyGradient MLP the loss is
// the negative mean of the log probability of each action weighted by
// its target.
func (m *MLP) Update(states [][]float64, actions []int,
	targets []float64) (float64, error) {
	if len(actions) != len(states) || len(targets) != len(states) {
		return 0, fmt.Errorf("update: have %v states, %v actions and %v "+
			"targets", len(states), len(actions), len(targets))
	}

	x, err := m.batch(states)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	oneHot := make([]float64, 0, len(actions)*m.numOutputs)
	for _, a := range actions {
		if a < 0 || a >= m.numOutputs {
			return 0, fmt.Errorf("update: illegal action %v", a)
		}
		oneHot = append(oneHot, floatutils.OneHot(a, m.numOutputs)...)
	}

	g, err := m.graph(len(states))
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	for i, layer := range g.layers {
		if err := layer.set(m.weights[i], m.biases[i]); err != nil {
			return 0, fmt.Errorf("update: %w", err)
		}
	}

	batch := len(states)
	inputs := map[*G.Node]*tensor.Dense{
		g.input: tensor.New(tensor.WithShape(batch, m.numInputs),
			tensor.WithBacking(x.RawMatrix().Data)),
		g.actions: tensor.New(tensor.WithShape(batch, m.numOutputs),
			tensor.WithBacking(oneHot)),
		g.targets: tensor.New(tensor.WithShape(batch),
			tensor.WithBacking(append([]float64(nil), targets...))),
	}
	if g.shift != nil {
		logits := m.logits(x)
		shift := make([]float64, batch)
		for i := range shift {
			shift[i] = floats.Max(logits.RawRowView(i))
		}
		inputs[g.shift] = tensor.New(tensor.WithShape(batch, 1),
			tensor.WithBacking(shift))
	}
	for node, value := range inputs {
		if err := G.Let(node, value); err != nil {
			return 0, fmt.Errorf("update: could not set %v: %w", node.Name(),
				err)
		}
	}

	// Run the learning step
	defer g.vm.Reset()
	if err := g.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("update: could not run training graph: %w", err)
	}
	loss := g.cost.Data().(float64)
	if err := m.solver.Step(g.model); err != nil {
		return 0, fmt.Errorf("update: could not step solver: %w", err)
	}

	for i, layer := range g.layers {
		layer.get(m.weights[i], m.biases[i])
	}
	return loss, nil
}

// Parameters returns a copy of the weights and biases of each layer, in
// the order weights then bias for each layer in turn
func (m *MLP) Parameters() []*mat.Dense {
	params := make([]*mat.Dense, 0, 2*len(m.weights))
	for i := range m.weights {
		params = append(params, mat.DenseCopyOf(m.weights[i]),
			mat.DenseCopyOf(m.biases[i]))
	}
	return params
}

// SetParameters sets the weights and biases of each layer, in the
// order returned by Parameters
func (m *MLP) SetParameters(params []*mat.Dense) error {
	if len(params) != 2*len(m.weights) {
		return fmt.Errorf("setParameters: need %v parameters, have %v",
			2*len(m.weights), len(params))
	}

	for i, p := range params {
		dest := m.weights[i/2]
		if i%2 == 1 {
			dest = m.biases[i/2]
		}
		wr, wc := dest.Dims()
		if r, c := p.Dims(); r != wr || c != wc {
			return fmt.Errorf("setParameters: parameter %v has shape "+
				"(%v, %v), expected (%v, %v)", i, r, c, wr, wc)
		}
	}

	for i, p := range params {
		if i%2 == 0 {
			m.weights[i/2].Copy(p)
		} else {
			m.biases[i/2].Copy(p)
		}
	}
	return nil
}

// batch stacks states into a matrix with one row per state
func (m *MLP) batch(states [][]float64) (*mat.Dense, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("batch: no states")
	}

	data := make([]float64, 0, len(states)*m.numInputs)
	for i, state := range states {
		if len(state) != m.numInputs {
			return nil, fmt.Errorf("batch: state %v has %v features, "+
				"expected %v", i, len(state), m.numInputs)
		}
		data = append(data, state...)
	}
	return mat.NewDense(len(states), m.numInputs, data), nil
}

// logits returns the outputs of the final layer of the MLP for the
// batch x, before any softmax
func (m *MLP) logits(x *mat.Dense) *mat.Dense {
	for i := range m.weights {
		var out mat.Dense
		out.Mul(x, m.weights[i])
		bias := m.biases[i].RawRowView(0)
		act := m.activations[i]
		out.Apply(func(_, c int, v float64) float64 {
			return act.apply(v + bias[c])
		}, &out)
		x = &out
	}
	return x
}

// softmax replaces x with its softmax
func softmax(x []float64) {
	max := floats.Max(x)
	for i := range x {
		x[i] = math.Exp(x[i] - max)
	}
	floats.Scale(1/floats.Sum(x), x)
}
