package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// trainGraph is the training graph of an MLP for a fixed batch size
type trainGraph struct {
	g       *G.ExprGraph
	input   *G.Node // States, (batch, features)
	actions *G.Node // One-hot selected actions, (batch, outputs)
	targets *G.Node // Targets of the selected actions, (batch)
	shift   *G.Node // Row maxima of the logits, (batch, 1), nil for Regression
	layers  []*fcLayer

	learnables G.Nodes
	model      []G.ValueGrad
	cost       G.Value
	vm         G.VM
}

// graph returns the training graph for batch size batch, building it
// if needed
func (m *MLP) graph(batch int) (*trainGraph, error) {
	if g, ok := m.graphs[batch]; ok {
		return g, nil
	}

	g, err := m.buildGraph(batch)
	if err != nil {
		return nil, fmt.Errorf("graph: could not build graph for batch "+
			"size %v: %w", batch, err)
	}
	log.Debugf("built training graph for batch size %v", batch)
	m.graphs[batch] = g
	return g, nil
}

// buildGraph constructs the training graph of the MLP and compiles it
// into a VM
func (m *MLP) buildGraph(batch int) (*trainGraph, error) {
	g := G.NewGraph()

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, m.numInputs),
		G.WithName("input"), G.WithInit(G.Zeroes()))
	actions := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, m.numOutputs), G.WithName("actionSelected"),
		G.WithInit(G.Zeroes()))
	targets := G.NewVector(g, tensor.Float64, G.WithShape(batch),
		G.WithName("target"), G.WithInit(G.Zeroes()))

	layers := make([]*fcLayer, len(m.weights))
	learnables := make(G.Nodes, 0, 2*len(m.weights))
	pred := input
	var err error
	for i, weights := range m.weights {
		in, out := weights.Dims()
		layers[i] = newFCLayer(g, in, out, i, m.activations[i])
		learnables = append(learnables, layers[i].weights, layers[i].bias)

		if pred, err = layers[i].fwd(pred); err != nil {
			msg := "buildGraph: could not compute forward pass of layer " +
				"%v: %w"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	var cost, shift *G.Node
	switch m.loss {
	case Regression:
		cost, err = regressionCost(pred, actions, targets)
	case PolicyGradient:
		shift = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
			G.WithName("shift"), G.WithInit(G.Zeroes()))
		cost, err = policyGradientCost(pred, shift, actions, targets)
	}
	if err != nil {
		return nil, fmt.Errorf("buildGraph: could not compute cost: %w", err)
	}

	tg := &trainGraph{
		g:          g,
		input:      input,
		actions:    actions,
		targets:    targets,
		shift:      shift,
		layers:     layers,
		learnables: learnables,
	}
	G.Read(cost, &tg.cost)

	if _, err := G.Grad(cost, learnables...); err != nil {
		return nil, fmt.Errorf("buildGraph: could not compute gradient: %w",
			err)
	}

	model := make([]G.ValueGrad, 0, len(learnables))
	for _, node := range learnables {
		model = append(model, node)
	}
	tg.model = model
	tg.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))

	return tg, nil
}

// regressionCost returns the mean squared error between targets and the
// predicted values of the selected actions
func regressionCost(pred, actions, targets *G.Node) (*G.Node, error) {
	selected, err := G.HadamardProd(pred, actions)
	if err != nil {
		return nil, err
	}
	if selected, err = G.Sum(selected, 1); err != nil {
		return nil, err
	}

	losses := G.Must(G.Sub(targets, selected))
	losses = G.Must(G.Square(losses))
	return G.Mean(losses)
}

// policyGradientCost returns the REINFORCE loss, the negative mean over
// the batch of the log probability of the selected action weighted by
// its return
func policyGradientCost(pred, shift, actions, returns *G.Node) (*G.Node,
	error) {
	logProbs, err := logSoftmax(pred, shift)
	if err != nil {
		return nil, err
	}

	selected := G.Must(G.HadamardProd(logProbs, actions))
	selected = G.Must(G.Sum(selected, 1))

	weighted := G.Must(G.HadamardProd(selected, returns))
	return G.Neg(G.Must(G.Mean(weighted)))
}

// logSoftmax returns the log softmax of each row of x. Each row is
// first shifted by the matching row of shift, which should hold the row
// maxima of x so that the exponentials cannot overflow. The log softmax
// does not depend on the shift, so shift is an input of the graph
// rather than a node differentiated through.
func logSoftmax(x, shift *G.Node) (*G.Node, error) {
	shifted, err := G.BroadcastSub(x, shift, nil, []byte{1})
	if err != nil {
		return nil, err
	}

	sum := G.Must(G.Sum(G.Must(G.Exp(shifted)), 1))
	logSum := G.Must(G.Log(sum))
	logSum, err = G.Reshape(logSum, tensor.Shape{x.Shape()[0], 1})
	if err != nil {
		return nil, err
	}
	return G.BroadcastSub(shifted, logSum, nil, []byte{1})
}
